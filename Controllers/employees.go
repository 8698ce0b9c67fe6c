package Controllers

import (
	"ClientMax/Models"
	"ClientMax/Store"
	"ClientMax/middleware"

	"github.com/gofiber/fiber/v2"
)

type EmployeeController struct {
	Employees *Store.EmployeeStore
	Validator *Validator
}

func NewEmployeeController(employees *Store.EmployeeStore, v *Validator) *EmployeeController {
	return &EmployeeController{Employees: employees, Validator: v}
}

type employeeInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Role     string `json:"role" validate:"max=64"`
	Password string `json:"password" validate:"omitempty,min=6"`
}

type employeePatchInput struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=255"`
	Role     *string `json:"role" validate:"omitempty,max=64"`
	Password *string `json:"password" validate:"omitempty,min=6"`
}

// GetEmployees lists employees ordered by name
func (c *EmployeeController) GetEmployees(ctx *fiber.Ctx) error {
	employees, err := c.Employees.List(ctx.UserContext())
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(employees)
}

// CreateEmployee is restricted to the privileged session by the router.
func (c *EmployeeController) CreateEmployee(ctx *fiber.Ctx) error {
	var input employeeInput
	if err := c.Validator.parseBody(ctx, &input); err != nil {
		return respondError(ctx, err)
	}
	employee, err := c.Employees.Create(ctx.UserContext(), Models.NewEmployee{
		Name:     input.Name,
		Email:    input.Email,
		Role:     input.Role,
		Password: input.Password,
	})
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(employee)
}

// UpdateEmployee lets an employee edit their own name and password. Role
// changes and edits to others need the privileged session.
func (c *EmployeeController) UpdateEmployee(ctx *fiber.Ctx) error {
	session, _ := middleware.SessionFrom(ctx)
	id := ctx.Params("id")
	if !session.CanEditEmployee(id) {
		return respondError(ctx, Models.ErrForbidden)
	}

	var input employeePatchInput
	if err := c.Validator.parseBody(ctx, &input); err != nil {
		return respondError(ctx, err)
	}
	if input.Role != nil && !session.Privileged {
		return respondError(ctx, Models.ErrForbidden)
	}

	employee, err := c.Employees.Update(ctx.UserContext(), id, Models.EmployeePatch{
		Name:     input.Name,
		Role:     input.Role,
		Password: input.Password,
	})
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(employee)
}
