package Controllers

import (
	"context"
	"time"

	"ClientMax/Models"
	"ClientMax/middleware"

	"github.com/gofiber/fiber/v2"
)

type Authenticating interface {
	Authenticate(ctx context.Context, email, password string) (Models.Employee, error)
}

type AuthController struct {
	Employees     Authenticating
	Auth          *middleware.Authenticator
	Validator     *Validator
	SecureCookies bool
	Now           func() time.Time
}

func NewAuthController(employees Authenticating, auth *middleware.Authenticator, v *Validator, secure bool) *AuthController {
	return &AuthController{Employees: employees, Auth: auth, Validator: v, SecureCookies: secure, Now: time.Now}
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login checks the credentials and sets the jwt cookie.
func (c *AuthController) Login(ctx *fiber.Ctx) error {
	var input loginInput
	if err := c.Validator.parseBody(ctx, &input); err != nil {
		return respondError(ctx, err)
	}

	employee, err := c.Employees.Authenticate(ctx.UserContext(), input.Email, input.Password)
	if err != nil {
		return respondError(ctx, err)
	}

	token, expires, err := c.Auth.IssueToken(employee, c.Now())
	if err != nil {
		return respondError(ctx, err)
	}

	ctx.Cookie(&fiber.Cookie{
		Name:     middleware.CookieName,
		Value:    token,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   c.SecureCookies,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	session := c.Auth.Gate.NewSession(employee)
	return ctx.JSON(fiber.Map{
		"employee":   employee,
		"privileged": session.Privileged,
		"token":      token,
	})
}

func (c *AuthController) Logout(ctx *fiber.Ctx) error {
	ctx.Cookie(&fiber.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Expires:  c.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   c.SecureCookies,
	})
	return ctx.JSON(fiber.Map{"message": "Logged out"})
}

// Me returns the current employee and whether they hold the privileged role.
func (c *AuthController) Me(ctx *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not Logged In."})
	}
	return ctx.JSON(fiber.Map{
		"employee":   session.Employee,
		"privileged": session.Privileged,
	})
}
