package Models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Employee struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	Name         string    `json:"name" gorm:"size:255;not null;index"`
	Email        string    `json:"email" gorm:"size:255;not null;uniqueIndex"`
	Role         string    `json:"role" gorm:"size:64"`
	AuthUserID   *string   `json:"auth_user_id" gorm:"size:64"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not supply an id
func (e *Employee) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// EmployeeRef is the {id, name, email} projection joined into work records.
type EmployeeRef struct {
	ID    string `json:"id" gorm:"primaryKey"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (EmployeeRef) TableName() string {
	return "employees"
}

// Ref returns the joinable projection of the employee.
func (e Employee) Ref() EmployeeRef {
	return EmployeeRef{ID: e.ID, Name: e.Name, Email: e.Email}
}

type NewEmployee struct {
	Name     string
	Email    string
	Role     string
	Password string
}

type EmployeePatch struct {
	Name       *string
	Role       *string
	AuthUserID *string
	Password   *string
}
