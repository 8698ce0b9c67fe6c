package Store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ClientMax/Models"
	"ClientMax/Realtime"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const EmployeesTable = "employees"

type EmployeeStore struct {
	DB    *gorm.DB
	Feed  Publisher
	Clock func() time.Time
}

// List returns every employee ordered by name.
func (s *EmployeeStore) List(ctx context.Context) ([]Models.Employee, error) {
	var employees []Models.Employee
	if err := s.DB.WithContext(ctx).Order("name").Find(&employees).Error; err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	return employees, nil
}

func (s *EmployeeStore) Get(ctx context.Context, id string) (Models.Employee, error) {
	var e Models.Employee
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return Models.Employee{}, notFound("employee", id, err)
	}
	return e, nil
}

func (s *EmployeeStore) FindByEmail(ctx context.Context, email string) (Models.Employee, error) {
	var e Models.Employee
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&e).Error; err != nil {
		return Models.Employee{}, notFound("employee", email, err)
	}
	return e, nil
}

// Create stores a new employee. The password, when given, is stored as a
// bcrypt hash.
func (s *EmployeeStore) Create(ctx context.Context, in Models.NewEmployee) (Models.Employee, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	if name == "" {
		return Models.Employee{}, Models.Invalid("name", "is required")
	}
	if email == "" {
		return Models.Employee{}, Models.Invalid("email", "is required")
	}

	db := s.DB.WithContext(ctx)
	var count int64
	if err := db.Model(&Models.Employee{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return Models.Employee{}, err
	}
	if count > 0 {
		return Models.Employee{}, Models.Invalid("email", "%s is already registered", email)
	}

	now := nowFrom(s.Clock)
	e := Models.Employee{Name: name, Email: email, Role: strings.TrimSpace(in.Role), CreatedAt: now, UpdatedAt: now}
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return Models.Employee{}, fmt.Errorf("failed to hash password: %w", err)
		}
		e.PasswordHash = hash
	}
	if err := db.Create(&e).Error; err != nil {
		return Models.Employee{}, &Models.ValidationError{Message: err.Error()}
	}
	s.publish(Realtime.Insert, e)
	return e, nil
}

func (s *EmployeeStore) Update(ctx context.Context, id string, patch Models.EmployeePatch) (Models.Employee, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return Models.Employee{}, err
	}

	values := map[string]interface{}{"updated_at": nowFrom(s.Clock)}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return Models.Employee{}, Models.Invalid("name", "is required")
		}
		values["name"] = name
	}
	if patch.Role != nil {
		values["role"] = strings.TrimSpace(*patch.Role)
	}
	if patch.AuthUserID != nil {
		values["auth_user_id"] = *patch.AuthUserID
	}
	if patch.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*patch.Password), bcrypt.DefaultCost)
		if err != nil {
			return Models.Employee{}, fmt.Errorf("failed to hash password: %w", err)
		}
		values["password_hash"] = hash
	}

	if err := s.DB.WithContext(ctx).Model(&Models.Employee{ID: id}).Updates(values).Error; err != nil {
		return Models.Employee{}, fmt.Errorf("failed to update employee %s: %w", id, err)
	}
	updated, err := s.Get(ctx, id)
	if err != nil {
		return Models.Employee{}, err
	}
	s.publish(Realtime.Update, updated)
	return updated, nil
}

// Authenticate checks email and password. Unknown emails and wrong
// passwords both return ErrInvalidCredentials.
func (s *EmployeeStore) Authenticate(ctx context.Context, email, password string) (Models.Employee, error) {
	e, err := s.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, Models.ErrNotFound) {
			return Models.Employee{}, Models.ErrInvalidCredentials
		}
		return Models.Employee{}, err
	}
	if len(e.PasswordHash) == 0 {
		return Models.Employee{}, Models.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(e.PasswordHash, []byte(password)); err != nil {
		return Models.Employee{}, Models.ErrInvalidCredentials
	}
	return e, nil
}

func (s *EmployeeStore) publish(t Realtime.EventType, e Models.Employee) {
	if s.Feed == nil {
		return
	}
	s.Feed.Publish(Realtime.Event{
		Type:    t,
		Table:   EmployeesTable,
		Record:  e,
		Columns: map[string]string{"id": e.ID, "email": e.Email},
	})
}
