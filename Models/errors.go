package Models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no record matches the requested id.
	ErrNotFound = errors.New("record not found")
	// ErrForbidden is returned when the session may not perform the operation.
	ErrForbidden = errors.New("operation not permitted for this employee")
	// ErrInvalidCredentials is returned by login for an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ValidationError means the store rejected a payload.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Invalid builds a ValidationError for a single field.
func Invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
