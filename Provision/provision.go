// Package Provision creates and repairs the privileged CEO account in the
// hosted identity service and its employees table.
package Provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ClientMax/Config"
	"ClientMax/Models"
	"ClientMax/Supabase"
)

// Backend is the subset of the Supabase client the tools use.
type Backend interface {
	FindUserByEmail(ctx context.Context, email string) (Supabase.AuthUser, error)
	CreateUser(ctx context.Context, email, password string) (Supabase.AuthUser, error)
	FindEmployeeByEmail(ctx context.Context, email string) (Supabase.EmployeeRow, error)
	CreateEmployee(ctx context.Context, row Supabase.EmployeeRow) (Supabase.EmployeeRow, error)
	UpsertEmployee(ctx context.Context, name, email, role string) (Supabase.EmployeeRow, error)
	UpdateEmployee(ctx context.Context, id string, fields map[string]interface{}) (Supabase.EmployeeRow, error)
}

// ErrAuthUserMissing is returned by Fix when no auth user exists for the CEO email.
var ErrAuthUserMissing = errors.New("auth user not found; run setup-ceo first")

func authUserID(row Supabase.EmployeeRow) string {
	if row.AuthUserID == nil {
		return ""
	}
	return *row.AuthUserID
}

// Setup creates or updates the employee row, creates the auth user (or finds
// the existing one) and links the two.
func Setup(ctx context.Context, backend Backend, p Config.Provisioning, out io.Writer) error {
	fmt.Fprintf(out, "Complete CEO Account Setup\n\nEmail: %s\n%s\n", p.CEOEmail, strings.Repeat("-", 50))

	fmt.Fprintf(out, "Creating/updating employee record...\n")
	employee, err := backend.UpsertEmployee(ctx, p.CEOName, p.CEOEmail, p.CEORole)
	if err != nil {
		return fmt.Errorf("employee record: %w", err)
	}
	fmt.Fprintf(out, "Employee record: id=%s name=%s email=%s role=%s\n", employee.ID, employee.Name, employee.Email, employee.Role)

	fmt.Fprintf(out, "Creating auth user...\n")
	user, err := backend.CreateUser(ctx, p.CEOEmail, p.CEOPassword)
	switch {
	case errors.Is(err, Supabase.ErrAuthConflict):
		fmt.Fprintf(out, "Auth user already exists. Looking up...\n")
		user, err = backend.FindUserByEmail(ctx, p.CEOEmail)
		if err != nil {
			return fmt.Errorf("could not find existing auth user: %w", err)
		}
		fmt.Fprintf(out, "Found existing auth user: %s\n", user.ID)
	case err != nil:
		return fmt.Errorf("auth user: %w", err)
	default:
		fmt.Fprintf(out, "Created auth user: %s\n", user.ID)
	}

	fmt.Fprintf(out, "Linking employee record to auth user...\n")
	linked, err := backend.UpdateEmployee(ctx, employee.ID, map[string]interface{}{"auth_user_id": user.ID})
	if err != nil {
		return fmt.Errorf("failed to link employee: %w", err)
	}
	fmt.Fprintf(out, "Employee linked: employee_id=%s auth_user_id=%s\n", linked.ID, authUserID(linked))

	fmt.Fprintf(out, "\nSetup Complete!\nCEO account is ready to use:\n  Email: %s\n", p.CEOEmail)
	fmt.Fprintf(out, "\nImportant: change the password after first login in Settings -> Security\n")
	return nil
}

// Fix checks the CEO employee row against the auth user and repairs a
// missing row, a missing or wrong link, and a wrong role.
func Fix(ctx context.Context, backend Backend, p Config.Provisioning, out io.Writer) error {
	fmt.Fprintf(out, "CEO Employee Record Diagnostic & Fix Tool\n\nEmail: %s\n%s\n", p.CEOEmail, strings.Repeat("-", 50))

	fmt.Fprintf(out, "Looking up auth user by email: %s\n", p.CEOEmail)
	user, err := backend.FindUserByEmail(ctx, p.CEOEmail)
	if errors.Is(err, Models.ErrNotFound) {
		return ErrAuthUserMissing
	}
	if err != nil {
		return err
	}
	confirmed := "No"
	if user.Confirmed() {
		confirmed = "Yes"
	}
	fmt.Fprintf(out, "Auth user found: id=%s email=%s confirmed=%s\n", user.ID, user.Email, confirmed)

	fmt.Fprintf(out, "Looking up employee record by email: %s\n", p.CEOEmail)
	employee, err := backend.FindEmployeeByEmail(ctx, p.CEOEmail)
	if errors.Is(err, Models.ErrNotFound) {
		fmt.Fprintf(out, "Employee record not found. Creating employee record...\n")
		id := user.ID
		created, err := backend.CreateEmployee(ctx, Supabase.EmployeeRow{
			Name:       p.CEOName,
			Email:      p.CEOEmail,
			Role:       p.CEORole,
			AuthUserID: &id,
		})
		if err != nil {
			return fmt.Errorf("failed to create employee: %w", err)
		}
		fmt.Fprintf(out, "Employee record created: id=%s auth_user_id=%s\n", created.ID, authUserID(created))
		fmt.Fprintf(out, "\nSetup complete! CEO can now log in.\n")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Employee record found: id=%s role=%s auth_user_id=%s\n", employee.ID, employee.Role, orNotLinked(authUserID(employee)))

	switch current := authUserID(employee); {
	case current == "":
		fmt.Fprintf(out, "Employee record not linked to auth user. Linking now...\n")
		if _, err := backend.UpdateEmployee(ctx, employee.ID, map[string]interface{}{"auth_user_id": user.ID}); err != nil {
			return fmt.Errorf("failed to link employee: %w", err)
		}
		fmt.Fprintf(out, "Employee record linked\n")
	case current != user.ID:
		fmt.Fprintf(out, "Employee record linked to a different auth user (%s, expected %s). Updating...\n", current, user.ID)
		if _, err := backend.UpdateEmployee(ctx, employee.ID, map[string]interface{}{"auth_user_id": user.ID}); err != nil {
			return fmt.Errorf("failed to relink employee: %w", err)
		}
		fmt.Fprintf(out, "Employee record updated\n")
	default:
		fmt.Fprintf(out, "Employee record is correctly linked\n")
	}

	if employee.Role != p.CEORole {
		fmt.Fprintf(out, "Employee role is %q, updating to %q...\n", employee.Role, p.CEORole)
		if _, err := backend.UpdateEmployee(ctx, employee.ID, map[string]interface{}{"role": p.CEORole}); err != nil {
			return fmt.Errorf("failed to update role: %w", err)
		}
		fmt.Fprintf(out, "Role updated to %s\n", p.CEORole)
	} else {
		fmt.Fprintf(out, "Role is correct: %s\n", p.CEORole)
	}

	fmt.Fprintf(out, "\nAll checks passed! CEO account is properly configured.\n")
	return nil
}

func orNotLinked(id string) string {
	if id == "" {
		return "(not linked)"
	}
	return id
}

// Hints returns the troubleshooting lines printed after a failure.
func Hints(err error, p Config.Provisioning) []string {
	url := p.SupabaseURL
	if url == "" {
		url = "(not set)"
	}

	var hints []string
	switch {
	case errors.Is(err, Config.ErrMissingSecret):
		hints = append(hints,
			"Set SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY as environment variables or in "+p.EnvFile,
		)
	case errors.Is(err, ErrAuthUserMissing):
		hints = append(hints, "Run setup-ceo to create the auth user and employee record")
	case Supabase.IsNetwork(err):
		hints = append(hints,
			"Check internet connection",
			"Check SUPABASE_URL: "+url,
			"Verify your Supabase project is active (not paused)",
		)
	case Supabase.IsStatus(err, http.StatusUnauthorized), Supabase.IsStatus(err, http.StatusForbidden):
		hints = append(hints,
			"Check that SUPABASE_SERVICE_ROLE_KEY is the service_role key (not anon key)",
		)
	default:
		hints = append(hints,
			"Check internet connection",
			"Verify "+p.EnvFile+" contains SUPABASE_URL=https://your-project.supabase.co and SUPABASE_SERVICE_ROLE_KEY=your-service-role-key",
			"Current SUPABASE_URL: "+url,
			"Verify your Supabase project is active (not paused)",
			"Check that SUPABASE_SERVICE_ROLE_KEY is the service_role key (not anon key)",
		)
	}
	return hints
}

// Report writes the error and its hints in the CLIs' stderr format.
func Report(w io.Writer, err error, p Config.Provisioning) {
	fmt.Fprintf(w, "\nError: %v\n", err)
	var netErr *Supabase.NetworkError
	if errors.As(err, &netErr) && netErr.Err != nil {
		fmt.Fprintf(w, "  Cause: %v\n", netErr.Err)
	}
	fmt.Fprintf(w, "\nTroubleshooting:\n")
	for i, hint := range Hints(err, p) {
		fmt.Fprintf(w, "  %d) %s\n", i+1, hint)
	}
}
