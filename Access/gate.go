// Package Access decides what an employee may do: the privileged-identity
// check, per-operation permissions and the status transitions offered to
// operators.
package Access

import (
	"strings"

	"ClientMax/Models"
)

// Gate holds the configured privileged identity.
type Gate struct {
	Role         string
	Emails       map[string]struct{}
	RequireEmail bool
}

// NewGate builds a gate for role and emails. Blank entries are ignored; the
// remaining values are compared exactly.
func NewGate(role string, emails []string, requireEmail bool) *Gate {
	g := &Gate{Role: role, Emails: make(map[string]struct{}, len(emails)), RequireEmail: requireEmail}
	for _, e := range emails {
		if strings.TrimSpace(e) == "" {
			continue
		}
		g.Emails[e] = struct{}{}
	}
	return g
}

// IsPrivileged requires both the role and, unless disabled, one of the
// configured emails. Both comparisons are case-sensitive.
func (g *Gate) IsPrivileged(e Models.Employee) bool {
	if g == nil || g.Role == "" || e.Role != g.Role {
		return false
	}
	if !g.RequireEmail {
		return true
	}
	_, ok := g.Emails[e.Email]
	return ok
}

// NewSession resolves the employee's privilege once.
func (g *Gate) NewSession(e Models.Employee) Session {
	return Session{Employee: e, Privileged: g.IsPrivileged(e)}
}

// Session is the acting employee for a single request or repository.
type Session struct {
	Employee   Models.Employee
	Privileged bool
}

func (s Session) EmployeeID() string {
	return s.Employee.ID
}

func (s Session) CanCreateAssignment() bool {
	return s.Privileged
}

func (s Session) CanDeleteAssignment() bool {
	return s.Privileged
}

// CanViewAssignment allows the privileged session and both parties of the assignment.
func (s Session) CanViewAssignment(a Models.WorkAssignment) bool {
	return s.Privileged || a.AssignedTo == s.Employee.ID || a.AssignedBy == s.Employee.ID
}

// CanUpdateAssignment allows any change for the privileged session. The
// assignee may only touch status, completed_at and notes.
func (s Session) CanUpdateAssignment(a Models.WorkAssignment, patch Models.AssignmentPatch) bool {
	if s.Privileged {
		return true
	}
	return a.AssignedTo == s.Employee.ID && patch.StatusOnly()
}

func (s Session) CanManageDailyWork() bool {
	return s.Privileged
}

// CanEditDailyWork allows the privileged session or the assignee.
func (s Session) CanEditDailyWork(w Models.DailyWorkItem) bool {
	return s.Privileged || w.AssignedTo == s.Employee.ID
}

// CanViewDailyWork mirrors CanEditDailyWork; the privileged viewer sees everything.
func (s Session) CanViewDailyWork(w Models.DailyWorkItem) bool {
	return s.CanEditDailyWork(w)
}

// CanEditEmployee allows the privileged session or the employee themself.
func (s Session) CanEditEmployee(id string) bool {
	return s.Privileged || s.Employee.ID == id
}
