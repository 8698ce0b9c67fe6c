package Models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type AssignmentStatus string

const (
	StatusPending    AssignmentStatus = "pending"
	StatusInProgress AssignmentStatus = "in_progress"
	StatusCompleted  AssignmentStatus = "completed"
	StatusCancelled  AssignmentStatus = "cancelled"
)

func (s AssignmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is offered from s.
func (s AssignmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// WorkAssignment is a piece of work the CEO hands to an employee.
type WorkAssignment struct {
	ID          string           `json:"id" gorm:"primaryKey;size:36"`
	Title       string           `json:"title" gorm:"size:500;not null"`
	Description *string          `json:"description" gorm:"type:text"`
	AssignedTo  string           `json:"assigned_to" gorm:"size:36;not null;index"`
	AssignedBy  string           `json:"assigned_by" gorm:"size:36;not null;index"`
	Priority    Priority         `json:"priority" gorm:"size:16;not null;default:medium"`
	Status      AssignmentStatus `json:"status" gorm:"size:16;not null;default:pending;index"`
	DueDate     *datatypes.Date  `json:"due_date"`
	CompletedAt *time.Time       `json:"completed_at"`
	Notes       *string          `json:"notes" gorm:"type:text"`
	CreatedAt   time.Time        `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time        `json:"updated_at"`

	// Joined data
	AssignedToEmployee *EmployeeRef `json:"assigned_to_employee,omitempty" gorm:"foreignKey:AssignedTo;references:ID;constraint:OnDelete:RESTRICT"`
	AssignedByEmployee *EmployeeRef `json:"assigned_by_employee,omitempty" gorm:"foreignKey:AssignedBy;references:ID;constraint:OnDelete:RESTRICT"`
}

func (WorkAssignment) TableName() string {
	return "ceo_work_assignments"
}

func (a *WorkAssignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// DueOn reports whether the assignment is due on the given calendar day.
func (a WorkAssignment) DueOn(day time.Time) bool {
	if a.DueDate == nil {
		return false
	}
	y1, m1, d1 := time.Time(*a.DueDate).Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// NewAssignment is a WorkAssignment minus the store-managed fields
// (id, created_at, updated_at, completed_at).
type NewAssignment struct {
	Title       string
	Description *string
	AssignedTo  string
	AssignedBy  string
	Priority    Priority
	Status      AssignmentStatus
	DueDate     *datatypes.Date
	Notes       *string
}

// AssignmentPatch is a partial update; nil fields are left untouched.
// ClearCompletedAt explicitly nulls completed_at.
type AssignmentPatch struct {
	Title            *string
	Description      *string
	AssignedTo       *string
	Priority         *Priority
	Status           *AssignmentStatus
	DueDate          *datatypes.Date
	CompletedAt      *time.Time
	ClearCompletedAt bool
	Notes            *string
}

// Empty reports whether the patch changes nothing.
func (p AssignmentPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.AssignedTo == nil &&
		p.Priority == nil && p.Status == nil && p.DueDate == nil &&
		p.CompletedAt == nil && !p.ClearCompletedAt && p.Notes == nil
}

// StatusOnly reports whether the patch touches nothing beyond the fields an
// assignee may change: status, completed_at and notes.
func (p AssignmentPatch) StatusOnly() bool {
	return p.Title == nil && p.Description == nil && p.AssignedTo == nil &&
		p.Priority == nil && p.DueDate == nil
}
