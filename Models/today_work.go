package Models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DateLayout is the calendar-date format used for work_date.
const DateLayout = "2006-01-02"

// DailyWorkItem is one line of work assigned for a single calendar day.
// AssignedTo and WorkDate never change after creation.
type DailyWorkItem struct {
	ID         string         `json:"id" gorm:"primaryKey;size:36"`
	WorkText   string         `json:"work_text" gorm:"type:text;not null"`
	AssignedTo string         `json:"assigned_to" gorm:"size:36;not null;index"`
	AssignedBy string         `json:"assigned_by" gorm:"size:36;not null"`
	WorkDate   datatypes.Date `json:"work_date" gorm:"not null;index"`
	CreatedAt  time.Time      `json:"created_at" gorm:"index"`
	UpdatedAt  time.Time      `json:"updated_at"`

	AssignedToEmployee *EmployeeRef `json:"assigned_to_employee,omitempty" gorm:"foreignKey:AssignedTo;references:ID;constraint:OnDelete:RESTRICT"`
	AssignedByEmployee *EmployeeRef `json:"assigned_by_employee,omitempty" gorm:"foreignKey:AssignedBy;references:ID;constraint:OnDelete:RESTRICT"`

	AssignedToName string `json:"assigned_to_name" gorm:"-"`
	AssignedByName string `json:"assigned_by_name" gorm:"-"`
}

func (DailyWorkItem) TableName() string {
	return "today_work"
}

func (w *DailyWorkItem) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}

// AfterFind fills the display names from the joined employees
func (w *DailyWorkItem) AfterFind(tx *gorm.DB) error {
	w.FillNames()
	return nil
}

// FillNames sets the display names, defaulting to "Unknown" for the assignee
// and "CEO" for the assigner when the join is missing.
func (w *DailyWorkItem) FillNames() {
	w.AssignedToName = "Unknown"
	if w.AssignedToEmployee != nil && w.AssignedToEmployee.Name != "" {
		w.AssignedToName = w.AssignedToEmployee.Name
	}
	w.AssignedByName = "CEO"
	if w.AssignedByEmployee != nil && w.AssignedByEmployee.Name != "" {
		w.AssignedByName = w.AssignedByEmployee.Name
	}
}

// DateKey returns work_date as yyyy-mm-dd.
func (w DailyWorkItem) DateKey() string {
	return time.Time(w.WorkDate).Format(DateLayout)
}

// CalendarDate truncates t to its calendar day in t's location and re-anchors
// it at UTC midnight so that equal days compare equal in every driver.
func CalendarDate(t time.Time) datatypes.Date {
	y, m, d := t.Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// ParseCalendarDate parses a yyyy-mm-dd string.
func ParseCalendarDate(s string) (datatypes.Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return datatypes.Date{}, err
	}
	return CalendarDate(t), nil
}

type NewDailyWork struct {
	WorkText   string
	AssignedTo string
	AssignedBy string
	WorkDate   datatypes.Date
}
