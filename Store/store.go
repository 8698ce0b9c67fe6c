// Package Store is the relational data store: GORM-backed row operations over
// employees, clients, assignments and today's work. Every successful write is
// published to the change feed.
package Store

import (
	"errors"
	"fmt"
	"time"

	"ClientMax/Models"
	"ClientMax/Realtime"

	"gorm.io/gorm"
)

// Publisher receives change events after successful writes.
type Publisher interface {
	Publish(e Realtime.Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(Realtime.Event) {}

// Stores bundles the per-table stores over one connection.
type Stores struct {
	Employees   *EmployeeStore
	Clients     *ClientStore
	Assignments *AssignmentStore
	DailyWork   *DailyWorkStore
}

// New creates every store on db. feed may be nil.
func New(db *gorm.DB, feed Publisher) *Stores {
	if feed == nil {
		feed = noopPublisher{}
	}
	return &Stores{
		Employees:   &EmployeeStore{DB: db, Feed: feed, Clock: time.Now},
		Clients:     &ClientStore{DB: db},
		Assignments: &AssignmentStore{DB: db, Feed: feed, Clock: time.Now},
		DailyWork:   &DailyWorkStore{DB: db, Feed: feed, Clock: time.Now},
	}
}

// SetClock replaces the clock used for created_at/updated_at.
func (s *Stores) SetClock(clock func() time.Time) {
	s.Employees.Clock = clock
	s.Assignments.Clock = clock
	s.DailyWork.Clock = clock
}

func notFound(kind, id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", kind, id, Models.ErrNotFound)
	}
	return err
}

func employeeExists(tx *gorm.DB, id string) (bool, error) {
	var count int64
	if err := tx.Model(&Models.Employee{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func nowFrom(clock func() time.Time) time.Time {
	if clock == nil {
		return time.Now()
	}
	return clock()
}
