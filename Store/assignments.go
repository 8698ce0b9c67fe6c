package Store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ClientMax/Models"
	"ClientMax/Realtime"

	"gorm.io/gorm"
)

const AssignmentsTable = "ceo_work_assignments"

type AssignmentStore struct {
	DB    *gorm.DB
	Feed  Publisher
	Clock func() time.Time
}

// AssignmentFilter narrows List. Zero values do not filter.
type AssignmentFilter struct {
	AssignedTo string
	Statuses   []Models.AssignmentStatus
}

func (s *AssignmentStore) query(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx).
		Preload("AssignedToEmployee").
		Preload("AssignedByEmployee")
}

// List returns assignments newest first.
func (s *AssignmentStore) List(ctx context.Context, filter AssignmentFilter) ([]Models.WorkAssignment, error) {
	q := s.query(ctx)
	if filter.AssignedTo != "" {
		q = q.Where("assigned_to = ?", filter.AssignedTo)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}

	var assignments []Models.WorkAssignment
	if err := q.Order("created_at DESC").Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, nil
}

func (s *AssignmentStore) Get(ctx context.Context, id string) (Models.WorkAssignment, error) {
	var a Models.WorkAssignment
	if err := s.query(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return Models.WorkAssignment{}, notFound("assignment", id, err)
	}
	return a, nil
}

// Insert validates and stores a new assignment. Empty priority and status
// default to medium and pending.
func (s *AssignmentStore) Insert(ctx context.Context, in Models.NewAssignment) (Models.WorkAssignment, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Models.WorkAssignment{}, Models.Invalid("title", "is required")
	}
	if in.Priority == "" {
		in.Priority = Models.PriorityMedium
	}
	if !in.Priority.Valid() {
		return Models.WorkAssignment{}, Models.Invalid("priority", "unknown priority %q", in.Priority)
	}
	if in.Status == "" {
		in.Status = Models.StatusPending
	}
	if !in.Status.Valid() {
		return Models.WorkAssignment{}, Models.Invalid("status", "unknown status %q", in.Status)
	}

	db := s.DB.WithContext(ctx)
	for _, ref := range [][2]string{{"assigned_to", in.AssignedTo}, {"assigned_by", in.AssignedBy}} {
		ok, err := employeeExists(db, ref[1])
		if err != nil {
			return Models.WorkAssignment{}, err
		}
		if !ok {
			return Models.WorkAssignment{}, Models.Invalid(ref[0], "employee %q does not exist", ref[1])
		}
	}

	now := nowFrom(s.Clock)
	a := Models.WorkAssignment{
		Title:       title,
		Description: in.Description,
		AssignedTo:  in.AssignedTo,
		AssignedBy:  in.AssignedBy,
		Priority:    in.Priority,
		Status:      in.Status,
		DueDate:     in.DueDate,
		Notes:       in.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.Omit("AssignedToEmployee", "AssignedByEmployee").Create(&a).Error; err != nil {
		return Models.WorkAssignment{}, &Models.ValidationError{Message: err.Error()}
	}

	created, err := s.Get(ctx, a.ID)
	if err != nil {
		return Models.WorkAssignment{}, err
	}
	s.publish(Realtime.Insert, created)
	return created, nil
}

// Update applies patch. completed_at is written only when the patch carries it.
func (s *AssignmentStore) Update(ctx context.Context, id string, patch Models.AssignmentPatch) (Models.WorkAssignment, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return Models.WorkAssignment{}, err
	}
	if patch.Empty() {
		return current, nil
	}

	db := s.DB.WithContext(ctx)
	values := map[string]interface{}{}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return Models.WorkAssignment{}, Models.Invalid("title", "is required")
		}
		values["title"] = title
	}
	if patch.Description != nil {
		values["description"] = *patch.Description
	}
	if patch.AssignedTo != nil {
		ok, err := employeeExists(db, *patch.AssignedTo)
		if err != nil {
			return Models.WorkAssignment{}, err
		}
		if !ok {
			return Models.WorkAssignment{}, Models.Invalid("assigned_to", "employee %q does not exist", *patch.AssignedTo)
		}
		values["assigned_to"] = *patch.AssignedTo
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return Models.WorkAssignment{}, Models.Invalid("priority", "unknown priority %q", *patch.Priority)
		}
		values["priority"] = *patch.Priority
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return Models.WorkAssignment{}, Models.Invalid("status", "unknown status %q", *patch.Status)
		}
		values["status"] = *patch.Status
	}
	if patch.DueDate != nil {
		values["due_date"] = *patch.DueDate
	}
	if patch.CompletedAt != nil {
		values["completed_at"] = *patch.CompletedAt
	} else if patch.ClearCompletedAt {
		values["completed_at"] = nil
	}
	if patch.Notes != nil {
		values["notes"] = *patch.Notes
	}
	values["updated_at"] = nowFrom(s.Clock)

	if err := db.Model(&Models.WorkAssignment{ID: current.ID}).Updates(values).Error; err != nil {
		return Models.WorkAssignment{}, &Models.ValidationError{Message: err.Error()}
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return Models.WorkAssignment{}, err
	}
	s.publish(Realtime.Update, updated)
	return updated, nil
}

func (s *AssignmentStore) Delete(ctx context.Context, id string) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	result := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&Models.WorkAssignment{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete assignment %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("assignment %s: %w", id, Models.ErrNotFound)
	}
	s.publish(Realtime.Delete, current)
	return nil
}

func (s *AssignmentStore) publish(t Realtime.EventType, a Models.WorkAssignment) {
	if s.Feed == nil {
		return
	}
	s.Feed.Publish(Realtime.Event{
		Type:   t,
		Table:  AssignmentsTable,
		Record: a,
		Columns: map[string]string{
			"id":          a.ID,
			"assigned_to": a.AssignedTo,
			"assigned_by": a.AssignedBy,
			"status":      string(a.Status),
		},
	})
}
