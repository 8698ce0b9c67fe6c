package Store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ClientMax/Models"
	"ClientMax/Realtime"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const DailyWorkTable = "today_work"

type DailyWorkStore struct {
	DB    *gorm.DB
	Feed  Publisher
	Clock func() time.Time
}

// DailyWorkFilter narrows List. A nil Date lists every day.
type DailyWorkFilter struct {
	Date       *datatypes.Date
	AssignedTo string
}

func (s *DailyWorkStore) query(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx).
		Preload("AssignedToEmployee").
		Preload("AssignedByEmployee")
}

// List returns items newest first.
func (s *DailyWorkStore) List(ctx context.Context, filter DailyWorkFilter) ([]Models.DailyWorkItem, error) {
	q := s.query(ctx)
	if filter.Date != nil {
		q = q.Where("work_date = ?", *filter.Date)
	}
	if filter.AssignedTo != "" {
		q = q.Where("assigned_to = ?", filter.AssignedTo)
	}

	var items []Models.DailyWorkItem
	if err := q.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list today's work: %w", err)
	}
	return items, nil
}

func (s *DailyWorkStore) Get(ctx context.Context, id string) (Models.DailyWorkItem, error) {
	var item Models.DailyWorkItem
	if err := s.query(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return Models.DailyWorkItem{}, notFound("today's work item", id, err)
	}
	return item, nil
}

func (s *DailyWorkStore) Insert(ctx context.Context, in Models.NewDailyWork) (Models.DailyWorkItem, error) {
	text := strings.TrimSpace(in.WorkText)
	if text == "" {
		return Models.DailyWorkItem{}, Models.Invalid("work_text", "is required")
	}
	if time.Time(in.WorkDate).IsZero() {
		return Models.DailyWorkItem{}, Models.Invalid("work_date", "is required")
	}

	db := s.DB.WithContext(ctx)
	for _, ref := range [][2]string{{"assigned_to", in.AssignedTo}, {"assigned_by", in.AssignedBy}} {
		ok, err := employeeExists(db, ref[1])
		if err != nil {
			return Models.DailyWorkItem{}, err
		}
		if !ok {
			return Models.DailyWorkItem{}, Models.Invalid(ref[0], "employee %q does not exist", ref[1])
		}
	}

	now := nowFrom(s.Clock)
	item := Models.DailyWorkItem{
		WorkText:   text,
		AssignedTo: in.AssignedTo,
		AssignedBy: in.AssignedBy,
		WorkDate:   in.WorkDate,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := db.Omit("AssignedToEmployee", "AssignedByEmployee").Create(&item).Error; err != nil {
		return Models.DailyWorkItem{}, &Models.ValidationError{Message: err.Error()}
	}

	created, err := s.Get(ctx, item.ID)
	if err != nil {
		return Models.DailyWorkItem{}, err
	}
	s.publish(Realtime.Insert, created)
	return created, nil
}

// UpdateText changes work_text, the only mutable column.
func (s *DailyWorkStore) UpdateText(ctx context.Context, id, text string) (Models.DailyWorkItem, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Models.DailyWorkItem{}, Models.Invalid("work_text", "is required")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return Models.DailyWorkItem{}, err
	}

	err := s.DB.WithContext(ctx).Model(&Models.DailyWorkItem{ID: id}).Updates(map[string]interface{}{
		"work_text":  text,
		"updated_at": nowFrom(s.Clock),
	}).Error
	if err != nil {
		return Models.DailyWorkItem{}, fmt.Errorf("failed to update today's work %s: %w", id, err)
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return Models.DailyWorkItem{}, err
	}
	s.publish(Realtime.Update, updated)
	return updated, nil
}

func (s *DailyWorkStore) Delete(ctx context.Context, id string) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	result := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&Models.DailyWorkItem{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete today's work %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("today's work item %s: %w", id, Models.ErrNotFound)
	}
	s.publish(Realtime.Delete, current)
	return nil
}

func (s *DailyWorkStore) publish(t Realtime.EventType, item Models.DailyWorkItem) {
	if s.Feed == nil {
		return
	}
	s.Feed.Publish(Realtime.Event{
		Type:   t,
		Table:  DailyWorkTable,
		Record: item,
		Columns: map[string]string{
			"id":          item.ID,
			"assigned_to": item.AssignedTo,
			"work_date":   item.DateKey(),
		},
	})
}
