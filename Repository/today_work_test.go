package Repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"ClientMax/Models"
	"ClientMax/Store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// leakySource ignores the filter and returns everything it holds, to prove
// the repository filters on its own.
type leakySource struct {
	items []Models.DailyWorkItem
}

func (s *leakySource) List(ctx context.Context, filter Store.DailyWorkFilter) ([]Models.DailyWorkItem, error) {
	return s.items, nil
}

func (s *leakySource) Get(ctx context.Context, id string) (Models.DailyWorkItem, error) {
	for _, item := range s.items {
		if item.ID == id {
			return item, nil
		}
	}
	return Models.DailyWorkItem{}, Models.ErrNotFound
}

func (s *leakySource) Insert(ctx context.Context, in Models.NewDailyWork) (Models.DailyWorkItem, error) {
	return Models.DailyWorkItem{}, fmt.Errorf("not supported")
}

func (s *leakySource) UpdateText(ctx context.Context, id, text string) (Models.DailyWorkItem, error) {
	return Models.DailyWorkItem{}, fmt.Errorf("not supported")
}

func (s *leakySource) Delete(ctx context.Context, id string) error {
	return fmt.Errorf("not supported")
}

func TestDailyWorkNeverShowsOtherAssignees(t *testing.T) {
	f := setup(t)
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	today := Models.CalendarDate(now)
	yesterday := Models.CalendarDate(now.AddDate(0, 0, -1))

	var items []Models.DailyWorkItem
	for i, assignee := range []string{"emp-1", "emp-2", "ceo-1", "emp-1", "emp-2", "emp-1"} {
		date := today
		if i == 5 {
			date = yesterday
		}
		items = append(items, Models.DailyWorkItem{
			ID:         fmt.Sprintf("w-%d", i),
			WorkText:   "task",
			AssignedTo: assignee,
			AssignedBy: "ceo-1",
			WorkDate:   date,
			CreatedAt:  now.Add(time.Duration(i) * time.Minute),
		})
	}
	source := &leakySource{items: items}

	repo, err := OpenDailyWork(context.Background(), source, f.feed, f.emp, Options{Clock: func() time.Time { return now }})
	require.NoError(t, err)
	defer repo.Close()

	got := repo.Items()
	require.Len(t, got, 2)
	for _, item := range got {
		assert.Equal(t, "emp-1", item.AssignedTo)
		assert.Equal(t, "2025-01-15", item.DateKey())
	}
	assert.Equal(t, "w-3", got[0].ID)

	ceoRepo, err := OpenDailyWork(context.Background(), source, f.feed, f.ceo, Options{Clock: func() time.Time { return now }})
	require.NoError(t, err)
	defer ceoRepo.Close()
	assert.Len(t, ceoRepo.Items(), 5)
}

func TestDailyWorkLifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	opts := Options{Clock: func() time.Time { return now }}

	ceoRepo, err := OpenDailyWork(ctx, f.stores.DailyWork, f.feed, f.ceo, opts)
	require.NoError(t, err)
	defer ceoRepo.Close()
	assert.Equal(t, "2025-01-15", time.Time(ceoRepo.Today()).Format(Models.DateLayout))

	item, err := ceoRepo.Create(ctx, "emp-1", "Reply to buyer messages")
	require.NoError(t, err)
	assert.Equal(t, "ceo-1", item.AssignedBy)
	assert.Equal(t, "Sara", item.AssignedToName)
	require.Len(t, ceoRepo.Items(), 1)

	_, err = ceoRepo.Create(ctx, "emp-1", "   ")
	assert.True(t, Models.IsValidation(err))

	empRepo, err := OpenDailyWork(ctx, f.stores.DailyWork, f.feed, f.emp, opts)
	require.NoError(t, err)
	defer empRepo.Close()
	require.Len(t, empRepo.Items(), 1)

	_, err = empRepo.Create(ctx, "emp-1", "self-assigned")
	assert.ErrorIs(t, err, Models.ErrForbidden)

	updated, err := empRepo.UpdateText(ctx, item.ID, "  Reply to all buyer messages ")
	require.NoError(t, err)
	assert.Equal(t, "Reply to all buyer messages", updated.WorkText)

	otherRepo, err := OpenDailyWork(ctx, f.stores.DailyWork, f.feed, f.other, opts)
	require.NoError(t, err)
	defer otherRepo.Close()
	assert.Empty(t, otherRepo.Items())
	_, err = otherRepo.UpdateText(ctx, item.ID, "hijack")
	assert.ErrorIs(t, err, Models.ErrForbidden)

	assert.ErrorIs(t, empRepo.Delete(ctx, item.ID), Models.ErrForbidden)
	require.NoError(t, ceoRepo.Delete(ctx, item.ID))
	assert.Empty(t, ceoRepo.Items())

	require.Eventually(t, func() bool { return len(empRepo.Items()) == 0 }, 2*time.Second, 10*time.Millisecond)
}
