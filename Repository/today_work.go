package Repository

import (
	"context"
	"fmt"
	"time"

	"ClientMax/Access"
	"ClientMax/Models"
	"ClientMax/Realtime"
	"ClientMax/Store"

	"gorm.io/datatypes"
)

// DailyWorkRepository is the view of one calendar day's work. The day is
// fixed when the repository is opened.
type DailyWorkRepository struct {
	source  DailyWorkSource
	session Access.Session
	today   datatypes.Date
	sync    *syncer[Models.DailyWorkItem]
}

// OpenDailyWork subscribes to today's work changes and loads the initial
// list. Non-privileged sessions only ever see their own items.
func OpenDailyWork(ctx context.Context, source DailyWorkSource, feed ChangeFeed, session Access.Session, opts Options) (*DailyWorkRepository, error) {
	today := Models.CalendarDate(opts.now())
	filter := Store.DailyWorkFilter{Date: &today}
	if !session.Privileged {
		filter.AssignedTo = session.EmployeeID()
	}

	dateKey := time.Time(today).Format(Models.DateLayout)
	sub, err := feed.Subscribe(Realtime.Spec{
		Event:  Realtime.Any,
		Table:  Store.DailyWorkTable,
		Filter: "work_date=eq." + dateKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to today's work: %w", err)
	}

	keep := func(w Models.DailyWorkItem) bool {
		return w.DateKey() == dateKey && session.CanViewDailyWork(w)
	}
	c := newCache(
		func(w Models.DailyWorkItem) string { return w.ID },
		func(w Models.DailyWorkItem) time.Time { return w.CreatedAt },
		keep,
	)

	r := &DailyWorkRepository{source: source, session: session, today: today}
	r.sync, err = startSyncer(ctx, "today_work", c, sub, func(ctx context.Context) ([]Models.DailyWorkItem, error) {
		return source.List(ctx, filter)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Today returns the calendar day this repository is scoped to.
func (r *DailyWorkRepository) Today() datatypes.Date {
	return r.today
}

// Create adds an item for today assigned to assignedTo.
func (r *DailyWorkRepository) Create(ctx context.Context, assignedTo, text string) (Models.DailyWorkItem, error) {
	if !r.session.CanManageDailyWork() {
		return Models.DailyWorkItem{}, Models.ErrForbidden
	}
	created, err := r.source.Insert(ctx, Models.NewDailyWork{
		WorkText:   text,
		AssignedTo: assignedTo,
		AssignedBy: r.session.EmployeeID(),
		WorkDate:   r.today,
	})
	if err != nil {
		return Models.DailyWorkItem{}, err
	}
	r.sync.cache.upsert(created)
	r.sync.notify()
	return created, nil
}

// UpdateText changes work_text, the only editable field.
func (r *DailyWorkRepository) UpdateText(ctx context.Context, id, text string) (Models.DailyWorkItem, error) {
	current, err := r.source.Get(ctx, id)
	if err != nil {
		return Models.DailyWorkItem{}, err
	}
	if !r.session.CanEditDailyWork(current) {
		return Models.DailyWorkItem{}, Models.ErrForbidden
	}
	updated, err := r.source.UpdateText(ctx, id, text)
	if err != nil {
		return Models.DailyWorkItem{}, err
	}
	r.sync.cache.upsert(updated)
	r.sync.notify()
	return updated, nil
}

func (r *DailyWorkRepository) Delete(ctx context.Context, id string) error {
	if !r.session.CanManageDailyWork() {
		return Models.ErrForbidden
	}
	if err := r.source.Delete(ctx, id); err != nil {
		return err
	}
	r.sync.cache.remove(id)
	r.sync.notify()
	return nil
}

// Items returns today's visible items, newest first.
func (r *DailyWorkRepository) Items() []Models.DailyWorkItem {
	return r.sync.cache.snapshot()
}

func (r *DailyWorkRepository) Loading() bool {
	return r.sync.loading.Load()
}

func (r *DailyWorkRepository) Err() error {
	return r.sync.err()
}

func (r *DailyWorkRepository) Changes() <-chan []Models.DailyWorkItem {
	return r.sync.changes
}

func (r *DailyWorkRepository) Refetch(ctx context.Context) error {
	return r.sync.refetch(ctx)
}

func (r *DailyWorkRepository) Close() {
	r.sync.close()
}
