package Repository

import (
	"context"
	"fmt"
	"time"

	"ClientMax/Access"
	"ClientMax/Models"
	"ClientMax/Realtime"
	"ClientMax/Store"
)

// Summary is the set of counts shown above the assignment list.
type Summary struct {
	Total      int `json:"total"`
	DueToday   int `json:"due_today"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Cancelled  int `json:"cancelled"`
}

// Summarize counts items by status and due date.
func Summarize(items []Models.WorkAssignment, today time.Time) Summary {
	s := Summary{Total: len(items)}
	for _, a := range items {
		switch a.Status {
		case Models.StatusPending:
			s.Pending++
		case Models.StatusInProgress:
			s.InProgress++
		case Models.StatusCompleted:
			s.Completed++
		case Models.StatusCancelled:
			s.Cancelled++
		}
		if a.DueOn(today) {
			s.DueToday++
		}
	}
	return s
}

// ActiveOnly keeps pending and in-progress assignments.
func ActiveOnly(items []Models.WorkAssignment) []Models.WorkAssignment {
	out := make([]Models.WorkAssignment, 0, len(items))
	for _, a := range items {
		if a.Status == Models.StatusPending || a.Status == Models.StatusInProgress {
			out = append(out, a)
		}
	}
	return out
}

// Overdue keeps active assignments due before day's calendar date.
func Overdue(items []Models.WorkAssignment, day time.Time) []Models.WorkAssignment {
	today := day.Format(Models.DateLayout)
	out := make([]Models.WorkAssignment, 0)
	for _, a := range ActiveOnly(items) {
		if a.DueDate != nil && time.Time(*a.DueDate).Format(Models.DateLayout) < today {
			out = append(out, a)
		}
	}
	return out
}

type AssignmentRepository struct {
	source  AssignmentSource
	session Access.Session
	clock   func() time.Time
	sync    *syncer[Models.WorkAssignment]
}

// OpenAssignments subscribes to assignment changes and loads the initial
// list. The caller must Close the repository.
func OpenAssignments(ctx context.Context, source AssignmentSource, feed ChangeFeed, session Access.Session, opts Options) (*AssignmentRepository, error) {
	filter := Store.AssignmentFilter{AssignedTo: opts.AssignedTo}
	if !session.Privileged {
		filter.AssignedTo = session.EmployeeID()
	}

	sub, err := feed.Subscribe(Realtime.Spec{Event: Realtime.Any, Table: Store.AssignmentsTable})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to assignments: %w", err)
	}

	keep := func(a Models.WorkAssignment) bool {
		return filter.AssignedTo == "" || a.AssignedTo == filter.AssignedTo
	}
	c := newCache(
		func(a Models.WorkAssignment) string { return a.ID },
		func(a Models.WorkAssignment) time.Time { return a.CreatedAt },
		keep,
	)

	r := &AssignmentRepository{source: source, session: session, clock: opts.now}
	r.sync, err = startSyncer(ctx, "assignments", c, sub, func(ctx context.Context) ([]Models.WorkAssignment, error) {
		return source.List(ctx, filter)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Create stores a new assignment assigned by the session's employee when
// AssignedBy is empty.
func (r *AssignmentRepository) Create(ctx context.Context, in Models.NewAssignment) (Models.WorkAssignment, error) {
	if !r.session.CanCreateAssignment() {
		return Models.WorkAssignment{}, Models.ErrForbidden
	}
	if in.AssignedBy == "" {
		in.AssignedBy = r.session.EmployeeID()
	}
	created, err := r.source.Insert(ctx, in)
	if err != nil {
		return Models.WorkAssignment{}, err
	}
	r.sync.cache.upsert(created)
	r.sync.notify()
	return created, nil
}

// Update applies patch as given; setting status to completed does not set
// completed_at.
func (r *AssignmentRepository) Update(ctx context.Context, id string, patch Models.AssignmentPatch) (Models.WorkAssignment, error) {
	current, err := r.source.Get(ctx, id)
	if err != nil {
		return Models.WorkAssignment{}, err
	}
	if !r.session.CanUpdateAssignment(current, patch) {
		return Models.WorkAssignment{}, Models.ErrForbidden
	}
	updated, err := r.source.Update(ctx, id, patch)
	if err != nil {
		return Models.WorkAssignment{}, err
	}
	r.sync.cache.upsert(updated)
	r.sync.notify()
	return updated, nil
}

// StatusPatch builds the operator status change: moving to completed also
// stamps completed_at with now.
func StatusPatch(status Models.AssignmentStatus, now time.Time) (Models.AssignmentPatch, error) {
	if !status.Valid() {
		return Models.AssignmentPatch{}, Models.Invalid("status", "unknown status %q", status)
	}
	patch := Models.AssignmentPatch{Status: &status}
	if status == Models.StatusCompleted {
		patch.CompletedAt = &now
	}
	return patch, nil
}

// ChangeStatus applies StatusPatch using the repository clock.
func (r *AssignmentRepository) ChangeStatus(ctx context.Context, id string, status Models.AssignmentStatus) (Models.WorkAssignment, error) {
	patch, err := StatusPatch(status, r.clock())
	if err != nil {
		return Models.WorkAssignment{}, err
	}
	return r.Update(ctx, id, patch)
}

// Delete removes the assignment. On failure the list is unchanged.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	if !r.session.CanDeleteAssignment() {
		return Models.ErrForbidden
	}
	if err := r.source.Delete(ctx, id); err != nil {
		return err
	}
	r.sync.cache.remove(id)
	r.sync.notify()
	return nil
}

// Assignments returns the current list, newest first.
func (r *AssignmentRepository) Assignments() []Models.WorkAssignment {
	return r.sync.cache.snapshot()
}

// Find returns the cached assignment with id.
func (r *AssignmentRepository) Find(id string) (Models.WorkAssignment, bool) {
	return r.sync.cache.get(id)
}

// Active returns pending and in-progress assignments.
func (r *AssignmentRepository) Active() []Models.WorkAssignment {
	return ActiveOnly(r.Assignments())
}

func (r *AssignmentRepository) Summary() Summary {
	return Summarize(r.Assignments(), r.clock())
}

// Loading is true only during the initial fetch.
func (r *AssignmentRepository) Loading() bool {
	return r.sync.loading.Load()
}

// Err returns the error of the most recent fetch, if any.
func (r *AssignmentRepository) Err() error {
	return r.sync.err()
}

// Changes delivers a snapshot after every change. Only the latest unread
// snapshot is kept.
func (r *AssignmentRepository) Changes() <-chan []Models.WorkAssignment {
	return r.sync.changes
}

// Refetch re-lists from the store.
func (r *AssignmentRepository) Refetch(ctx context.Context) error {
	return r.sync.refetch(ctx)
}

// Close releases the subscription and stops the sync loop.
func (r *AssignmentRepository) Close() {
	r.sync.close()
}
