// Package Repository keeps an in-memory, change-feed-synchronized view of
// assignments and today's work for one session. A repository subscribes when
// opened, re-lists on every change and must be closed when no longer needed.
package Repository

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"ClientMax/Models"
	"ClientMax/Realtime"
	"ClientMax/Store"
)

// AssignmentSource is the store the assignment repository reads and writes.
type AssignmentSource interface {
	List(ctx context.Context, filter Store.AssignmentFilter) ([]Models.WorkAssignment, error)
	Get(ctx context.Context, id string) (Models.WorkAssignment, error)
	Insert(ctx context.Context, in Models.NewAssignment) (Models.WorkAssignment, error)
	Update(ctx context.Context, id string, patch Models.AssignmentPatch) (Models.WorkAssignment, error)
	Delete(ctx context.Context, id string) error
}

// DailyWorkSource is the store the daily-work repository reads and writes.
type DailyWorkSource interface {
	List(ctx context.Context, filter Store.DailyWorkFilter) ([]Models.DailyWorkItem, error)
	Get(ctx context.Context, id string) (Models.DailyWorkItem, error)
	Insert(ctx context.Context, in Models.NewDailyWork) (Models.DailyWorkItem, error)
	UpdateText(ctx context.Context, id, text string) (Models.DailyWorkItem, error)
	Delete(ctx context.Context, id string) error
}

// ChangeFeed hands out change subscriptions.
type ChangeFeed interface {
	Subscribe(spec Realtime.Spec) (*Realtime.Subscription, error)
}

// Options tune a repository. The zero value lists everything the session may
// see using the wall clock.
type Options struct {
	// AssignedTo narrows assignment lists for privileged sessions.
	// Non-privileged sessions are always narrowed to themselves.
	AssignedTo string
	Clock      func() time.Time
}

func (o Options) now() time.Time {
	if o.Clock == nil {
		return time.Now()
	}
	return o.Clock()
}

// syncer is the subscription loop shared by both repositories.
type syncer[T any] struct {
	name    string
	cache   *cache[T]
	fetch   func(ctx context.Context) ([]T, error)
	sub     *Realtime.Subscription
	changes chan []T

	loading atomic.Bool
	fetches atomic.Uint64
	errMu   sync.Mutex
	lastErr error

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func startSyncer[T any](ctx context.Context, name string, c *cache[T], sub *Realtime.Subscription, fetch func(context.Context) ([]T, error)) (*syncer[T], error) {
	s := &syncer[T]{
		name:    name,
		cache:   c,
		fetch:   fetch,
		sub:     sub,
		changes: make(chan []T, 1),
		done:    make(chan struct{}),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.loading.Store(true)
	if err := s.refetch(ctx); err != nil {
		s.cancel()
		sub.Unsubscribe()
		close(s.done)
		return nil, err
	}
	s.loading.Store(false)
	// Callers read the first list directly; Changes carries only later snapshots.
	select {
	case <-s.changes:
	default:
	}

	go s.loop()
	return s, nil
}

func (s *syncer[T]) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case _, ok := <-s.sub.C:
			if !ok {
				return
			}
			if err := s.refetch(s.ctx); err != nil && s.ctx.Err() == nil {
				log.Printf("%s: re-fetch after change failed: %v", s.name, err)
			}
		}
	}
}

// maxStaleFetches bounds how often a fetch overtaken by a local mutation is
// retried before its result is applied anyway.
const maxStaleFetches = 3

// refetch replaces the cache with a fresh list. On error the cache is left
// as it was.
func (s *syncer[T]) refetch(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		version := s.cache.current()
		items, err := s.fetch(ctx)
		s.errMu.Lock()
		s.lastErr = err
		s.errMu.Unlock()
		if err != nil {
			return err
		}
		if s.cache.replace(items, version, attempt >= maxStaleFetches) {
			break
		}
	}
	s.fetches.Add(1)
	s.notify()
	return nil
}

// notify publishes the current snapshot, replacing any unread one.
func (s *syncer[T]) notify() {
	snap := s.cache.snapshot()
	for {
		select {
		case s.changes <- snap:
			return
		default:
		}
		select {
		case <-s.changes:
		default:
		}
	}
}

func (s *syncer[T]) err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.lastErr
}

func (s *syncer[T]) close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.sub.Unsubscribe()
		<-s.done
	})
}
