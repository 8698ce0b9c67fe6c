// Package Realtime is the in-process change feed. Stores publish an Event
// after every successful write and repositories subscribe per table.
package Realtime

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

type EventType string

const (
	Insert EventType = "INSERT"
	Update EventType = "UPDATE"
	Delete EventType = "DELETE"
	// Any matches every event type in a Spec.
	Any EventType = "*"
)

// Event describes one row change. Columns carries the string form of the
// columns subscriptions may filter on.
type Event struct {
	Type            EventType         `json:"eventType"`
	Table           string            `json:"table"`
	Record          interface{}       `json:"new,omitempty"`
	Columns         map[string]string `json:"-"`
	CommitTimestamp time.Time         `json:"commit_timestamp"`
}

// Spec selects the events a subscription receives. Filter uses the
// "column=eq.value" form and may be empty.
type Spec struct {
	Event  EventType
	Table  string
	Filter string
}

type filter struct {
	column string
	value  string
}

// ParseFilter parses "column=eq.value". Only equality is supported.
func ParseFilter(s string) (column, value string, err error) {
	col, rest, ok := strings.Cut(s, "=")
	if !ok || col == "" {
		return "", "", fmt.Errorf("invalid filter %q: expected column=eq.value", s)
	}
	val, ok := strings.CutPrefix(rest, "eq.")
	if !ok {
		return "", "", fmt.Errorf("invalid filter %q: only eq is supported", s)
	}
	return col, val, nil
}

// Subscription is a handle on a standing subscription. C is closed once
// Unsubscribe returns.
type Subscription struct {
	C <-chan Event

	c        chan Event
	spec     Spec
	filter   *filter
	notifier *Notifier
	once     sync.Once
}

// Unsubscribe releases the subscription. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.notifier.remove(s)
	})
}

func (s *Subscription) matches(e Event) bool {
	if s.spec.Table != e.Table {
		return false
	}
	if s.spec.Event != Any && s.spec.Event != "" && s.spec.Event != e.Type {
		return false
	}
	if s.filter != nil && e.Columns[s.filter.column] != s.filter.value {
		return false
	}
	return true
}

// Notifier fans events out to subscriptions.
type Notifier struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	buffer int
}

const defaultBuffer = 1

// NewNotifier creates a hub. buffer is the per-subscription channel size; a
// subscription whose buffer is full drops the event since subscribers only
// use it as a wake-up.
func NewNotifier(buffer int) *Notifier {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Notifier{subs: make(map[*Subscription]struct{}), buffer: buffer}
}

// Subscribe registers a new subscription for spec.
func (n *Notifier) Subscribe(spec Spec) (*Subscription, error) {
	if spec.Table == "" {
		return nil, fmt.Errorf("subscription requires a table")
	}
	sub := &Subscription{spec: spec, notifier: n}
	if spec.Filter != "" {
		col, val, err := ParseFilter(spec.Filter)
		if err != nil {
			return nil, err
		}
		sub.filter = &filter{column: col, value: val}
	}
	sub.c = make(chan Event, n.buffer)
	sub.C = sub.c

	n.mu.Lock()
	n.subs[sub] = struct{}{}
	n.mu.Unlock()
	return sub, nil
}

// Publish delivers e to every matching subscription without blocking.
func (n *Notifier) Publish(e Event) {
	if e.CommitTimestamp.IsZero() {
		e.CommitTimestamp = time.Now()
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	for sub := range n.subs {
		if !sub.matches(e) {
			continue
		}
		select {
		case sub.c <- e:
		default:
		}
	}
}

// Subscribers returns the number of open subscriptions.
func (n *Notifier) Subscribers() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

func (n *Notifier) remove(s *Subscription) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.subs, s)
	close(s.c)
}
