package Repository

import (
	"sync"
	"time"

	"golang.org/x/exp/slices"
)

// cache is the in-memory list held by a repository. Writes from mutations
// (upsert/remove) and from re-fetches (replace) converge on the same state
// regardless of arrival order.
type cache[T any] struct {
	mu        sync.RWMutex
	items     []T
	version   uint64
	id        func(T) string
	createdAt func(T) time.Time
	keep      func(T) bool
}

func newCache[T any](id func(T) string, createdAt func(T) time.Time, keep func(T) bool) *cache[T] {
	if keep == nil {
		keep = func(T) bool { return true }
	}
	return &cache[T]{id: id, createdAt: createdAt, keep: keep}
}

func (c *cache[T]) sort() {
	slices.SortStableFunc(c.items, func(a, b T) int {
		return c.createdAt(b).Compare(c.createdAt(a))
	})
}

// current returns the mutation counter. A fetch records it before reading
// the store.
func (c *cache[T]) current() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// replace swaps the whole list for a fresh fetch started at version. It
// refuses when a local mutation landed after the fetch began, unless force
// is set.
func (c *cache[T]) replace(items []T, version uint64, force bool) bool {
	kept := make([]T, 0, len(items))
	for _, item := range items {
		if c.keep(item) {
			kept = append(kept, item)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !force && c.version != version {
		return false
	}
	c.items = kept
	c.sort()
	return true
}

// upsert inserts item or replaces the entry with the same id. An item the
// cache would not keep is removed instead.
func (c *cache[T]) upsert(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version++
	id := c.id(item)
	idx := slices.IndexFunc(c.items, func(existing T) bool { return c.id(existing) == id })
	if !c.keep(item) {
		if idx >= 0 {
			c.items = slices.Delete(c.items, idx, idx+1)
		}
		return
	}
	if idx >= 0 {
		c.items[idx] = item
	} else {
		c.items = append(c.items, item)
	}
	c.sort()
}

func (c *cache[T]) remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version++
	idx := slices.IndexFunc(c.items, func(existing T) bool { return c.id(existing) == id })
	if idx < 0 {
		return false
	}
	c.items = slices.Delete(c.items, idx, idx+1)
	return true
}

func (c *cache[T]) get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.items {
		if c.id(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

func (c *cache[T]) snapshot() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}
