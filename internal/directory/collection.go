package directory

import (
	"sync"
	"time"
)

// collection holds the last applied snapshot of a remote collection.
// Refreshes take a ticket when issued; a result is applied only when no
// later ticket has been applied already.
type collection[T any] struct {
	key func(T) string

	mu          sync.RWMutex
	items       []T
	index       map[string]int
	err         error
	refreshedAt time.Time
	issued      uint64
	applied     uint64
	inFlight    int
}

func newCollection[T any](key func(T) string) *collection[T] {
	return &collection[T]{
		key:   key,
		index: make(map[string]int),
	}
}

func (c *collection[T]) begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued++
	c.inFlight++
	return c.issued
}

// finish settles a refresh. It reports whether the outcome was applied.
func (c *collection[T]) finish(ticket uint64, items []T, err error, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight--

	if ticket <= c.applied {
		return false
	}
	if err != nil {
		c.err = err
		return true
	}

	index := make(map[string]int, len(items))
	snapshot := make([]T, 0, len(items))
	for _, item := range items {
		key := c.key(item)
		if position, ok := index[key]; ok {
			snapshot[position] = item
			continue
		}
		index[key] = len(snapshot)
		snapshot = append(snapshot, item)
	}

	c.items = snapshot
	c.index = index
	c.err = nil
	c.applied = ticket
	c.refreshedAt = now
	return true
}

func (c *collection[T]) list() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]T(nil), c.items...)
}

func (c *collection[T]) get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	position, ok := c.index[key]
	if !ok {
		var zero T
		return zero, false
	}
	return c.items[position], true
}

func (c *collection[T]) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *collection[T]) lastErr() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

func (c *collection[T]) loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inFlight > 0
}

func (c *collection[T]) lastRefreshed() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshedAt
}
