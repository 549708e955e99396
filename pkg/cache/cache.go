// Package cache provides a small TTL cache for upstream lookups that change
// slowly (protocol lists, token tables). Each client owns its own instance.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// TTL holds a single value that expires after a fixed duration. Concurrent
// loads for an expired value are collapsed into one call.
type TTL[T any] struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	value   T
	expires time.Time
	loaded  bool

	group singleflight.Group
}

// NewTTL creates a TTL cache. A non-positive ttl disables caching.
func NewTTL[T any](ttl time.Duration) *TTL[T] {
	return &TTL[T]{ttl: ttl, now: time.Now}
}

// SetNowFunc overrides the time source (for testing).
func (c *TTL[T]) SetNowFunc(fn func() time.Time) { c.now = fn }

// Get returns the cached value, calling load when it is missing or expired.
// A failed load leaves the previous value in place and returns the error.
func (c *TTL[T]) Get(ctx context.Context, load func(context.Context) (T, error)) (T, error) {
	if v, ok := c.fresh(); ok {
		return v, nil
	}

	v, err, _ := c.group.Do("value", func() (any, error) {
		if v, ok := c.fresh(); ok {
			return v, nil
		}

		v, err := load(ctx)
		if err != nil {
			return v, err
		}

		c.mu.Lock()
		c.value = v
		c.loaded = true
		c.expires = c.now().Add(c.ttl)
		c.mu.Unlock()

		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Invalidate drops the cached value.
func (c *TTL[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	c.value = zero
	c.loaded = false
}

func (c *TTL[T]) fresh() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.loaded || c.ttl <= 0 || !c.now().Before(c.expires) {
		var zero T
		return zero, false
	}
	return c.value, true
}
