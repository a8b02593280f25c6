// Package cache is a small time-based cache with single-flight population.
//
// Concurrent requests for the same missing key share one load. Failed loads
// are not stored, so the next caller retries. A load runs detached from the
// cancellation of the caller that started it; callers whose context ends
// stop waiting without aborting the load for the others.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Clock abstracts time for expiry decisions.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// LoadFunc produces the value for a missing key.
type LoadFunc[V any] func(ctx context.Context) (V, error)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache holds values of one type keyed by string.
type Cache[V any] struct {
	ttl   time.Duration
	clock Clock

	mu      sync.RWMutex
	entries map[string]entry[V]
	// generation is bumped by Invalidate; a load only stores its result
	// when the generation it started under is still current.
	generation map[string]uint64
	flight     singleflight.Group
}

type Option[V any] func(*Cache[V])

func WithClock[V any](clock Clock) Option[V] {
	return func(c *Cache[V]) {
		c.clock = clock
	}
}

// New creates a cache whose entries live for ttl.
func New[V any](ttl time.Duration, opts ...Option[V]) (*Cache[V], error) {
	if ttl <= 0 {
		return nil, errors.New("cache ttl must be positive")
	}
	c := &Cache[V]{
		ttl:        ttl,
		clock:      systemClock{},
		entries:    make(map[string]entry[V]),
		generation: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.clock == nil {
		return nil, errors.New("clock is required")
	}
	return c, nil
}

// Get returns the cached value for key if it has not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !c.clock.Now().Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// GetOrLoad returns the live value for key, running load at most once across
// concurrent callers when the key is missing or expired.
func (c *Cache[V]) GetOrLoad(ctx context.Context, key string, load LoadFunc[V]) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	detached := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(key, func() (any, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		c.mu.RLock()
		gen := c.generation[key]
		c.mu.RUnlock()

		v, err := c.safeLoad(detached, load)
		if err != nil {
			return v, err
		}
		c.mu.Lock()
		if c.generation[key] == gen {
			c.entries[key] = entry[V]{value: v, expiresAt: c.clock.Now().Add(c.ttl)}
		}
		c.mu.Unlock()
		return v, nil
	})

	select {
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero V
			return zero, res.Err
		}
		v, _ := res.Val.(V)
		return v, nil
	}
}

func (c *Cache[V]) safeLoad(ctx context.Context, load LoadFunc[V]) (v V, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cache load panicked: %v", r)
		}
	}()
	return load(ctx)
}

// Invalidate drops key so the next caller reloads it. A load already in
// progress still answers its waiters but its result is not stored.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.generation[key]++
	c.mu.Unlock()
	c.flight.Forget(key)
}

// Len reports the number of stored entries, expired ones included.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
