package delivery

import (
	"context"
	"log/slog"
	"time"

	"navmenus/internal/delivery/store"
)

// CachedTransport keeps raw response bodies in a ResponseStore. Bodies are
// cached rather than decoded items so every consumer decodes its own graph.
type CachedTransport struct {
	next   Transport
	store  store.ResponseStore
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedTransport wraps next. A non-positive ttl disables caching.
func NewCachedTransport(next Transport, s store.ResponseStore, ttl time.Duration, logger *slog.Logger) *CachedTransport {
	return &CachedTransport{next: next, store: s, ttl: ttl, logger: logger}
}

func (c *CachedTransport) Fetch(ctx context.Context, q Query) ([]byte, error) {
	if c.ttl <= 0 || c.store == nil {
		return c.next.Fetch(ctx, q)
	}

	key := q.Key()
	body, ok, err := c.store.Get(ctx, key)
	if err != nil {
		// Read errors fall through to the origin.
		c.warn(ctx, "response cache read failed", key, err)
	} else if ok {
		return body, nil
	}

	body, err = c.next.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(ctx, key, body, c.ttl); err != nil {
		c.warn(ctx, "response cache write failed", key, err)
	}
	return body, nil
}

func (c *CachedTransport) warn(ctx context.Context, msg, key string, err error) {
	if c.logger != nil {
		c.logger.WarnContext(ctx, msg, "key", key, "error", err)
	}
}

// Forget drops the cached body of q so the next Fetch goes to the origin.
func (c *CachedTransport) Forget(ctx context.Context, q Query) error {
	if c.store == nil {
		return nil
	}
	return c.store.Delete(ctx, q.Key())
}
