// Package store holds raw delivery responses between requests.
package store

import (
	"context"
	"time"
)

// ResponseStore caches response bodies under opaque keys.
type ResponseStore interface {
	// Get returns the body and true on a hit. Expired entries are misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores body until ttl elapses.
	Set(ctx context.Context, key string, body []byte, ttl time.Duration) error
	// Delete drops a key; missing keys are not an error.
	Delete(ctx context.Context, key string) error
}
