// Package store provides counter storage backends for the fixed-window rate
// limiter. The Redis implementation is the production backend; the in-memory
// implementation serves tests and single-node development.
package store

import (
	"context"
	"time"
)

// CounterStore is the minimal contract the fixed-window limiter needs:
// an atomic increment and the ability to bound a counter's lifetime.
type CounterStore interface {
	// Incr atomically increments the counter at key and returns the new value.
	// A key that does not exist counts up from zero.
	Incr(ctx context.Context, key string) (int64, error)

	// Expire sets the counter's time-to-live. The limiter calls this exactly
	// once per window, when Incr returns 1.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources. Safe to call more than once.
	Close() error
}
