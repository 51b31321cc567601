// Package ratelimit implements per-key fixed-window rate limiting over a
// pluggable counter store.
//
// Each API key gets one counter per window. The window is aligned to the
// epoch: window_start = now - (now mod window), computed in nanoseconds so
// any positive window length works, including sub-second ones. The counter
// key is "<prefix>:<key_id>:<window_start_nanos>", incremented atomically;
// when the increment creates the counter (count == 1) its TTL is set to
// twice the window so stale counters vanish on their own. A request is
// allowed while count <= limit.
//
// Known property of the algorithm: a burst straddling a window boundary can
// pass up to 2x the limit in a short span. That is accepted in exchange for
// one round trip per request and no stored timestamps.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/smplatform/smplatform/internal/ratelimit/store"
)

// Result is the outcome of one rate limit check
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// FixedWindowLimiter counts requests per key in epoch-aligned windows
type FixedWindowLimiter struct {
	store     store.CounterStore
	window    time.Duration
	keyPrefix string

	// now is swapped in tests to pin window boundaries
	now func() time.Time
}

// NewFixedWindowLimiter creates a limiter over the given counter store.
// keyPrefix namespaces counter keys (e.g. "rl") so limiter state can share a
// Redis database with other uses.
func NewFixedWindowLimiter(s store.CounterStore, window time.Duration, keyPrefix string) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		store:     s,
		window:    window,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}
}

// Allow records one request for keyID and reports whether it fits within
// limit for the current window. The increment happens before the comparison,
// so even denied requests advance the counter; that keeps the check a single
// atomic operation.
//
// A transient store failure is retried once. If the retry also fails, Allow
// returns an error and the caller applies the configured failure policy.
func (l *FixedWindowLimiter) Allow(ctx context.Context, keyID int64, limit int) (*Result, error) {
	now := l.now()
	window := l.window.Nanoseconds()
	startNanos := now.UnixNano() - (now.UnixNano() % window)
	counterKey := fmt.Sprintf("%s:%d:%d", l.keyPrefix, keyID, startNanos)

	count, err := l.store.Incr(ctx, counterKey)
	if err != nil {
		count, err = l.store.Incr(ctx, counterKey)
	}
	if err != nil {
		return nil, fmt.Errorf("rate limit counter increment: %w", err)
	}

	if count == 1 {
		// First hit in this window: bound the counter's lifetime. Two windows
		// covers clock skew between nodes; the key is dead weight after that.
		if err := l.store.Expire(ctx, counterKey, 2*l.window); err != nil {
			slog.Warn("failed to set rate limit counter ttl", "key", counterKey, "error", err)
		}
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return &Result{
		Allowed:   count <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   time.Unix(0, startNanos+window),
	}, nil
}

// Window returns the configured window length
func (l *FixedWindowLimiter) Window() time.Duration {
	return l.window
}
