package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements CounterStore with an in-process map. Counters do not
// survive restarts and are not shared between nodes, the single-node trade-off
// it exists for. Expired entries are purged lazily
// on access.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	count     int64
	expiresAt time.Time // zero means no TTL set yet
}

// NewMemoryStore creates an empty in-memory counter store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// Incr atomically increments the counter at key
func (s *MemoryStore) Incr(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if ok && !e.expiresAt.IsZero() && !e.expiresAt.After(s.now()) {
		delete(s.entries, key)
		ok = false
	}
	if !ok {
		e = &memoryEntry{}
		s.entries[key] = e
	}
	e.count++
	return e.count, nil
}

// Expire sets the counter's time-to-live. A no-op for unknown keys, matching
// Redis semantics closely enough for the limiter's single call pattern.
func (s *MemoryStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		e.expiresAt = s.now().Add(ttl)
	}
	return nil
}

// Ping always succeeds for the in-process store
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}

// Len reports the number of live entries. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
