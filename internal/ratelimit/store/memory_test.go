package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Incr(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := s.Incr(ctx, "rl:1:1000")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	got, err := s.Incr(ctx, "rl:2:1000")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestMemoryStore_ExpirePurgesOnAccess(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	clock := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	_, err := s.Incr(ctx, "rl:1:1000")
	require.NoError(t, err)
	require.NoError(t, s.Expire(ctx, "rl:1:1000", 2*time.Minute))

	// Within the TTL the counter keeps counting.
	clock = clock.Add(time.Minute)
	got, err := s.Incr(ctx, "rl:1:1000")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got)

	// Past the TTL the counter restarts.
	clock = clock.Add(5 * time.Minute)
	got, err = s.Incr(ctx, "rl:1:1000")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestMemoryStore_ExpireUnknownKey(t *testing.T) {
	s := NewMemoryStore()
	assert.NoError(t, s.Expire(context.Background(), "missing", time.Minute))
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStore_ContextCancelled(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Incr(ctx, "rl:1:1000")
	assert.Error(t, err)
	assert.Error(t, s.Ping(ctx))
}

func TestMemoryStore_ConcurrentIncr(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	const goroutines = 50
	const perGoroutine = 20

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				_, _ = s.Incr(ctx, "rl:1:1000")
			}
		}()
	}
	wg.Wait()

	got, err := s.Incr(ctx, "rl:1:1000")
	require.NoError(t, err)
	assert.Equal(t, int64(goroutines*perGoroutine+1), got)
}
