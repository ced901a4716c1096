package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeWindowStore mimics the redis counter semantics in memory.
type fakeWindowStore struct {
	counts  map[string]int64
	expires map[string]time.Duration
	err     error
}

func newFakeWindowStore() *fakeWindowStore {
	return &fakeWindowStore{counts: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (s *fakeWindowStore) Incr(_ context.Context, key string) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.counts[key]++
	return s.counts[key], nil
}

func (s *fakeWindowStore) ExpireNX(_ context.Context, key string, ttl time.Duration) error {
	if s.err != nil {
		return s.err
	}
	if _, ok := s.expires[key]; !ok {
		s.expires[key] = ttl
	}
	return nil
}

func newWindowForTest(store windowStore, capacity int, now time.Time) *RedisWindow {
	return (&RedisWindow{
		store:    store,
		capacity: int64(capacity),
		window:   time.Minute,
	}).WithClock(func() time.Time { return now })
}

func TestRedisWindow_DeniesBeyondCapacity(t *testing.T) {
	req := require.New(t)
	store := newFakeWindowStore()
	limiter := newWindowForTest(store, 3, time.Date(2025, 6, 1, 12, 0, 30, 0, time.UTC))

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(context.Background(), "alice")
		req.NoError(err)
		req.True(allowed)
	}

	allowed, err := limiter.Allow(context.Background(), "alice")
	req.NoError(err)
	req.False(allowed)

	// One key for the whole window, TTL set exactly once.
	req.Len(store.counts, 1)
	req.Len(store.expires, 1)
	for _, ttl := range store.expires {
		req.Equal(time.Minute, ttl)
	}
}

func TestRedisWindow_NewWindowResetsBudget(t *testing.T) {
	req := require.New(t)
	store := newFakeWindowStore()
	at := time.Date(2025, 6, 1, 12, 0, 59, 0, time.UTC)
	limiter := newWindowForTest(store, 1, at)

	allowed, err := limiter.Allow(context.Background(), "alice")
	req.NoError(err)
	req.True(allowed)
	allowed, err = limiter.Allow(context.Background(), "alice")
	req.NoError(err)
	req.False(allowed)

	// Crossing the window edge lands on a fresh counter. This is the
	// fixed-window burst tradeoff, asserted here deliberately.
	limiter.WithClock(func() time.Time { return at.Add(2 * time.Second) })
	allowed, err = limiter.Allow(context.Background(), "alice")
	req.NoError(err)
	req.True(allowed)
	req.Len(store.counts, 2)
}

func TestRedisWindow_PropagatesStoreErrors(t *testing.T) {
	req := require.New(t)
	store := newFakeWindowStore()
	store.err = fmt.Errorf("connection refused")
	limiter := newWindowForTest(store, 3, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	allowed, err := limiter.Allow(context.Background(), "alice")
	req.Error(err)
	req.False(allowed)
}
