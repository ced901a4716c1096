package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock lets tests move wall-clock time explicitly.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time            { return c.now }
func (c *fakeClock) Advance(d time.Duration)   { c.now = c.now.Add(d) }

func TestTokenBucket_DeniesAfterCapacity(t *testing.T) {
	req := require.New(t)
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	limiter := NewTokenBucket(30, time.Minute).WithClock(clock.Now)

	for i := 0; i < 30; i++ {
		allowed, err := limiter.Allow(context.Background(), "alice")
		req.NoError(err)
		req.True(allowed, "send %d should be admitted", i+1)
	}

	allowed, err := limiter.Allow(context.Background(), "alice")
	req.NoError(err)
	req.False(allowed, "31st instantaneous send must be denied")
}

func TestTokenBucket_RefillsContinuously(t *testing.T) {
	req := require.New(t)
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	limiter := NewTokenBucket(30, time.Minute).WithClock(clock.Now)

	for i := 0; i < 30; i++ {
		_, err := limiter.Allow(context.Background(), "alice")
		req.NoError(err)
	}

	// 2 seconds restores exactly one token at 30/minute.
	clock.Advance(2 * time.Second)
	allowed, err := limiter.Allow(context.Background(), "alice")
	req.NoError(err)
	req.True(allowed)

	allowed, err = limiter.Allow(context.Background(), "alice")
	req.NoError(err)
	req.False(allowed, "only one token should have been refilled")
}

func TestTokenBucket_FullWindowRestoresCapacityAndCaps(t *testing.T) {
	req := require.New(t)
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	limiter := NewTokenBucket(30, time.Minute).WithClock(clock.Now)

	for i := 0; i < 30; i++ {
		_, err := limiter.Allow(context.Background(), "alice")
		req.NoError(err)
	}

	// Waiting far longer than a window must not accumulate beyond C.
	clock.Advance(10 * time.Minute)
	granted := 0
	for i := 0; i < 40; i++ {
		allowed, err := limiter.Allow(context.Background(), "alice")
		req.NoError(err)
		if allowed {
			granted++
		}
	}
	req.Equal(30, granted, "tokens must never exceed capacity")
}

func TestTokenBucket_KeyedPerActor(t *testing.T) {
	req := require.New(t)
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	limiter := NewTokenBucket(1, time.Minute).WithClock(clock.Now)

	allowed, err := limiter.Allow(context.Background(), "alice")
	req.NoError(err)
	req.True(allowed)

	allowed, err = limiter.Allow(context.Background(), "alice")
	req.NoError(err)
	req.False(allowed)

	// Bob's budget is untouched by Alice's spend.
	allowed, err = limiter.Allow(context.Background(), "bob")
	req.NoError(err)
	req.True(allowed)
}

func TestTokenBucket_SweepEvictsIdleActors(t *testing.T) {
	req := require.New(t)
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	limiter := NewTokenBucket(30, time.Minute).WithClock(clock.Now)

	_, err := limiter.Allow(context.Background(), "alice")
	req.NoError(err)
	_, err = limiter.Allow(context.Background(), "bob")
	req.NoError(err)
	req.Equal(2, limiter.Size())

	clock.Advance(3 * time.Minute)
	_, err = limiter.Allow(context.Background(), "bob")
	req.NoError(err)

	removed := limiter.Sweep(2 * time.Minute)
	req.Equal(1, removed)
	req.Equal(1, limiter.Size())

	// Evicted actors restart with a full bucket, never a stale one.
	allowed, err := limiter.Allow(context.Background(), "alice")
	req.NoError(err)
	req.True(allowed)
}
