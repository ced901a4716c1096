package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"log/slog"
)

type erroringLimiter struct{ err error }

func (l erroringLimiter) Allow(context.Context, string) (bool, error) {
	return false, l.err
}

func TestFailover_UsesPrimaryWhenHealthy(t *testing.T) {
	req := require.New(t)
	store := newFakeWindowStore()
	primary := newWindowForTest(store, 1, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	fallback := NewTokenBucket(100, time.Minute)
	limiter := NewFailover(primary, fallback, logs.GetLoggerFromLevel(slog.LevelDebug))

	allowed, err := limiter.Allow(context.Background(), "alice")
	req.NoError(err)
	req.True(allowed)

	allowed, err = limiter.Allow(context.Background(), "alice")
	req.NoError(err)
	req.False(allowed, "primary decision must be respected, fallback untouched")
}

func TestFailover_FailsOpenToLocalBucket(t *testing.T) {
	req := require.New(t)
	primary := erroringLimiter{err: fmt.Errorf("redis unreachable")}
	fallback := NewTokenBucket(1, time.Minute)
	limiter := NewFailover(primary, fallback, logs.GetLoggerFromLevel(slog.LevelDebug))

	allowed, err := limiter.Allow(context.Background(), "alice")
	req.NoError(err, "backend outage must never surface to the caller")
	req.True(allowed)

	// The fallback still enforces its own budget.
	allowed, err = limiter.Allow(context.Background(), "alice")
	req.NoError(err)
	req.False(allowed)
}
