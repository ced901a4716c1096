package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeSweepable struct {
	sweeps atomic.Int32
}

func (f *fakeSweepable) Sweep(_ time.Duration) int {
	f.sweeps.Add(1)
	return 1
}

func (f *fakeSweepable) Size() int { return 0 }

func TestBucketSweeper_SweepsOnEveryTick(t *testing.T) {
	req := require.New(t)
	limiter := &fakeSweepable{}
	sweeper := NewBucketSweeper(slog.Default(), limiter, 20*time.Millisecond, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = sweeper.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for limiter.sweeps.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("sweeper should stop on context cancellation")
	}
	req.GreaterOrEqual(limiter.sweeps.Load(), int32(3))
}
