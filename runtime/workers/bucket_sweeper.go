package workers

import (
	"context"
	"log/slog"
	"time"
)

// Sweepable is the local rate limiter's eviction surface.
type Sweepable interface {
	Sweep(maxIdle time.Duration) int
	Size() int
}

// BucketSweeper periodically evicts idle rate-limiter buckets so the
// per-actor map does not grow with every user who ever sent a message.
type BucketSweeper struct {
	log      *slog.Logger
	limiter  Sweepable
	interval time.Duration
	maxIdle  time.Duration
}

func NewBucketSweeper(log *slog.Logger, limiter Sweepable, interval, maxIdle time.Duration) *BucketSweeper {
	return &BucketSweeper{log: log, limiter: limiter, interval: interval, maxIdle: maxIdle}
}

func (w *BucketSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping bucket sweeper")
			return nil
		case <-ticker.C:
			removed := w.limiter.Sweep(w.maxIdle)
			if removed > 0 {
				w.log.Debug("swept idle rate limiter buckets",
					"removed", removed, "remaining", w.limiter.Size())
			}
		}
	}
}
