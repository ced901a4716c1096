package ratelimit

import (
	"context"
	"log/slog"

	"wavelink/contract"
)

// Failover consults the primary backend and, if it errors (distributed
// store unreachable), falls open to the local fallback instead of
// blocking all traffic. The fallback never errors, so Allow never does
// either.
type Failover struct {
	primary  contract.Limiter
	fallback contract.Limiter
	log      *slog.Logger
}

func NewFailover(primary, fallback contract.Limiter, log *slog.Logger) *Failover {
	return &Failover{primary: primary, fallback: fallback, log: log}
}

func (f *Failover) Allow(ctx context.Context, actorID string) (bool, error) {
	allowed, err := f.primary.Allow(ctx, actorID)
	if err == nil {
		return allowed, nil
	}

	f.log.Warn("primary rate limiter unavailable, falling back to local bucket",
		"actor_id", actorID, "error", err)
	allowed, _ = f.fallback.Allow(ctx, actorID)
	return allowed, nil
}
