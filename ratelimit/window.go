package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// windowStore is the slice of redis this backend needs. Narrowed so unit
// tests can swap in a fake without a running server.
type windowStore interface {
	Incr(ctx context.Context, key string) (int64, error)
	ExpireNX(ctx context.Context, key string, ttl time.Duration) error
}

// RedisWindow is the distributed backend: one counter per actor per
// aligned window, incremented atomically, expiry set only by the first
// increment of the window. Allowed iff the post-increment count stays
// within capacity. Bursts of up to 2x capacity are possible across a
// window edge; that tradeoff is accepted (see DESIGN.md).
type RedisWindow struct {
	store    windowStore
	capacity int64
	window   time.Duration
	now      func() time.Time
}

func NewRedisWindow(client *redis.Client, capacity int, window time.Duration) *RedisWindow {
	return &RedisWindow{
		store:    redisStore{client: client},
		capacity: int64(capacity),
		window:   window,
		now:      time.Now,
	}
}

func (r *RedisWindow) WithClock(now func() time.Time) *RedisWindow {
	r.now = now
	return r
}

func (r *RedisWindow) Allow(ctx context.Context, actorID string) (bool, error) {
	windowStart := r.now().Unix() / int64(r.window.Seconds())
	key := fmt.Sprintf("ratelimit:%s:%d", actorID, windowStart)

	count, err := r.store.Incr(ctx, key)
	if err != nil {
		return false, fmt.Errorf("rate limit counter increment: %w", err)
	}
	if count == 1 {
		// First hit of the window owns the TTL. ExpireNX keeps a racing
		// second writer from pushing the expiry forward.
		if err := r.store.ExpireNX(ctx, key, r.window); err != nil {
			return false, fmt.Errorf("rate limit counter expiry: %w", err)
		}
	}
	return count <= r.capacity, nil
}

type redisStore struct {
	client *redis.Client
}

func (s redisStore) Incr(ctx context.Context, key string) (int64, error) {
	return s.client.Incr(ctx, key).Result()
}

func (s redisStore) ExpireNX(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.ExpireNX(ctx, key, ttl).Err()
}
