// Package ratelimit provides per-user admission control for outbound
// realtime messages. Two backends exist behind contract.Limiter: a local
// token bucket with continuous refill, and a redis fixed-window counter.
// Their burst semantics differ on purpose; callers must not assume one
// behaves like the other.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// TokenBucket is the local backend: capacity tokens per window, refilled
// continuously and lazily at each call from elapsed wall-clock time.
// State is held in an injected per-process map guarded by a mutex, keyed
// by user id so every device of one user shares the same budget.
type TokenBucket struct {
	mu       sync.Mutex
	capacity float64
	window   time.Duration
	now      func() time.Time
	buckets  map[string]*bucket
}

func NewTokenBucket(capacity int, window time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity: float64(capacity),
		window:   window,
		now:      time.Now,
		buckets:  make(map[string]*bucket),
	}
}

// WithClock replaces the wall clock, for tests.
func (t *TokenBucket) WithClock(now func() time.Time) *TokenBucket {
	t.now = now
	return t
}

func (t *TokenBucket) Allow(_ context.Context, actorID string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	b, ok := t.buckets[actorID]
	if !ok {
		b = &bucket{tokens: t.capacity, last: now}
		t.buckets[actorID] = b
	}

	// Lazy continuous refill: tokens never exceed capacity and never go
	// negative.
	elapsed := now.Sub(b.last)
	if elapsed > 0 {
		b.tokens += elapsed.Seconds() * t.capacity / t.window.Seconds()
		if b.tokens > t.capacity {
			b.tokens = t.capacity
		}
		b.last = now
	}

	if b.tokens < 1 {
		return false, nil
	}
	b.tokens--
	return true, nil
}

// Sweep drops buckets idle for longer than maxIdle. A full bucket holds
// no useful state, so eviction never changes an admission decision.
func (t *TokenBucket) Sweep(maxIdle time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	removed := 0
	for actor, b := range t.buckets {
		if now.Sub(b.last) > maxIdle {
			delete(t.buckets, actor)
			removed++
		}
	}
	return removed
}

// Size reports the number of tracked actors, for observability.
func (t *TokenBucket) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buckets)
}
