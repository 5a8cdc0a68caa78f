// Package ratelimit provides sliding-window request limiting keyed by an
// arbitrary string (identity + route class). The Redis implementation is
// shared across instances; the in-memory one is for single-node and tests.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Result is the outcome of one limiter check.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration // how long until the oldest counted request ages out
}

// Limiter checks whether another request fits inside the window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

// RedisLimiter implements a sliding window over a Redis sorted set: one
// member per request scored by its unix-nano timestamp.
type RedisLimiter struct {
	client *redis.Client
}

// NewRedis creates a Redis-backed limiter.
func NewRedis(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

// Allow counts requests in the trailing window and records this one if it
// fits. An over-budget request is not recorded, so a throttled client's
// retries do not extend its penalty.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	now := time.Now()
	cutoff := now.Add(-window).UnixNano()
	rkey := "ratelimit:" + key

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, rkey, "0", fmt.Sprintf("%d", cutoff))
	countCmd := pipe.ZCard(ctx, rkey)
	oldestCmd := pipe.ZRangeWithScores(ctx, rkey, 0, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("ratelimit pipeline: %w", err)
	}

	count := int(countCmd.Val())
	if count >= limit {
		retry := window
		if oldest := oldestCmd.Val(); len(oldest) > 0 {
			oldestAt := time.Unix(0, int64(oldest[0].Score))
			retry = window - now.Sub(oldestAt)
			if retry < time.Second {
				retry = time.Second
			}
		}
		return Result{Allowed: false, Remaining: 0, RetryAfter: retry}, nil
	}

	add := l.client.TxPipeline()
	add.ZAdd(ctx, rkey, redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	add.Expire(ctx, rkey, window)
	if _, err := add.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("ratelimit record: %w", err)
	}
	return Result{Allowed: true, Remaining: limit - count - 1}, nil
}

// MemoryLimiter is a process-local sliding window, used when Redis is not
// configured and in tests. The now func is swappable for deterministic tests.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string][]time.Time
	now     func() time.Time
}

// NewMemory creates an in-memory limiter.
func NewMemory() *MemoryLimiter {
	return &MemoryLimiter{entries: make(map[string][]time.Time), now: time.Now}
}

// NewMemoryWithClock creates an in-memory limiter with a custom clock.
func NewMemoryWithClock(now func() time.Time) *MemoryLimiter {
	return &MemoryLimiter{entries: make(map[string][]time.Time), now: now}
}

// Allow implements Limiter.
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-window)
	kept := l.entries[key][:0]
	for _, t := range l.entries[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.entries[key] = kept

	if len(kept) >= limit {
		retry := window - now.Sub(kept[0])
		if retry < time.Second {
			retry = time.Second
		}
		return Result{Allowed: false, Remaining: 0, RetryAfter: retry}, nil
	}
	l.entries[key] = append(kept, now)
	return Result{Allowed: true, Remaining: limit - len(kept) - 1}, nil
}
