package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const attemptKeyPrefix = "login_attempts:"

// attemptCounter is the subset of *redis.Client the limiter uses.
type attemptCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	ExpireNX(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// AttemptLimiter caps login attempts per login key within a fixed window,
// counted in Redis. A nil *AttemptLimiter allows everything.
type AttemptLimiter struct {
	rdb    attemptCounter
	max    int
	window time.Duration
}

func NewAttemptLimiter(rdb attemptCounter, max int, window time.Duration) *AttemptLimiter {
	return &AttemptLimiter{rdb: rdb, max: max, window: window}
}

// Allow records an attempt for key and reports whether it is within the
// limit. The window starts at the first attempt. Every attempt sets the
// TTL if the key has none, so a lost EXPIRE cannot leave a counter that
// never clears.
func (l *AttemptLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l == nil {
		return true, nil
	}
	k := attemptKeyPrefix + key
	n, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("count login attempt: %w", err)
	}
	if err := l.rdb.ExpireNX(ctx, k, l.window).Err(); err != nil {
		return false, fmt.Errorf("expire login attempts: %w", err)
	}
	return n <= int64(l.max), nil
}

// Reset clears the attempts recorded for key.
func (l *AttemptLimiter) Reset(ctx context.Context, key string) error {
	if l == nil {
		return nil
	}
	if err := l.rdb.Del(ctx, attemptKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("reset login attempts: %w", err)
	}
	return nil
}
