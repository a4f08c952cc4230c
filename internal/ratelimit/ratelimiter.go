package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is used to enforce per-account rate limits.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// NoopLimiter allows all requests (used when Redis is not configured).
type NoopLimiter struct{}

func NewNoopLimiter() *NoopLimiter {
	return &NoopLimiter{}
}

func (l *NoopLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return true, nil
}

// RedisLimiter implements distributed fixed-window rate limiting.
// One counter per key per minute, incremented atomically; the window
// key expires on its own.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRedisLimiter creates a rate limiter allowing limit requests per minute.
// A limit of 0 or less means unlimited.
func NewRedisLimiter(client *redis.Client, limit int) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: time.Minute,
	}
}

// Allow checks if a request should be allowed for the given key.
func (rl *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if rl.limit <= 0 {
		return true, nil
	}

	window := time.Now().Unix() / int64(rl.window.Seconds())
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, window)

	pipe := rl.client.Pipeline()
	countCmd := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.window*2)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	return countCmd.Val() <= int64(rl.limit), nil
}

// Reset clears the current window for a key.
func (rl *RedisLimiter) Reset(ctx context.Context, key string) error {
	window := time.Now().Unix() / int64(rl.window.Seconds())
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, window)
	return rl.client.Del(ctx, redisKey).Err()
}
