package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter decides whether a caller may make another request
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisClient defines the Redis operations the limiter needs
type RedisClient interface {
	TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error)
}

// Config holds rate limiting configuration
type Config struct {
	// RequestsPerMinute is the per-caller budget for one fixed window
	RequestsPerMinute int
}

// RedisRateLimiter implements a fixed one-minute window counter in Redis,
// shared by every service instance.
type RedisRateLimiter struct {
	redis  RedisClient
	limit  int64
	window time.Duration
}

// NewRedisRateLimiter creates a new Redis-based rate limiter
func NewRedisRateLimiter(client RedisClient, config Config) *RedisRateLimiter {
	return &RedisRateLimiter{
		redis:  client,
		limit:  int64(config.RequestsPerMinute),
		window: time.Minute,
	}
}

// Allow counts one request against key and reports whether it is within the limit
func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	key = "ratelimit:" + key

	// INCR and EXPIRE NX run in one transaction so a counter never outlives its window,
	// and a counter left without a TTL picks one up on the next hit.
	var incr *redis.IntCmd
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, r.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit error: %w", err)
	}

	return incr.Val() <= r.limit, nil
}
