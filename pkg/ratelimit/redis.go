package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisKeyPrefix namespaces limiter windows in Redis.
const RedisKeyPrefix = "ratelimit:"

// RedisLimiter is a fixed-window limiter whose counters live in Redis,
// so every process sharing the Redis instance enforces one limit.
type RedisLimiter struct {
	redis  *redis.Client
	config Config
	logger zerolog.Logger
	now    func() time.Time
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter creates a new Redis-backed limiter.
func NewRedisLimiter(redisClient *redis.Client, cfg Config, logger zerolog.Logger) (*RedisLimiter, error) {
	if redisClient == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &RedisLimiter{
		redis:  redisClient,
		config: cfg,
		logger: logger,
		now:    time.Now,
	}, nil
}

// windowKey returns the counter key for key in the window containing now,
// and the end of that window.
func (l *RedisLimiter) windowKey(key string, now time.Time) (string, time.Time) {
	window := l.config.Window
	start := now.Truncate(window)
	return RedisKeyPrefix + key + ":" + strconv.FormatInt(start.Unix(), 10), start.Add(window)
}

// Allow increments the client's counter for the current window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()
	counterKey, resetAt := l.windowKey(key, now)

	// Increment and set expiry atomically
	pipe := l.redis.TxPipeline()
	incr := pipe.Incr(ctx, counterKey)
	pipe.ExpireAt(ctx, counterKey, resetAt.Add(time.Second))
	if _, err := pipe.Exec(ctx); err != nil {
		rateLimitErrorsTotal.WithLabelValues(BackendRedis).Inc()
		return Decision{}, fmt.Errorf("increment rate limit window: %w", err)
	}

	count := int(incr.Val())
	decision := Decision{
		Allowed:   count <= l.config.Requests,
		Limit:     l.config.Requests,
		Remaining: max(l.config.Requests-count, 0),
		ResetAt:   resetAt,
	}

	if !decision.Allowed {
		rateLimitRejectionsTotal.WithLabelValues(BackendRedis).Inc()
		l.logger.Warn().
			Str("client", key).
			Int("count", count).
			Time("reset_at", resetAt).
			Msg("Rate limit exceeded")
	}

	return decision, nil
}
