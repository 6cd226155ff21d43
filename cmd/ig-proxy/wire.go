package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/ig-profile-proxy/internal/config"
	"github.com/Sternrassler/ig-profile-proxy/pkg/cache"
	"github.com/Sternrassler/ig-profile-proxy/pkg/instagram"
	"github.com/Sternrassler/ig-profile-proxy/pkg/profile"
	"github.com/Sternrassler/ig-profile-proxy/pkg/ratelimit"
)

const redisPingTimeout = 3 * time.Second

// components is the object graph shared by serve and fetch.
type components struct {
	redis   *redis.Client
	store   cache.Store
	service *profile.Service
}

func (c *components) Close() {
	if c.redis != nil {
		c.redis.Close()
	}
}

// health returns the store's health checker, if it has one.
func (c *components) health() cache.HealthChecker {
	if h, ok := c.store.(cache.HealthChecker); ok {
		return h
	}
	return nil
}

func newRedisClient(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	// The cache is best-effort, so an unreachable Redis is not fatal.
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Redis.Addr()).Msg("Redis unreachable, continuing")
	} else {
		logger.Info().Str("addr", cfg.Redis.Addr()).Msg("Connected to Redis")
	}
	return client
}

func buildComponents(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*components, error) {
	c := &components{}
	if cfg.NeedsRedis() {
		c.redis = newRedisClient(ctx, cfg, logger)
	}

	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		c.store = cache.NewRedisStore(c.redis)
	case config.CacheBackendMemory:
		c.store = cache.NewMemoryStore(cache.DefaultCleanupInterval)
	default:
		c.Close()
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}

	upstream, err := instagram.New(instagram.Config{
		BaseURL: cfg.UpstreamBaseURL,
		Timeout: cfg.UpstreamTimeout,
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("create upstream client: %w", err)
	}

	svcCfg := profile.DefaultConfig(c.store, upstream)
	svcCfg.CacheTTL = cfg.CacheTTL
	svcCfg.Logger = &logger
	c.service, err = profile.NewService(svcCfg)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("create profile service: %w", err)
	}

	return c, nil
}

func buildLimiter(cfg *config.Config, redisClient *redis.Client, logger zerolog.Logger) (ratelimit.Limiter, error) {
	limiterLogger := logger.With().Str("component", "rate-limiter").Logger()

	switch cfg.RateLimitBackend {
	case ratelimit.BackendRedis:
		return ratelimit.NewRedisLimiter(redisClient, cfg.RateLimit(), limiterLogger)
	case ratelimit.BackendLocal:
		return ratelimit.NewLocalLimiter(cfg.RateLimit(), ratelimit.DefaultMaxClients, limiterLogger)
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", cfg.RateLimitBackend)
	}
}
