package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultMaxClients bounds the number of per-client buckets kept in memory.
const DefaultMaxClients = 10000

// LocalLimiter is a process-local token-bucket limiter. Each client gets a
// bucket of Requests tokens refilled evenly over Window. Idle buckets are
// dropped after one window, which is equivalent to a full bucket.
type LocalLimiter struct {
	config  Config
	limit   rate.Limit
	buckets *expirable.LRU[string, *rate.Limiter]
	logger  zerolog.Logger
	now     func() time.Time
}

var _ Limiter = (*LocalLimiter)(nil)

// NewLocalLimiter creates a process-local limiter tracking at most maxClients clients.
func NewLocalLimiter(cfg Config, maxClients int, logger zerolog.Logger) (*LocalLimiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if maxClients <= 0 {
		maxClients = DefaultMaxClients
	}

	return &LocalLimiter{
		config:  cfg,
		limit:   rate.Every(cfg.Window / time.Duration(cfg.Requests)),
		buckets: expirable.NewLRU[string, *rate.Limiter](maxClients, nil, cfg.Window),
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Allow takes one token from the client's bucket.
func (l *LocalLimiter) Allow(_ context.Context, key string) (Decision, error) {
	if key == "" {
		return Decision{}, fmt.Errorf("rate limit key is required")
	}

	bucket, ok := l.buckets.Get(key)
	if !ok {
		bucket = rate.NewLimiter(l.limit, l.config.Requests)
	}
	// Re-adding refreshes the idle expiry.
	l.buckets.Add(key, bucket)

	now := l.now()
	allowed := bucket.AllowN(now, 1)
	tokens := bucket.TokensAt(now)

	decision := Decision{
		Allowed:   allowed,
		Limit:     l.config.Requests,
		Remaining: max(int(math.Floor(tokens)), 0),
		ResetAt:   now.Add(l.untilNextToken(tokens)),
	}

	if !allowed {
		rateLimitRejectionsTotal.WithLabelValues(BackendLocal).Inc()
		l.logger.Warn().
			Str("client", key).
			Time("reset_at", decision.ResetAt).
			Msg("Rate limit exceeded")
	}

	return decision, nil
}

// untilNextToken is the time for the bucket to regain one whole token.
func (l *LocalLimiter) untilNextToken(tokens float64) time.Duration {
	if tokens >= 1 {
		return 0
	}
	return time.Duration((1 - tokens) / float64(l.limit) * float64(time.Second))
}
