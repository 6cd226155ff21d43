// Package ratelimit implements per-client request limiting for the HTTP
// surface. Limits are expressed as a number of requests per fixed window
// (the default is 20 per minute) and can be enforced process-locally or
// shared across processes through Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Defaults for the per-client limit.
const (
	DefaultRequests = 20
	DefaultWindow   = time.Minute
)

// Backends used as metric label values.
const (
	BackendRedis = "redis"
	BackendLocal = "local"
)

var rateLimitRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "igproxy_rate_limit_rejections_total",
	Help: "Total number of requests rejected by the per-client rate limiter",
}, []string{"backend"})

var rateLimitErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "igproxy_rate_limit_errors_total",
	Help: "Total number of rate limiter backend errors",
}, []string{"backend"})

// Limiter decides whether a client may make another request.
type Limiter interface {
	// Allow consumes one request for key and reports the outcome.
	// An error means the backend could not decide.
	Allow(ctx context.Context, key string) (Decision, error)
}

// Config holds limiter configuration.
type Config struct {
	// Requests is the number of requests allowed per window.
	Requests int

	// Window is the length of one limiting window.
	Window time.Duration
}

// DefaultConfig returns 20 requests per minute.
func DefaultConfig() Config {
	return Config{
		Requests: DefaultRequests,
		Window:   DefaultWindow,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Requests <= 0 {
		return fmt.Errorf("rate limit requests must be positive (got %d)", c.Requests)
	}
	if c.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive (got %s)", c.Window)
	}
	return nil
}

// String formats the limit the way it is reported to clients, e.g. "20 per 1m0s".
func (c Config) String() string {
	return fmt.Sprintf("%d per %s", c.Requests, c.Window)
}

// Decision is the outcome of one Allow call.
type Decision struct {
	// Allowed is true when the request may proceed.
	Allowed bool `json:"allowed"`

	// Limit is the configured number of requests per window.
	Limit int `json:"limit"`

	// Remaining is how many more requests the client may make in the current window.
	Remaining int `json:"remaining"`

	// ResetAt is when capacity is next restored.
	ResetAt time.Time `json:"reset_at"`
}

// RetryAfter returns the duration until ResetAt, rounded up to whole seconds.
// Returns 0 if the reset time has already passed.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	wait := d.ResetAt.Sub(now)
	if wait <= 0 {
		return 0
	}
	if rem := wait % time.Second; rem != 0 {
		wait += time.Second - rem
	}
	return wait
}
