package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/ig-profile-proxy/pkg/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultCacheTTL is how long a normalized record stays cached.
const DefaultCacheTTL = 600 * time.Second

// Lookup results used as metric label values.
const (
	resultCacheHit = "cache_hit"
	resultFetched  = "fetched"
	resultCanceled = "canceled"
)

var (
	profileLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "igproxy_profile_lookups_total",
		Help: "Total profile lookups by result (cache_hit, fetched, canceled or error kind)",
	}, []string{"result"})

	profileLookupDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "igproxy_profile_lookup_duration_seconds",
		Help:    "Profile lookup duration in seconds by result",
		Buckets: []float64{0.005, 0.05, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"result"})
)

// Fetcher retrieves the raw user object for a username from upstream.
// Implementations return *Error for classified failures and pass context
// errors through unwrapped or %w-wrapped.
type Fetcher interface {
	FetchProfile(ctx context.Context, username string) (*User, error)
}

// Config holds the service configuration.
type Config struct {
	// Store is the look-aside cache (REQUIRED)
	Store cache.Store

	// Upstream fetches raw profiles on a cache miss (REQUIRED)
	Upstream Fetcher

	// CacheTTL is the expiration applied to every cache write
	CacheTTL time.Duration

	// Logger receives operational detail. Defaults to the global logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns a configuration with the standard 600s TTL.
func DefaultConfig(store cache.Store, upstream Fetcher) Config {
	return Config{
		Store:    store,
		Upstream: upstream,
		CacheTTL: DefaultCacheTTL,
	}
}

// Service implements the cache-aside profile lookup.
// It holds no mutable state between calls; concurrent lookups for the same
// username are not coalesced and may each reach upstream.
type Service struct {
	store    cache.Store
	upstream Fetcher
	ttl      time.Duration
	logger   zerolog.Logger
}

// NewService creates a new profile service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("cache store is required")
	}

	if cfg.Upstream == nil {
		return nil, fmt.Errorf("upstream fetcher is required")
	}

	if cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("cache_ttl must be positive (got %s)", cfg.CacheTTL)
	}

	logger := log.With().Str("component", "profile-service").Logger()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "profile-service").Logger()
	}

	return &Service{
		store:    cfg.Store,
		upstream: cfg.Upstream,
		ttl:      cfg.CacheTTL,
		logger:   logger,
	}, nil
}

// GetProfile returns the normalized profile for username.
//
// Flow: cache lookup -> (hit) return; (miss) upstream fetch -> normalize ->
// cache write -> return. Cache failures never fail the lookup. Upstream
// failures return a *Error without touching the cache. Context
// cancellation is returned as the context's error.
func (s *Service) GetProfile(ctx context.Context, username string) (rec *Record, err error) {
	start := time.Now()
	result := ""
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("username", username).
				Interface("panic", r).
				Msg("Profile lookup panicked")
			rec = nil
			err = NewError(KindInternal, username, 0, fmt.Errorf("panic: %v", r))
		}
		if result == "" {
			result = lookupResult(err)
		}
		profileLookupsTotal.WithLabelValues(result).Inc()
		profileLookupDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	}()

	key := cache.ProfileKey(username)

	// Step 1: Check Cache
	if cached, ok := s.lookup(ctx, key, username); ok {
		result = resultCacheHit
		return cached, nil
	}

	// Step 2: Fetch upstream
	user, err := s.upstream.FetchProfile(ctx, username)
	if err != nil {
		return nil, s.classify(ctx, username, err)
	}

	// Step 3: Normalize
	record := Normalize(user)

	// Step 4: Populate cache (best effort)
	s.populate(ctx, key, username, &record)

	return &record, nil
}

// lookup reads and decodes a cached record. Any failure is reported as a miss.
func (s *Service) lookup(ctx context.Context, key, username string) (*Record, bool) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn().
				Err(err).
				Str("cache_key", key).
				Msg("Cache get error, treating as miss")
		} else {
			s.logger.Debug().Str("username", username).Msg("Cache miss")
		}
		return nil, false
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		s.logger.Warn().
			Err(err).
			Str("cache_key", key).
			Msg("Invalid cache entry, treating as miss")
		return nil, false
	}

	s.logger.Debug().Str("username", username).Msg("Cache hit")
	return &record, true
}

// populate writes the record with the configured TTL. Failures are logged only.
func (s *Service) populate(ctx context.Context, key, username string, record *Record) {
	data, err := json.Marshal(record)
	if err != nil {
		s.logger.Warn().Err(err).Str("cache_key", key).Msg("Failed to encode cache entry")
		return
	}

	if err := s.store.Set(ctx, key, data, s.ttl); err != nil {
		s.logger.Warn().Err(err).Str("cache_key", key).Msg("Failed to cache profile")
		return
	}

	s.logger.Info().
		Str("username", username).
		Dur("ttl", s.ttl).
		Msg("Cache set")
}

// classify turns an upstream failure into the caller-facing error.
func (s *Service) classify(ctx context.Context, username string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		s.logger.Debug().Err(err).Str("username", username).Msg("Lookup aborted by context")
		return fmt.Errorf("fetch %s: %w", username, ctxErr)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("fetch %s: %w", username, err)
	}

	var pe *Error
	if errors.As(err, &pe) {
		event := s.logger.Warn()
		if pe.Kind == KindInternal {
			event = s.logger.Error()
		}
		event.Err(err).
			Str("username", username).
			Str("error_kind", string(pe.Kind)).
			Int("status", pe.StatusCode).
			Msg("Upstream lookup failed")
		return pe
	}

	s.logger.Error().Err(err).Str("username", username).Msg("Unclassified upstream error")
	return NewError(KindInternal, username, 0, err)
}

func lookupResult(err error) string {
	switch {
	case err == nil:
		return resultFetched
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resultCanceled
	default:
		return string(KindOf(err))
	}
}
