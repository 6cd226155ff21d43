// Package server exposes the profile lookup over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/ig-profile-proxy/pkg/cache"
	"github.com/Sternrassler/ig-profile-proxy/pkg/profile"
	"github.com/Sternrassler/ig-profile-proxy/pkg/ratelimit"
)

// APIKeyHeader carries the shared secret on every API request.
const APIKeyHeader = "api-key"

// Defaults.
const (
	DefaultAddr           = ":8000"
	DefaultRequestTimeout = 30 * time.Second
	readyTimeout          = 2 * time.Second
)

// ProfileGetter is the lookup the API route serves.
type ProfileGetter interface {
	GetProfile(ctx context.Context, username string) (*profile.Record, error)
}

// Config holds server configuration.
type Config struct {
	// Addr is the listen address
	Addr string

	// APIKey is compared against the api-key header (REQUIRED)
	APIKey string

	// Profiles serves lookups (REQUIRED)
	Profiles ProfileGetter

	// Limiter throttles API requests per client IP (REQUIRED)
	Limiter ratelimit.Limiter

	// Health backs /ready. Nil means always ready.
	Health cache.HealthChecker

	// RequestTimeout bounds each API request
	RequestTimeout time.Duration

	// Logger defaults to the global logger.
	Logger *zerolog.Logger
}

// Server is the HTTP front end.
type Server struct {
	config   Config
	logger   zerolog.Logger
	validate *validator.Validate
	handler  http.Handler
	http     *http.Server
}

// New creates a server. Call ListenAndServe to start it.
func New(cfg Config) (*Server, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.Profiles == nil {
		return nil, fmt.Errorf("profile getter is required")
	}
	if cfg.Limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	logger := log.With().Str("component", "http-server").Logger()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "http-server").Logger()
	}

	s := &Server{
		config:   cfg,
		logger:   logger,
		validate: newValidator(),
	}
	s.handler = s.routes()
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe blocks until the server stops. It returns nil after Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info().Str("addr", s.config.Addr).Msg("Starting HTTP server")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen on %s: %w", s.config.Addr, err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server")
	return s.http.Shutdown(ctx)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	api := s.requireAPIKey(s.rateLimit(http.HandlerFunc(s.handleProfile)))
	mux.Handle("GET /api/instagram/{username}", instrument("profile", api))
	mux.Handle("GET /health", instrument("health", http.HandlerFunc(handleHealth)))
	mux.Handle("GET /ready", instrument("ready", http.HandlerFunc(s.handleReady)))
	mux.Handle("GET /metrics", instrument("metrics", metricsHandler()))

	return s.recoverPanics(s.requestID(s.logRequests(mux)))
}
