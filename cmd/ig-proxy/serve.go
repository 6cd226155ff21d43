package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/ig-profile-proxy/internal/server"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(parent context.Context) error {
	if err := a.config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if parent == nil {
		parent = context.Background()
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := buildComponents(ctx, a.config, a.logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	limiter, err := buildLimiter(a.config, deps.redis, a.logger)
	if err != nil {
		return fmt.Errorf("create rate limiter: %w", err)
	}

	srv, err := server.New(server.Config{
		Addr:           a.config.ListenAddr,
		APIKey:         a.config.APIKey,
		Profiles:       deps.service,
		Limiter:        limiter,
		Health:         deps.health(),
		RequestTimeout: a.config.RequestTimeout,
		Logger:         &a.logger,
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	a.logger.Info().
		Str("cache_backend", a.config.CacheBackend).
		Str("rate_limit_backend", a.config.RateLimitBackend).
		Str("rate_limit", a.config.RateLimit().String()).
		Dur("cache_ttl", a.config.CacheTTL).
		Msg("Configuration loaded")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
