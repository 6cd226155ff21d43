package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/ig-profile-proxy/internal/config"
	"github.com/Sternrassler/ig-profile-proxy/pkg/logging"
)

// app carries state resolved once in PersistentPreRunE.
type app struct {
	configFile string
	config     *config.Config
	logger     zerolog.Logger
}

func newRootCommand(version, commit, date string) *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "ig-proxy",
		Short: "Cache-aside proxy for Instagram profile summaries",
		Long: `ig-proxy looks up public Instagram profiles, reduces them to a small
record (name, bio, counts, latest photos) and caches the result in Redis
or in memory for ten minutes.

Configuration is read from --config, a .env file in the working directory,
and the environment (API_KEY, REDIS_HOST, CACHE_BACKEND, ...).`,
		Example: `  # Run the HTTP API
  API_KEY=secret ig-proxy serve

  # Look up a single profile without starting a server
  CACHE_BACKEND=memory ig-proxy fetch instagram`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			a.config = cfg

			logCfg := cfg.Logging()
			logCfg.Output = cmd.ErrOrStderr()
			a.logger = logging.Setup(logCfg)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (YAML, JSON or .env)")

	rootCmd.AddCommand(newServeCommand(a))
	rootCmd.AddCommand(newFetchCommand(a))
	rootCmd.AddCommand(newVersionCommand(version, commit, date))

	return rootCmd
}

func newVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		// Skip config loading.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "ig-proxy %s (commit %s, built %s)\n", version, commit, date)
			return err
		},
	}
}
