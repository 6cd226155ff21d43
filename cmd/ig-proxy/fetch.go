package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newFetchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <username>",
		Short: "Look up one profile and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.config.ValidateLookup(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, cancel := context.WithTimeout(ctx, a.config.RequestTimeout)
			defer cancel()

			deps, err := buildComponents(ctx, a.config, a.logger)
			if err != nil {
				return err
			}
			defer deps.Close()

			rec, err := deps.service.GetProfile(ctx, args[0])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		},
	}
}
