package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newPurgeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete expired similarity and comparison rows",
		Long: `Delete expired rows from the configured cache backend once and exit.

Expired rows are never served, so purging only reclaims space. The redis
backend expires keys on its own and always reports zero.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			stores, err := openStores(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer stores.Close()

			sim, cmp, err := stores.Purge(ctx)
			if err != nil {
				return fmt.Errorf("purge: %w", err)
			}
			logger.Info("cache purged",
				zap.String("backend", stores.Backend),
				zap.Int64("similarity_removed", sim),
				zap.Int64("comparison_removed", cmp),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d similarity and %d comparison rows\n", sim, cmp)
			return nil
		},
	}
}
