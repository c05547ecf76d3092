package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/NguyenVanDuc36/AffiliHub/internal/cache"
	"github.com/NguyenVanDuc36/AffiliHub/internal/comparison"
	"github.com/NguyenVanDuc36/AffiliHub/internal/similarity"
)

func newInvalidateCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invalidate",
		Short: "Drop one cached similarity or comparison result",
		Long: `Drop a single cached result so the next request regenerates it.

Use it after a product's data changes and a stale ranking or comparison
should not wait for its TTL.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "similarity <productId>",
		Short:   "Drop the cached similar-products ranking for a product",
		Example: "  affilihub cache invalidate similarity 5",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseProductIDs(args)
			if err != nil {
				return err
			}
			return withStores(cmd, *configPath, func(ctx context.Context, stores *cache.Stores, logger *zap.Logger) error {
				if err := invalidateSimilarity(ctx, stores, ids[0]); err != nil {
					return err
				}
				logger.Info("similarity cache entry invalidated", zap.Int64("product_id", ids[0]))
				fmt.Fprintf(cmd.OutOrStdout(), "invalidated similarity for product %d\n", ids[0])
				return nil
			})
		},
	})

	var preference string
	cmpCmd := &cobra.Command{
		Use:     "comparison <productId> <productId>...",
		Short:   "Drop the cached comparison for a product set",
		Example: `  affilihub cache invalidate comparison 9 5 --preference "long battery life"`,
		Args:    cobra.MinimumNArgs(comparison.MinProducts),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseProductIDs(args)
			if err != nil {
				return err
			}
			return withStores(cmd, *configPath, func(ctx context.Context, stores *cache.Stores, logger *zap.Logger) error {
				if err := invalidateComparison(ctx, stores, ids, preference); err != nil {
					return err
				}
				key := cache.ComparisonKey(ids, preference)
				logger.Info("comparison cache entry invalidated", zap.String("cache_key", key))
				fmt.Fprintf(cmd.OutOrStdout(), "invalidated %s\n", key)
				return nil
			})
		},
	}
	cmpCmd.Flags().StringVar(&preference, "preference", "", "user preference the comparison was requested with")
	cmd.AddCommand(cmpCmd)

	return cmd
}

// Only the cache is touched, so the resolvers get no catalog or generator.
func invalidateSimilarity(ctx context.Context, stores *cache.Stores, productID int64) error {
	r := similarity.New(nil, nil, stores.Similarity, similarity.Options{})
	if err := r.Invalidate(ctx, productID); err != nil {
		return fmt.Errorf("invalidate similarity: %w", err)
	}
	return nil
}

func invalidateComparison(ctx context.Context, stores *cache.Stores, productIDs []int64, preference string) error {
	r := comparison.New(nil, nil, stores.Comparison, comparison.Options{})
	if err := r.Invalidate(ctx, productIDs, preference); err != nil {
		return fmt.Errorf("invalidate comparison: %w", err)
	}
	return nil
}

func withStores(cmd *cobra.Command, configPath string, fn func(context.Context, *cache.Stores, *zap.Logger) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, logger, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	stores, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	return fn(ctx, stores, logger)
}

func parseProductIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid product id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
