/*
Package main is the affilihub command.

Usage:

	affilihub serve [--config config.yaml]
	affilihub cache purge [--config config.yaml]
	affilihub cache invalidate similarity <productId>
	affilihub cache invalidate comparison <productId> <productId>... [--preference text]

serve runs the HTTP API: catalog listings, AI similar-product and
comparison lookups backed by the result cache, and the shopping assistant.
cache purge drops expired cache rows once and exits. cache invalidate
drops a single cached result so the next request regenerates it.
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// set via ldflags
var version = "dev"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "affilihub",
		Short:         "Affiliate storefront API with cached AI product insights",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the YAML config (default $AFFILIHUB_CONFIG or config.yaml)")

	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Maintain the similarity and comparison cache",
	}
	cacheCmd.AddCommand(newPurgeCmd(&configPath), newInvalidateCmd(&configPath))

	rootCmd.AddCommand(newServeCmd(&configPath))
	rootCmd.AddCommand(cacheCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
