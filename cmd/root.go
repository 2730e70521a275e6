// Package cmd defines and implements the CLI commands for the
// preloader executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/acstiles/media-preloader/internal/config"
	"github.com/acstiles/media-preloader/internal/logging"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preloader",
		Short: "Enrichment preloader for portfolio content collections.",
		Long: `preloader enriches portfolio content references (ISBNs, IMDb URLs,
Spotify URLs) against their upstream APIs, checkpointing results to a
local durable store so restarts skip redundant work.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newPreloadCmd())

	return cmd
}

// loadServices loads configuration and builds the logger; commands
// build the rest from these.
func loadServices() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, logger, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
