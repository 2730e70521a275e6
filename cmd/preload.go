package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/acstiles/media-preloader/internal/app"
	"github.com/acstiles/media-preloader/internal/preload"
)

func newPreloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preload",
		Short: "Runs all domain pipelines once and exits",
		Long: `Enriches every domain sequentially (media, music, books),
checkpointing results, then prints a per-domain summary. A later serve
or preload run restores the checkpoints and skips the work.`,
		RunE: runPreload,
	}
}

func runPreload(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadServices()
	if err != nil {
		return err
	}

	application, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	defer application.Close()

	orch := application.Orchestrator()
	orch.PreloadAll(cmd.Context())
	orch.Wait()

	for _, domain := range preload.AllDomains {
		state := orch.State(domain)
		enriched := 0
		for _, item := range state.Items {
			if item.Detail != nil {
				enriched++
			}
		}
		logger.Info("domain summary",
			zap.String("domain", string(domain)),
			zap.Bool("loaded", state.Loaded),
			zap.Int("items", len(state.Items)),
			zap.Int("enriched", enriched),
			zap.String("error", state.Error),
		)
	}
	return nil
}
