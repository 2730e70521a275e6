package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/acstiles/media-preloader/internal/api"
	"github.com/acstiles/media-preloader/internal/app"
)

func newServeCmd() *cobra.Command {
	var preloadOnStart bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serves the preload API",
		Long: `Starts the HTTP server exposing per-domain state, trigger, and
reset endpoints, plus health and metrics. With --preload, all domains
are preloaded in the background as the server comes up.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), preloadOnStart)
		},
	}
	cmd.Flags().BoolVar(&preloadOnStart, "preload", true, "preload all domains on startup")
	return cmd
}

func runServe(parent context.Context, preloadOnStart bool) error {
	cfg, logger, err := loadServices()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	defer application.Close()

	orch := application.Orchestrator()
	if preloadOnStart {
		orch.TriggerAll(ctx)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewServer(orch, ctx, logger.Named("api")).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.Int("port", cfg.Server.Port))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}
	return nil
}
