// Package app initializes and holds long-lived application services,
// acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/acstiles/media-preloader/internal/checkpoint"
	checkpointfile "github.com/acstiles/media-preloader/internal/checkpoint/file"
	checkpointmem "github.com/acstiles/media-preloader/internal/checkpoint/memory"
	checkpointpg "github.com/acstiles/media-preloader/internal/checkpoint/postgres"
	"github.com/acstiles/media-preloader/internal/client"
	"github.com/acstiles/media-preloader/internal/clock/system"
	"github.com/acstiles/media-preloader/internal/config"
	"github.com/acstiles/media-preloader/internal/id/uuid"
	"github.com/acstiles/media-preloader/internal/orchestrator"
	"github.com/acstiles/media-preloader/internal/preload"
	"github.com/acstiles/media-preloader/internal/ratelimit"
	"github.com/acstiles/media-preloader/internal/resolver"
)

// App holds the shared, long-lived services: the logger, the
// checkpoint store, and the orchestrator built on top of them. It is
// initialized once at startup and passed to the commands that need it.
type App struct {
	logger       *zap.Logger
	orchestrator *orchestrator.Service
	closeStore   func()
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Orchestrator returns the preload coordinator.
func (a *App) Orchestrator() *orchestrator.Service {
	return a.orchestrator
}

// Close waits for in-flight pipelines and releases resources.
func (a *App) Close() {
	a.orchestrator.Wait()
	if a.closeStore != nil {
		a.closeStore()
	}
	_ = a.logger.Sync()
}

// New wires the full service from configuration: checkpoint provider,
// upstream clients, resolvers (fallback-wrapped when enabled), and the
// orchestrator. It fails fast if any critical piece cannot be built.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	store, closeStore, err := buildStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	backoff := client.BackoffPolicy{
		Base:       time.Duration(cfg.HTTP.BackoffBaseMs) * time.Millisecond,
		Max:        time.Duration(cfg.HTTP.BackoffMaxMs) * time.Millisecond,
		MaxRetries: cfg.HTTP.MaxRetries,
	}

	spotifyTokens := client.NewRefreshTokenSource(client.RefreshTokenConfig{
		TokenURL:     cfg.Spotify.TokenURL,
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RefreshToken: cfg.Spotify.RefreshToken,
		Timeout:      cfg.ClientTimeout(),
	}, logger.Named("spotify_auth"))

	spotifyAPI := client.New(client.Config{
		Provider: "spotify",
		BaseURL:  cfg.Spotify.APIURL,
		Timeout:  cfg.ClientTimeout(),
		Backoff:  backoff,
	}, spotifyTokens, ratelimit.New(ratelimit.Config{DefaultRPS: cfg.Spotify.RPS}), logger.Named("spotify"))

	tmdbTokens := client.NewStaticTokenSource(cfg.TMDB.Token)

	tmdbAPI := client.New(client.Config{
		Provider: "tmdb",
		BaseURL:  cfg.TMDB.APIURL,
		Timeout:  cfg.ClientTimeout(),
		Backoff:  backoff,
	}, tmdbTokens, ratelimit.New(ratelimit.Config{DefaultRPS: cfg.TMDB.RPS}), logger.Named("tmdb"))

	openLibraryAPI := client.New(client.Config{
		Provider: "openlibrary",
		BaseURL:  cfg.OpenLibrary.APIURL,
		Timeout:  cfg.ClientTimeout(),
		Backoff:  backoff,
	}, nil, ratelimit.New(ratelimit.Config{DefaultRPS: cfg.OpenLibrary.RPS}), logger.Named("openlibrary"))

	music := resolver.NewMusic(spotifyAPI, logger.Named("music"))
	movies := resolver.NewMovie(tmdbAPI, logger.Named("movies"))
	tv := resolver.NewTV(tmdbAPI, logger.Named("tv"))
	books := resolver.NewBook(openLibraryAPI, logger.Named("books"))

	deps := orchestrator.Deps{
		Store:       store,
		Books:       wrapFallback(books, cfg, logger),
		Movies:      wrapFallback(movies, cfg, logger),
		TV:          wrapFallback(tv, cfg, logger),
		Music:       wrapFallback(music, cfg, logger),
		Playlists:   music,
		Tops:        music,
		Tokens:      spotifyTokens,
		MediaTokens: tmdbTokens,
		Feed:        buildFeed(cfg.Content),
		Queue: orchestrator.QueueConfig{
			Concurrency: cfg.Queue.Concurrency,
			Delay:       cfg.QueueDelay(),
		},
		Clock:  system.New(),
		IDs:    uuid.NewGenerator(),
		Logger: logger.Named("orchestrator"),
	}

	orch, err := orchestrator.New(ctx, deps)
	if err != nil {
		if closeStore != nil {
			closeStore()
		}
		return nil, fmt.Errorf("build orchestrator: %w", err)
	}

	logger.Info("application services initialized",
		zap.String("checkpoint_provider", cfg.Checkpoint.Provider),
		zap.Bool("offline_fallback", cfg.Fallback.Enabled),
	)
	return &App{
		logger:       logger,
		orchestrator: orch,
		closeStore:   closeStore,
	}, nil
}

func buildStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (checkpoint.Store, func(), error) {
	switch cfg.Checkpoint.Provider {
	case "file":
		store, err := checkpointfile.New(checkpointfile.Config{BaseDir: cfg.Checkpoint.BaseDir})
		if err != nil {
			return nil, nil, fmt.Errorf("init file checkpoint store: %w", err)
		}
		logger.Info("using file checkpoint store", zap.String("base_dir", cfg.Checkpoint.BaseDir))
		return store, nil, nil
	case "postgres":
		store, err := checkpointpg.New(ctx, checkpointpg.Config{
			DSN:   cfg.Checkpoint.DSN,
			Table: cfg.Checkpoint.Table,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init postgres checkpoint store: %w", err)
		}
		logger.Info("using postgres checkpoint store", zap.String("table", cfg.Checkpoint.Table))
		return store, store.Close, nil
	case "memory":
		logger.Info("using in-memory checkpoint store; checkpoints will not survive restarts")
		return checkpointmem.New(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown checkpoint provider %q", cfg.Checkpoint.Provider)
	}
}

func wrapFallback(inner preload.Resolver, cfg config.Config, logger *zap.Logger) preload.Resolver {
	if !cfg.Fallback.Enabled {
		return inner
	}
	return resolver.NewFallback(inner, nil, logger.Named("fallback"))
}

func buildFeed(content config.ContentConfig) orchestrator.Feed {
	feed := orchestrator.Feed{
		Media:          toRefs(content.Media, preload.RefIMDB),
		Books:          toRefs(content.Books, preload.RefISBN),
		MusicFavorites: toRefs(content.MusicFavorites, preload.RefSpotify),
		TopLimit:       content.TopLimit,
	}
	if content.BestOfPlaylist != "" {
		feed.BestOfPlaylist = preload.Reference{
			Kind:  preload.RefSpotify,
			Value: content.BestOfPlaylist,
			Label: "Best Of",
		}
	}
	return feed
}

func toRefs(refs []config.FeedRef, kind preload.RefKind) []preload.Reference {
	out := make([]preload.Reference, 0, len(refs))
	for _, r := range refs {
		out = append(out, preload.Reference{Kind: kind, Value: r.Value, Label: r.Label})
	}
	return out
}
