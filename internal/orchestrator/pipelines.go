package orchestrator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/acstiles/media-preloader/internal/preload"
	"github.com/acstiles/media-preloader/internal/queue"
	"github.com/acstiles/media-preloader/internal/telemetry"
)

// buildItems runs the domain-specific pipeline and returns the merged
// item list plus the indices owed a secondary pass. The returned error
// only reports a failure of the pipeline itself (cancellation,
// misconfiguration); per-item failures are folded into reference-only
// items.
func (s *Service) buildItems(ctx context.Context, domain preload.Domain, logger *zap.Logger) ([]preload.Item, []int, error) {
	switch domain {
	case preload.DomainBooks:
		return s.buildBooks(ctx, logger)
	case preload.DomainMedia:
		return s.buildMedia(ctx, logger)
	case preload.DomainMusic:
		return s.buildMusic(ctx, logger)
	}
	return nil, nil, fmt.Errorf("unknown domain %q", domain)
}

func (s *Service) buildBooks(ctx context.Context, logger *zap.Logger) ([]preload.Item, []int, error) {
	if s.deps.Books == nil {
		return nil, nil, fmt.Errorf("books resolver not configured")
	}
	items := s.resolveBatch(ctx, preload.DomainBooks, s.deps.Feed.Books, s.deps.Books.Resolve, logger)
	return items, nil, ctx.Err()
}

func (s *Service) buildMedia(ctx context.Context, logger *zap.Logger) ([]preload.Item, []int, error) {
	if s.deps.Movies == nil || s.deps.TV == nil {
		return nil, nil, fmt.Errorf("media resolvers not configured")
	}
	authErr := s.checkCredentials(ctx, s.deps.MediaTokens, logger)

	// One IMDb id can name either a movie or a series; the movie
	// lookup runs first and the TV lookup covers its misses.
	resolve := func(ctx context.Context, ref preload.Reference) (*preload.DetailRecord, error) {
		rec, err := s.deps.Movies.Resolve(ctx, ref)
		if err != nil || rec != nil {
			return rec, err
		}
		return s.deps.TV.Resolve(ctx, ref)
	}
	items := s.resolveBatch(ctx, preload.DomainMedia, s.deps.Feed.Media, resolve, logger)
	if authErr != nil {
		return items, nil, authErr
	}
	return items, nil, ctx.Err()
}

// buildMusic stages the music pipeline for earliest visible paint:
// the small favorites list first, then the best-of playlist headline,
// then top tracks and top artists in parallel.
func (s *Service) buildMusic(ctx context.Context, logger *zap.Logger) ([]preload.Item, []int, error) {
	if s.deps.Music == nil {
		return nil, nil, fmt.Errorf("music resolver not configured")
	}
	authErr := s.checkCredentials(ctx, s.deps.Tokens, logger)

	items := s.resolveBatch(ctx, preload.DomainMusic, s.deps.Feed.MusicFavorites, s.deps.Music.Resolve, logger)

	if best := s.deps.Feed.BestOfPlaylist; best.Value != "" {
		headline := s.resolveBatch(ctx, preload.DomainMusic, []preload.Reference{best}, s.deps.Music.Resolve, logger)
		items = append(items, headline...)
	}

	if s.deps.Tops != nil {
		limit := s.deps.Feed.TopLimit
		tasks := []queue.Task[[]preload.Item]{
			func(ctx context.Context) ([]preload.Item, error) {
				return s.deps.Tops.TopTracks(ctx, limit)
			},
			func(ctx context.Context) ([]preload.Item, error) {
				return s.deps.Tops.TopArtists(ctx, limit)
			},
		}
		for _, shelf := range queue.Run(ctx, tasks, 2, 0, logger) {
			items = append(items, shelf...)
		}
	}

	var partials []int
	for i, item := range items {
		if item.Detail != nil && item.Detail.Partial {
			partials = append(partials, i)
		}
	}
	if authErr != nil {
		return items, partials, authErr
	}
	return items, partials, ctx.Err()
}

// checkCredentials acquires the domain's bearer token once before the
// fan-out, so absent or rejected credentials surface on the domain's
// error field. Resolution still proceeds: the fallback decorator can
// serve sample records without a token.
func (s *Service) checkCredentials(ctx context.Context, tokens preload.TokenSource, logger *zap.Logger) error {
	if tokens == nil {
		return nil
	}
	if _, err := tokens.Token(ctx); err != nil {
		logger.Warn("credential check failed", zap.Error(err))
		return fmt.Errorf("credentials: %w", err)
	}
	return nil
}

type indexedItem struct {
	idx  int
	item preload.Item
}

// resolveBatch fans the references out over the bounded queue and
// reassembles results in feed order. A reference whose task failed or
// resolved to nothing keeps its original un-enriched shape.
func (s *Service) resolveBatch(
	ctx context.Context,
	domain preload.Domain,
	refs []preload.Reference,
	resolve func(ctx context.Context, ref preload.Reference) (*preload.DetailRecord, error),
	logger *zap.Logger,
) []preload.Item {
	if len(refs) == 0 {
		return []preload.Item{}
	}

	tasks := make([]queue.Task[indexedItem], 0, len(refs))
	for i, ref := range refs {
		i, ref := i, ref
		tasks = append(tasks, func(ctx context.Context) (indexedItem, error) {
			rec, err := resolve(ctx, ref)
			if err != nil {
				return indexedItem{}, fmt.Errorf("resolve %s: %w", ref.Value, err)
			}
			return indexedItem{idx: i, item: preload.Item{Ref: ref, Detail: rec}}, nil
		})
	}

	settled := queue.Run(ctx, tasks, s.deps.Queue.Concurrency, s.deps.Queue.Delay, logger)

	out := make([]preload.Item, len(refs))
	for i, ref := range refs {
		out[i] = preload.Item{Ref: ref}
	}
	enriched := 0
	for _, res := range settled {
		out[res.idx] = res.item
		if res.item.Detail != nil {
			enriched++
			telemetry.CountItem(string(domain), "resolved")
		} else {
			telemetry.CountItem(string(domain), "skipped")
		}
	}
	for i := 0; i < len(refs)-len(settled); i++ {
		telemetry.CountItem(string(domain), "skipped")
	}
	logger.Debug("batch resolved",
		zap.Int("refs", len(refs)),
		zap.Int("enriched", enriched),
	)
	return out
}
