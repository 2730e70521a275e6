// Package orchestrator coordinates the per-domain preload pipelines:
// checkpoint restore, enrichment fan-out, state transitions, and
// incremental re-persistence.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/acstiles/media-preloader/internal/checkpoint"
	"github.com/acstiles/media-preloader/internal/preload"
	"github.com/acstiles/media-preloader/internal/telemetry"
)

// TopSource fetches listening-history shelves for the music domain.
type TopSource interface {
	TopTracks(ctx context.Context, limit int) ([]preload.Item, error)
	TopArtists(ctx context.Context, limit int) ([]preload.Item, error)
}

// PlaylistCompleter finishes partially loaded playlist records by
// following their track pagination to the end.
type PlaylistCompleter interface {
	CompletePlaylist(ctx context.Context, ref preload.Reference, rec *preload.DetailRecord) (*preload.DetailRecord, error)
}

// Feed is the opaque content input: the references each domain
// enriches. Authoring and rendering of this content is out of scope.
type Feed struct {
	Media          []preload.Reference
	Books          []preload.Reference
	MusicFavorites []preload.Reference
	BestOfPlaylist preload.Reference
	TopLimit       int
}

// QueueConfig tunes the enrichment fan-out per domain.
type QueueConfig struct {
	Concurrency int
	Delay       time.Duration
}

// Deps carries the orchestrator's collaborators. Books/Movies/TV/Music
// are enrichment resolvers (possibly fallback-wrapped); Playlists and
// Tops are optional and skip their pipeline stages when nil. Tokens and
// MediaTokens are the music and media credentials; each is checked once
// at the top of its pipeline so missing credentials land on the
// domain's error field instead of failing every item quietly.
type Deps struct {
	Store       checkpoint.Store
	Books       preload.Resolver
	Movies      preload.Resolver
	TV          preload.Resolver
	Music       preload.Resolver
	Playlists   PlaylistCompleter
	Tops        TopSource
	Tokens      preload.TokenSource
	MediaTokens preload.TokenSource
	Feed        Feed
	Queue       QueueConfig
	Clock       preload.Clock
	IDs         preload.IDGenerator
	Logger      *zap.Logger
}

// Service owns the per-domain CollectionState map. All mutation goes
// through it, by whole-value replacement under one mutex, so consumers
// never observe a half-written state.
type Service struct {
	deps   Deps
	logger *zap.Logger

	mu     sync.Mutex
	states map[preload.Domain]preload.CollectionState
	gens   map[preload.Domain]uint64

	subMu   sync.Mutex
	subs    map[int]chan Update
	nextSub int

	wg sync.WaitGroup
}

// New constructs the Service and restores checkpoints. Restore is
// attempted exactly once per domain; a parse failure is logged and
// treated as a miss, never as a fatal error.
func New(ctx context.Context, deps Deps) (*Service, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("checkpoint store is required")
	}
	if deps.Clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Queue.Concurrency <= 0 {
		deps.Queue.Concurrency = 3
	}

	s := &Service{
		deps:   deps,
		logger: deps.Logger,
		states: make(map[preload.Domain]preload.CollectionState),
		gens:   make(map[preload.Domain]uint64),
		subs:   make(map[int]chan Update),
	}

	for _, domain := range preload.AllDomains {
		snap, ok, err := deps.Store.Load(ctx, domain)
		if err != nil {
			s.logger.Warn("checkpoint restore failed, starting cold",
				zap.String("domain", string(domain)),
				zap.Error(err),
			)
			s.states[domain] = preload.CollectionState{Items: []preload.Item{}}
			continue
		}
		if ok {
			s.logger.Info("checkpoint restored",
				zap.String("domain", string(domain)),
				zap.Int("items", len(snap.Items)),
			)
			s.states[domain] = snap.Restore()
			continue
		}
		s.states[domain] = preload.CollectionState{Items: []preload.Item{}}
	}
	return s, nil
}

// State returns a copy of the domain's current state.
func (s *Service) State(domain preload.Domain) preload.CollectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[domain]
}

// Trigger starts the domain's preload pipeline on its own goroutine.
// It is idempotent: while the domain is loading or already loaded the
// call is a no-op. The bool reports whether a run was started.
func (s *Service) Trigger(ctx context.Context, domain preload.Domain) bool {
	gen, ok := s.begin(domain)
	if !ok {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runPipeline(ctx, domain, gen)
	}()
	return true
}

// PreloadAll runs the domains one after another, in a fixed order, to
// stay inside the shared upstream rate-limit budget. Domains already
// loaded or loading are skipped. Secondary passes still run in the
// background and may overlap the next domain.
func (s *Service) PreloadAll(ctx context.Context) {
	for _, domain := range preload.AllDomains {
		if gen, ok := s.begin(domain); ok {
			s.runPipeline(ctx, domain, gen)
		}
	}
}

// TriggerAll runs PreloadAll on its own goroutine, tracked for
// graceful shutdown.
func (s *Service) TriggerAll(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.PreloadAll(ctx)
	}()
}

// Reset synchronously clears both the durable checkpoint and the
// in-memory state, returning the domain to its initial unloaded value.
// An in-flight run for the domain is orphaned: its results are
// discarded on completion.
func (s *Service) Reset(ctx context.Context, domain preload.Domain) error {
	s.mu.Lock()
	s.gens[domain]++
	s.states[domain] = preload.CollectionState{Items: []preload.Item{}}
	state := s.states[domain]
	s.mu.Unlock()

	if err := s.deps.Store.Clear(ctx, domain); err != nil {
		return fmt.Errorf("clear checkpoint: %w", err)
	}
	s.publish(domain, state)
	s.logger.Info("domain reset", zap.String("domain", string(domain)))
	return nil
}

// Wait blocks until all in-flight pipeline goroutines finish. Used by
// graceful shutdown and tests.
func (s *Service) Wait() {
	s.wg.Wait()
}

// begin performs the guarded Unloaded -> Loading transition.
func (s *Service) begin(domain preload.Domain) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.states[domain]
	if state.Loading || state.Loaded {
		return 0, false
	}
	state.Loading = true
	state.Error = ""
	s.states[domain] = state
	gen := s.gens[domain]
	s.publish(domain, state)
	return gen, true
}

func (s *Service) runPipeline(ctx context.Context, domain preload.Domain, gen uint64) {
	runID := s.newRunID()
	logger := s.logger.With(
		zap.String("domain", string(domain)),
		zap.String("run_id", runID),
	)
	logger.Info("preload started")
	start := time.Now()

	if s.deps.Tokens != nil {
		// Tokens are cached per run, never across runs.
		s.deps.Tokens.Invalidate()
	}

	items, partials, err := s.buildItems(ctx, domain, logger)

	errText := ""
	if err != nil {
		errText = err.Error()
		logger.Error("pipeline setup failed", zap.Error(err))
	}

	next := preload.CollectionState{
		Loaded:   true,
		Error:    errText,
		Items:    items,
		LoadedAt: s.deps.Clock.Now(),
	}
	if !s.commit(domain, gen, next) {
		logger.Info("run orphaned by reset, discarding results")
		return
	}
	s.saveCheckpoint(ctx, domain, next, logger)
	logger.Info("preload finished",
		zap.Int("items", len(items)),
		zap.Duration("took", time.Since(start)),
	)

	if len(partials) > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.secondaryPass(ctx, domain, gen, partials, logger)
		}()
	}
}

// commit replaces the domain state if no reset happened since the run
// began.
func (s *Service) commit(domain preload.Domain, gen uint64, next preload.CollectionState) bool {
	s.mu.Lock()
	if s.gens[domain] != gen {
		s.mu.Unlock()
		return false
	}
	s.states[domain] = next
	s.mu.Unlock()
	s.publish(domain, next)
	return true
}

// saveCheckpoint persists the state's snapshot. Saves are skipped
// while loading or when there is nothing substantive to persist, so a
// known-incomplete snapshot never reaches the store.
func (s *Service) saveCheckpoint(ctx context.Context, domain preload.Domain, state preload.CollectionState, logger *zap.Logger) {
	if state.Loading || len(state.Items) == 0 {
		return
	}
	if err := s.deps.Store.Save(ctx, domain, state.Snapshot()); err != nil {
		logger.Warn("checkpoint save failed", zap.Error(err))
		return
	}
	telemetry.CountCheckpointWrite(string(domain))
}

// secondaryPass completes expensive sub-resources (playlist track
// listings) after the Loaded transition, re-saving the checkpoint per
// completed sub-resource. Failures are logged and swallowed per item.
func (s *Service) secondaryPass(ctx context.Context, domain preload.Domain, gen uint64, partials []int, logger *zap.Logger) {
	if s.deps.Playlists == nil {
		return
	}
	for _, idx := range partials {
		s.mu.Lock()
		if s.gens[domain] != gen {
			s.mu.Unlock()
			return
		}
		state := s.states[domain]
		if idx >= len(state.Items) || state.Items[idx].Detail == nil {
			s.mu.Unlock()
			continue
		}
		item := state.Items[idx]
		s.mu.Unlock()

		full, err := s.deps.Playlists.CompletePlaylist(ctx, item.Ref, item.Detail)
		if err != nil {
			logger.Warn("secondary pass item failed",
				zap.String("ref", item.Ref.Value),
				zap.Error(err),
			)
			continue
		}
		if full == nil || full == item.Detail {
			continue
		}

		s.mu.Lock()
		if s.gens[domain] != gen {
			s.mu.Unlock()
			return
		}
		state = s.states[domain]
		items := append([]preload.Item(nil), state.Items...)
		items[idx] = preload.Item{Ref: item.Ref, Detail: full}
		state.Items = items
		s.states[domain] = state
		s.mu.Unlock()

		s.publish(domain, state)
		s.saveCheckpoint(ctx, domain, state, logger)
		logger.Debug("secondary pass item completed",
			zap.String("ref", item.Ref.Value),
			zap.Int("tracks", len(full.Tracks)),
		)
	}
}

func (s *Service) newRunID() string {
	if s.deps.IDs == nil {
		return "run"
	}
	id, err := s.deps.IDs.NewID()
	if err != nil {
		return "run"
	}
	return id
}
