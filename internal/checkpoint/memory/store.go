// Package memory provides an in-memory checkpoint store for
// development, tests, and ephemeral runs.
package memory

import (
	"context"
	"sync"

	"github.com/acstiles/media-preloader/internal/preload"
)

// Store keeps snapshots in a map. Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	snaps map[preload.Domain]preload.Snapshot
}

// New constructs a Store.
func New() *Store {
	return &Store{snaps: make(map[preload.Domain]preload.Snapshot)}
}

// Save stores the snapshot for domain.
func (s *Store) Save(_ context.Context, domain preload.Domain, snap preload.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[domain] = snap
	return nil
}

// Load returns the stored snapshot, if any.
func (s *Store) Load(_ context.Context, domain preload.Domain) (preload.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snaps[domain]
	return snap, ok, nil
}

// Clear drops the snapshot for domain.
func (s *Store) Clear(_ context.Context, domain preload.Domain) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, domain)
	return nil
}
