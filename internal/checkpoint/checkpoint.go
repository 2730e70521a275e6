// Package checkpoint defines durable persistence for per-domain
// preload snapshots.
package checkpoint

import (
	"context"

	"github.com/acstiles/media-preloader/internal/preload"
)

// Store persists the last known-good snapshot per domain. Load returns
// (zero, false, nil) on a miss; a corrupt payload surfaces as a
// *preload.CheckpointParseError, which callers treat as a miss.
type Store interface {
	Save(ctx context.Context, domain preload.Domain, snap preload.Snapshot) error
	Load(ctx context.Context, domain preload.Domain) (preload.Snapshot, bool, error)
	Clear(ctx context.Context, domain preload.Domain) error
}
