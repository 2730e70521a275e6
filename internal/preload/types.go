// Package preload defines core types shared across subsystems.
package preload

import "time"

// Domain identifies one preloadable content collection.
type Domain string

// Domains persisted in the checkpoint store and addressed by the API.
const (
	DomainMusic Domain = "music"
	DomainBooks Domain = "books"
	DomainMedia Domain = "media"
)

// AllDomains lists domains in preload order. The order keeps all three
// pipelines inside one shared upstream rate-limit budget.
var AllDomains = []Domain{DomainMedia, DomainMusic, DomainBooks}

// Valid reports whether d names a known domain.
func (d Domain) Valid() bool {
	switch d {
	case DomainMusic, DomainBooks, DomainMedia:
		return true
	}
	return false
}

// RefKind classifies the source a reference points at.
type RefKind string

// Reference kinds supplied by the content feed.
const (
	RefISBN    RefKind = "isbn"
	RefIMDB    RefKind = "imdb"
	RefSpotify RefKind = "spotify"
)

// Reference is an opaque identifier naming external content to enrich:
// a bare ISBN, an IMDb title URL, or a Spotify resource URL. References
// are immutable and come from the content feed.
type Reference struct {
	Kind  RefKind `json:"kind"`
	Value string  `json:"value"`
	Label string  `json:"label,omitempty"`
}

// DetailRecord is the normalized enrichment result for one Reference.
// Optional fields hold explicit zero values rather than being omitted,
// so consumers can rely on field presence. Never mutated after creation.
type DetailRecord struct {
	Title       string   `json:"title"`
	Contributor string   `json:"contributor"`
	Year        int      `json:"year"`
	Genres      []string `json:"genres"`
	ImageURL    string   `json:"image_url"`

	// Source-specific extras.
	Pages      int     `json:"pages"`
	RuntimeMin int     `json:"runtime_min"`
	Seasons    int     `json:"seasons"`
	Episodes   int     `json:"episodes"`
	TrackCount int     `json:"track_count"`
	Popularity float64 `json:"popularity"`

	// Partial marks a record whose expensive sub-resources (playlist
	// track listings) were truncated and are owed a secondary pass.
	Partial bool     `json:"partial,omitempty"`
	Tracks  []string `json:"tracks,omitempty"`
}

// Item pairs a Reference with its enrichment, when any resolved.
// Detail is nil for items that failed to resolve; the UI renders those
// from the reference alone.
type Item struct {
	Ref    Reference     `json:"ref"`
	Detail *DetailRecord `json:"detail,omitempty"`
}

// CollectionState is the per-domain in-memory status plus data.
// Invariant: Loaded and Loading are never both true. Only the
// orchestrator mutates it, by whole-value replacement.
type CollectionState struct {
	Loaded   bool      `json:"loaded"`
	Loading  bool      `json:"loading"`
	Error    string    `json:"error,omitempty"`
	Items    []Item    `json:"items"`
	LoadedAt time.Time `json:"loaded_at,omitzero"`
}

// Snapshot is the durable form of a CollectionState: the substantive
// data fields with the transient Loading/Error stripped.
type Snapshot struct {
	Items    []Item    `json:"items"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Snapshot derives the persistable view of the state.
func (s CollectionState) Snapshot() Snapshot {
	return Snapshot{Items: s.Items, LoadedAt: s.LoadedAt}
}

// Restore rebuilds a loaded CollectionState from a snapshot.
func (s Snapshot) Restore() CollectionState {
	return CollectionState{
		Loaded:   true,
		Items:    s.Items,
		LoadedAt: s.LoadedAt,
	}
}
