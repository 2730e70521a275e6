package resolver

import "github.com/acstiles/media-preloader/internal/preload"

// builtinSamples is the offline sample set, keyed by normalized
// reference id (ISBN, IMDb tt id, or Spotify resource id). Small on
// purpose: it only needs to cover the ids the demo content feed ships
// with, so a run with no credentials still paints something.
var builtinSamples = map[string]preload.DetailRecord{
	// Books.
	"9780134190440": {
		Title:       "The Go Programming Language",
		Contributor: "Alan A. A. Donovan",
		Year:        2015,
		Genres:      []string{"Programming"},
		Pages:       380,
	},
	"9780441172719": {
		Title:       "Dune",
		Contributor: "Frank Herbert",
		Year:        1965,
		Genres:      []string{"Science Fiction"},
		Pages:       412,
	},
	// Media.
	"tt0109830": {
		Title:       "Forrest Gump",
		Contributor: "Robert Zemeckis",
		Year:        1994,
		Genres:      []string{"Drama"},
		RuntimeMin:  142,
	},
	"tt0903747": {
		Title:       "Breaking Bad",
		Contributor: "Vince Gilligan",
		Year:        2008,
		Genres:      []string{"Crime", "Drama"},
		Seasons:     5,
		Episodes:    62,
	},
	// Music.
	"2JzZzZUQj3Qff7wapcbKjc": {
		Title:       "Clair de Lune",
		Contributor: "Claude Debussy",
		Year:        1905,
		Genres:      []string{"Classical"},
	},
	"4aawyAB9vmqN3uQ7FjRGTy": {
		Title:       "Global Warming",
		Contributor: "Pitbull",
		Year:        2012,
		Genres:      []string{"Pop"},
	},
}
