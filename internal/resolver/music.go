package resolver

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/acstiles/media-preloader/internal/client"
	"github.com/acstiles/media-preloader/internal/preload"
)

// Music resolves Spotify references (track, album, artist, playlist)
// to detail records.
type Music struct {
	api    *client.Client
	logger *zap.Logger
}

// NewMusic constructs a Music resolver.
func NewMusic(api *client.Client, logger *zap.Logger) *Music {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Music{api: api, logger: logger}
}

type spotifyImage struct {
	URL string `json:"url"`
}

type spotifyArtistRef struct {
	Name string `json:"name"`
}

type spotifyTrack struct {
	Name       string             `json:"name"`
	Artists    []spotifyArtistRef `json:"artists"`
	Popularity float64            `json:"popularity"`
	Album      struct {
		ReleaseDate string         `json:"release_date"`
		Images      []spotifyImage `json:"images"`
	} `json:"album"`
}

type spotifyAlbum struct {
	Name        string             `json:"name"`
	Artists     []spotifyArtistRef `json:"artists"`
	ReleaseDate string             `json:"release_date"`
	Genres      []string           `json:"genres"`
	Images      []spotifyImage     `json:"images"`
	TotalTracks int                `json:"total_tracks"`
}

type spotifyArtist struct {
	Name       string         `json:"name"`
	Genres     []string       `json:"genres"`
	Images     []spotifyImage `json:"images"`
	Popularity float64        `json:"popularity"`
}

type spotifyPlaylist struct {
	Name  string `json:"name"`
	Owner struct {
		DisplayName string `json:"display_name"`
	} `json:"owner"`
	Images []spotifyImage `json:"images"`
	Tracks client.Page    `json:"tracks"`
}

// playlistEntry is one element of a playlist's tracks.items array.
type playlistEntry struct {
	Track struct {
		Name string `json:"name"`
	} `json:"track"`
}

// Resolve parses the Spotify URL and issues the typed lookup. Playlist
// records carry only the first page of track names; when the reported
// total exceeds the page, the record is marked Partial so the
// orchestrator's secondary pass can complete it.
func (m *Music) Resolve(ctx context.Context, ref preload.Reference) (*preload.DetailRecord, error) {
	parsed, err := ParseSpotify(ref.Value)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/v1/%ss/%s", parsed.Type, parsed.ID)
	switch parsed.Type {
	case "track":
		var t spotifyTrack
		found, err := m.api.GetJSON(ctx, path, &t)
		if err != nil || !found {
			return nil, wrapLookup(parsed, err)
		}
		return &preload.DetailRecord{
			Title:       t.Name,
			Contributor: firstArtist(t.Artists),
			Year:        yearFrom(t.Album.ReleaseDate),
			Genres:      []string{},
			ImageURL:    firstImage(t.Album.Images),
			Popularity:  t.Popularity,
		}, nil
	case "album":
		var a spotifyAlbum
		found, err := m.api.GetJSON(ctx, path, &a)
		if err != nil || !found {
			return nil, wrapLookup(parsed, err)
		}
		return &preload.DetailRecord{
			Title:       a.Name,
			Contributor: firstArtist(a.Artists),
			Year:        yearFrom(a.ReleaseDate),
			Genres:      normalizeGenres(a.Genres),
			ImageURL:    firstImage(a.Images),
			TrackCount:  a.TotalTracks,
		}, nil
	case "artist":
		var a spotifyArtist
		found, err := m.api.GetJSON(ctx, path, &a)
		if err != nil || !found {
			return nil, wrapLookup(parsed, err)
		}
		return &preload.DetailRecord{
			Title:       a.Name,
			Contributor: a.Name,
			Genres:      normalizeGenres(a.Genres),
			ImageURL:    firstImage(a.Images),
			Popularity:  a.Popularity,
		}, nil
	case "playlist":
		var p spotifyPlaylist
		found, err := m.api.GetJSON(ctx, path, &p)
		if err != nil || !found {
			return nil, wrapLookup(parsed, err)
		}
		rec := &preload.DetailRecord{
			Title:       p.Name,
			Contributor: p.Owner.DisplayName,
			Genres:      []string{},
			ImageURL:    firstImage(p.Images),
			Tracks:      trackNames(p.Tracks.Items),
			TrackCount:  p.Tracks.Total,
		}
		rec.Partial = !p.Tracks.Exhausted()
		return rec, nil
	}
	return nil, &preload.InvalidReferenceError{Ref: ref.Value, Reason: "unsupported Spotify resource type"}
}

// CompletePlaylist re-fetches a partially loaded playlist and follows
// the track pagination to the end, returning a full record. Used by
// the orchestrator's secondary background pass.
func (m *Music) CompletePlaylist(ctx context.Context, ref preload.Reference, rec *preload.DetailRecord) (*preload.DetailRecord, error) {
	parsed, err := ParseSpotify(ref.Value)
	if err != nil {
		return nil, err
	}
	if parsed.Type != "playlist" {
		return rec, nil
	}

	var p spotifyPlaylist
	found, err := m.api.GetJSON(ctx, "/v1/playlists/"+parsed.ID, &p)
	if err != nil {
		return nil, fmt.Errorf("refetch playlist %s: %w", parsed.ID, err)
	}
	if !found {
		return rec, nil
	}

	items, err := m.api.CollectPages(ctx, p.Tracks)
	if err != nil {
		return nil, fmt.Errorf("collect playlist %s tracks: %w", parsed.ID, err)
	}

	full := *rec
	full.Tracks = trackNames(items)
	full.TrackCount = len(full.Tracks)
	full.Partial = false
	return &full, nil
}

// wrapLookup keeps not-found as a nil record and annotates real errors
// with the failing resource.
func wrapLookup(parsed SpotifyRef, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("lookup %s %s: %w", parsed.Type, parsed.ID, err)
}

func firstArtist(artists []spotifyArtistRef) string {
	if len(artists) == 0 {
		return ""
	}
	return artists[0].Name
}

func firstImage(images []spotifyImage) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}

func trackNames(items []json.RawMessage) []string {
	names := make([]string, 0, len(items))
	for _, raw := range items {
		var entry playlistEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		if entry.Track.Name != "" {
			names = append(names, entry.Track.Name)
		}
	}
	return names
}
