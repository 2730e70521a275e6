package resolver

import (
	"context"
	"fmt"

	"github.com/acstiles/media-preloader/internal/preload"
)

type spotifyTopEntry struct {
	Name         string             `json:"name"`
	Artists      []spotifyArtistRef `json:"artists"`
	Genres       []string           `json:"genres"`
	Popularity   float64            `json:"popularity"`
	Images       []spotifyImage     `json:"images"`
	ExternalURLs map[string]string  `json:"external_urls"`
	Album        struct {
		ReleaseDate string         `json:"release_date"`
		Images      []spotifyImage `json:"images"`
	} `json:"album"`
}

type spotifyTopPage struct {
	Items []spotifyTopEntry `json:"items"`
}

// TopTracks fetches the listening-history top tracks for the token's
// user, already shaped as preload items.
func (m *Music) TopTracks(ctx context.Context, limit int) ([]preload.Item, error) {
	return m.top(ctx, "tracks", limit)
}

// TopArtists fetches the listening-history top artists.
func (m *Music) TopArtists(ctx context.Context, limit int) ([]preload.Item, error) {
	return m.top(ctx, "artists", limit)
}

func (m *Music) top(ctx context.Context, kind string, limit int) ([]preload.Item, error) {
	if limit <= 0 {
		limit = 10
	}
	var page spotifyTopPage
	path := fmt.Sprintf("/v1/me/top/%s?limit=%d", kind, limit)
	found, err := m.api.GetJSON(ctx, path, &page)
	if err != nil {
		return nil, fmt.Errorf("top %s: %w", kind, err)
	}
	if !found {
		return nil, nil
	}

	items := make([]preload.Item, 0, len(page.Items))
	for _, entry := range page.Items {
		detail := &preload.DetailRecord{
			Title:       entry.Name,
			Contributor: firstArtist(entry.Artists),
			Year:        yearFrom(entry.Album.ReleaseDate),
			Genres:      normalizeGenres(entry.Genres),
			ImageURL:    firstImage(entry.Images),
			Popularity:  entry.Popularity,
		}
		if detail.ImageURL == "" {
			detail.ImageURL = firstImage(entry.Album.Images)
		}
		if detail.Contributor == "" {
			detail.Contributor = entry.Name
		}
		items = append(items, preload.Item{
			Ref: preload.Reference{
				Kind:  preload.RefSpotify,
				Value: entry.ExternalURLs["spotify"],
				Label: entry.Name,
			},
			Detail: detail,
		})
	}
	return items, nil
}
