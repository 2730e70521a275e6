package resolver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/acstiles/media-preloader/internal/client"
	"github.com/acstiles/media-preloader/internal/preload"
)

const posterBaseURL = "https://image.tmdb.org/t/p/w500"

// tmdbFindResult is the cross-reference response mapping an IMDb id
// into TMDB native ids.
type tmdbFindResult struct {
	MovieResults []struct {
		ID int `json:"id"`
	} `json:"movie_results"`
	TVResults []struct {
		ID int `json:"id"`
	} `json:"tv_results"`
}

type tmdbGenre struct {
	Name string `json:"name"`
}

// Movie resolves IMDb references to movie detail records via TMDB.
type Movie struct {
	api    *client.Client
	logger *zap.Logger
}

// NewMovie constructs a Movie resolver.
func NewMovie(api *client.Client, logger *zap.Logger) *Movie {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Movie{api: api, logger: logger}
}

type tmdbMovieDetail struct {
	Title       string      `json:"title"`
	ReleaseDate string      `json:"release_date"`
	Genres      []tmdbGenre `json:"genres"`
	PosterPath  string      `json:"poster_path"`
	Runtime     int         `json:"runtime"`
	Popularity  float64     `json:"popularity"`
	Credits     struct {
		Crew []struct {
			Name string `json:"name"`
			Job  string `json:"job"`
		} `json:"crew"`
	} `json:"credits"`
}

// Resolve cross-references the IMDb id, then fetches movie details
// with credits. An IMDb id with no movie match returns (nil, nil) so
// the media pipeline can try the TV resolver next.
func (m *Movie) Resolve(ctx context.Context, ref preload.Reference) (*preload.DetailRecord, error) {
	imdbID, err := ParseIMDB(ref.Value)
	if err != nil {
		return nil, err
	}

	var find tmdbFindResult
	found, err := m.api.GetJSON(ctx, "/3/find/"+imdbID+"?external_source=imdb_id", &find)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", imdbID, err)
	}
	if !found || len(find.MovieResults) == 0 {
		return nil, nil
	}

	var detail tmdbMovieDetail
	path := fmt.Sprintf("/3/movie/%d?append_to_response=credits", find.MovieResults[0].ID)
	found, err = m.api.GetJSON(ctx, path, &detail)
	if err != nil {
		return nil, fmt.Errorf("movie detail %s: %w", imdbID, err)
	}
	if !found {
		return nil, nil
	}

	rec := &preload.DetailRecord{
		Title:      detail.Title,
		Year:       yearFrom(detail.ReleaseDate),
		Genres:     genreNames(detail.Genres),
		ImageURL:   posterURL(detail.PosterPath),
		RuntimeMin: detail.Runtime,
		Popularity: detail.Popularity,
	}
	for _, crew := range detail.Credits.Crew {
		if crew.Job == "Director" {
			rec.Contributor = crew.Name
			break
		}
	}
	return rec, nil
}

func genreNames(genres []tmdbGenre) []string {
	names := make([]string, 0, len(genres))
	for _, g := range genres {
		names = append(names, g.Name)
	}
	return names
}

func posterURL(path string) string {
	if path == "" {
		return ""
	}
	return posterBaseURL + path
}
