package resolver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/acstiles/media-preloader/internal/client"
	"github.com/acstiles/media-preloader/internal/preload"
)

// TV resolves IMDb references to series detail records via TMDB.
type TV struct {
	api    *client.Client
	logger *zap.Logger
}

// NewTV constructs a TV resolver.
func NewTV(api *client.Client, logger *zap.Logger) *TV {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TV{api: api, logger: logger}
}

type tmdbTVDetail struct {
	Name         string      `json:"name"`
	FirstAirDate string      `json:"first_air_date"`
	Genres       []tmdbGenre `json:"genres"`
	PosterPath   string      `json:"poster_path"`
	Seasons      int         `json:"number_of_seasons"`
	Episodes     int         `json:"number_of_episodes"`
	Popularity   float64     `json:"popularity"`
	EpisodeRun   []int       `json:"episode_run_time"`
	CreatedBy    []struct {
		Name string `json:"name"`
	} `json:"created_by"`
}

// Resolve cross-references the IMDb id, then fetches series details.
// An id with no TV match returns (nil, nil).
func (t *TV) Resolve(ctx context.Context, ref preload.Reference) (*preload.DetailRecord, error) {
	imdbID, err := ParseIMDB(ref.Value)
	if err != nil {
		return nil, err
	}

	var find tmdbFindResult
	found, err := t.api.GetJSON(ctx, "/3/find/"+imdbID+"?external_source=imdb_id", &find)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", imdbID, err)
	}
	if !found || len(find.TVResults) == 0 {
		return nil, nil
	}

	var detail tmdbTVDetail
	path := fmt.Sprintf("/3/tv/%d?append_to_response=credits", find.TVResults[0].ID)
	found, err = t.api.GetJSON(ctx, path, &detail)
	if err != nil {
		return nil, fmt.Errorf("tv detail %s: %w", imdbID, err)
	}
	if !found {
		return nil, nil
	}

	rec := &preload.DetailRecord{
		Title:      detail.Name,
		Year:       yearFrom(detail.FirstAirDate),
		Genres:     genreNames(detail.Genres),
		ImageURL:   posterURL(detail.PosterPath),
		Seasons:    detail.Seasons,
		Episodes:   detail.Episodes,
		Popularity: detail.Popularity,
	}
	if len(detail.CreatedBy) > 0 {
		rec.Contributor = detail.CreatedBy[0].Name
	}
	if len(detail.EpisodeRun) > 0 {
		rec.RuntimeMin = detail.EpisodeRun[0]
	}
	return rec, nil
}
