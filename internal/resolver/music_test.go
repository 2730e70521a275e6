package resolver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/acstiles/media-preloader/internal/client"
	"github.com/acstiles/media-preloader/internal/preload"
)

func spotifyRef(url string) preload.Reference {
	return preload.Reference{Kind: preload.RefSpotify, Value: url}
}

func TestMusicResolve_Track(t *testing.T) {
	t.Parallel()

	api := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/tracks/2JzZzZUQj3Qff7wapcbKjc", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"name": "Clair de Lune",
			"artists": [{"name":"Claude Debussy"},{"name":"Orchestra"}],
			"popularity": 74,
			"album": {"release_date":"1905-01-01","images":[{"url":"https://img/clair.jpg"}]}
		}`))
	}))

	rec, err := NewMusic(api, zap.NewNop()).Resolve(context.Background(),
		spotifyRef("https://open.spotify.com/track/2JzZzZUQj3Qff7wapcbKjc"))
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, "Clair de Lune", rec.Title)
	require.Equal(t, "Claude Debussy", rec.Contributor)
	require.Equal(t, 1905, rec.Year)
	require.Equal(t, "https://img/clair.jpg", rec.ImageURL)
	require.False(t, rec.Partial)
}

func TestMusicResolve_AlbumCarriesTrackCount(t *testing.T) {
	t.Parallel()

	api := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/albums/6dVIqQ8qmQ5GBnJ9shOYGE", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"name": "OK Computer",
			"artists": [{"name":"Radiohead"}],
			"release_date": "1997-05-21",
			"genres": ["alternative rock"],
			"images": [{"url":"https://img/okc.jpg"}],
			"total_tracks": 12
		}`))
	}))

	rec, err := NewMusic(api, zap.NewNop()).Resolve(context.Background(),
		spotifyRef("https://open.spotify.com/album/6dVIqQ8qmQ5GBnJ9shOYGE"))
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, "OK Computer", rec.Title)
	require.Equal(t, "Radiohead", rec.Contributor)
	require.Equal(t, 1997, rec.Year)
	require.Equal(t, 12, rec.TrackCount)
	require.Zero(t, rec.Episodes)
}

func TestMusicResolve_Artist(t *testing.T) {
	t.Parallel()

	api := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"name": "Radiohead",
			"genres": ["art rock","alternative"],
			"images": [{"url":"https://img/rh.jpg"}],
			"popularity": 82
		}`))
	}))

	rec, err := NewMusic(api, zap.NewNop()).Resolve(context.Background(),
		spotifyRef("https://open.spotify.com/artist/4Z8W4fKeB5YxbusRsdQVPb"))
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, "Radiohead", rec.Title)
	require.Equal(t, "Radiohead", rec.Contributor)
	require.Equal(t, []string{"art rock", "alternative"}, rec.Genres)
}

func TestMusicResolve_PlaylistSinglePage(t *testing.T) {
	t.Parallel()

	api := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"name": "Short List",
			"owner": {"display_name":"alice"},
			"images": [{"url":"https://img/pl.jpg"}],
			"tracks": {
				"items": [{"track":{"name":"One"}},{"track":{"name":"Two"}}],
				"next": "",
				"total": 2
			}
		}`))
	}))

	rec, err := NewMusic(api, zap.NewNop()).Resolve(context.Background(),
		spotifyRef("https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M"))
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, "Short List", rec.Title)
	require.Equal(t, "alice", rec.Contributor)
	require.Equal(t, []string{"One", "Two"}, rec.Tracks)
	require.False(t, rec.Partial)
}

func TestMusicResolve_PlaylistFirstPageOnlyIsPartial(t *testing.T) {
	t.Parallel()

	api := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/playlists/37i9dQZF1DXcBWIGoYBM5M", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"name": "Long List",
			"owner": {"display_name":"bob"},
			"tracks": {
				"items": [{"track":{"name":"One"}}],
				"next": "https://api/playlist/page2",
				"total": 120
			}
		}`))
	}))

	rec, err := NewMusic(api, zap.NewNop()).Resolve(context.Background(),
		spotifyRef("https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M"))
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.True(t, rec.Partial)
	require.Equal(t, []string{"One"}, rec.Tracks)
	require.Equal(t, 120, rec.TrackCount)
}

func TestMusic_CompletePlaylist(t *testing.T) {
	t.Parallel()

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/playlists/37i9dQZF1DXcBWIGoYBM5M":
			fmt.Fprintf(w, `{
				"name": "Long List",
				"owner": {"display_name":"bob"},
				"tracks": {
					"items": [{"track":{"name":"One"}},{"track":{"name":"Two"}}],
					"next": "%s/page2",
					"total": 3
				}
			}`, srv.URL)
		case "/page2":
			_, _ = w.Write([]byte(`{"items":[{"track":{"name":"Three"}}],"next":"","total":3}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	api := client.New(client.Config{Provider: "test", BaseURL: srv.URL}, nil, nil, zap.NewNop())

	partial := &preload.DetailRecord{Title: "Long List", Tracks: []string{"One"}, Partial: true}
	full, err := NewMusic(api, zap.NewNop()).CompletePlaylist(context.Background(),
		spotifyRef("https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M"), partial)
	require.NoError(t, err)
	require.Equal(t, []string{"One", "Two", "Three"}, full.Tracks)
	require.Equal(t, 3, full.TrackCount)
	require.False(t, full.Partial)

	// The input record is left untouched.
	require.True(t, partial.Partial)
	require.Equal(t, []string{"One"}, partial.Tracks)
}

func TestMusicResolve_NotFoundReturnsNil(t *testing.T) {
	t.Parallel()

	api := newTestClient(t, http.HandlerFunc(http.NotFound))
	rec, err := NewMusic(api, zap.NewNop()).Resolve(context.Background(),
		spotifyRef("https://open.spotify.com/track/0000000000000000000000"))
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestMusic_TopTracks(t *testing.T) {
	t.Parallel()

	api := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/me/top/tracks", r.URL.Path)
		require.Equal(t, "5", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"items":[
			{
				"name": "Weird Fishes",
				"artists": [{"name":"Radiohead"}],
				"popularity": 70,
				"external_urls": {"spotify":"https://open.spotify.com/track/2Z6mNnkmcCOMecLIXY6baS"},
				"album": {"release_date":"2007-10-10","images":[{"url":"https://img/ir.jpg"}]}
			}
		]}`))
	}))

	items, err := NewMusic(api, zap.NewNop()).TopTracks(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, items, 1)
	it := items[0]
	require.Equal(t, preload.RefSpotify, it.Ref.Kind)
	require.Equal(t, "https://open.spotify.com/track/2Z6mNnkmcCOMecLIXY6baS", it.Ref.Value)
	require.Equal(t, "Weird Fishes", it.Ref.Label)
	require.NotNil(t, it.Detail)
	require.Equal(t, "Radiohead", it.Detail.Contributor)
	require.Equal(t, 2007, it.Detail.Year)
	require.Equal(t, "https://img/ir.jpg", it.Detail.ImageURL)
}
