package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/acstiles/media-preloader/internal/checkpoint/memory"
	"github.com/acstiles/media-preloader/internal/orchestrator"
	"github.com/acstiles/media-preloader/internal/preload"
)

type stubResolver struct{ title string }

func (s stubResolver) Resolve(context.Context, preload.Reference) (*preload.DetailRecord, error) {
	return &preload.DetailRecord{Title: s.title}, nil
}

type testClock struct{}

func (testClock) Now() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }

func newTestServer(t *testing.T) (*Server, *orchestrator.Service) {
	t.Helper()
	svc, err := orchestrator.New(context.Background(), orchestrator.Deps{
		Store: memory.New(),
		Clock: testClock{},
		Books: stubResolver{title: "Dune"},
		Feed: orchestrator.Feed{
			Books: []preload.Reference{{Kind: preload.RefISBN, Value: "9780441172719"}},
		},
		Logger: zap.NewNop(),
	})
	require.NoError(t, err)
	return NewServer(svc, context.Background(), zap.NewNop()), svc
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestGetState(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/domains/books/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var state preload.CollectionState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	require.False(t, state.Loaded)
	require.False(t, state.Loading)
	require.Empty(t, state.Items)
}

func TestTrigger(t *testing.T) {
	t.Parallel()

	srv, svc := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/domains/books/trigger", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp struct {
		Domain  string `json:"domain"`
		Started bool   `json:"started"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "books", resp.Domain)
	require.True(t, resp.Started)

	svc.Wait()
	require.True(t, svc.State(preload.DomainBooks).Loaded)

	// Triggering a loaded domain still returns 202, with started=false.
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/domains/books/trigger", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Started)
}

func TestPreloadAllEndpoint(t *testing.T) {
	t.Parallel()

	srv, svc := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/preload", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)
	svc.Wait()
	require.True(t, svc.State(preload.DomainBooks).Loaded)
}

func TestReset(t *testing.T) {
	t.Parallel()

	srv, svc := newTestServer(t)
	require.True(t, svc.Trigger(context.Background(), preload.DomainBooks))
	svc.Wait()
	require.True(t, svc.State(preload.DomainBooks).Loaded)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/domains/books/reset", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.False(t, svc.State(preload.DomainBooks).Loaded)
}

func TestUnknownDomainIs404(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	for _, path := range []string{
		"/v1/domains/podcasts/",
		"/v1/domains/podcasts/trigger",
		"/v1/domains/podcasts/reset",
	} {
		rec := httptest.NewRecorder()
		method := http.MethodPost
		if path == "/v1/domains/podcasts/" {
			method = http.MethodGet
		}
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		require.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}
