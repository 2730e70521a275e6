package client

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/acstiles/media-preloader/internal/preload"
)

func TestRefreshTokenSource_ExchangeAndCache(t *testing.T) {
	t.Parallel()

	var exchanges int
	var gotAuth, gotGrant, gotRefresh string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanges++
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseForm())
		gotGrant = r.PostForm.Get("grant_type")
		gotRefresh = r.PostForm.Get("refresh_token")
		_, _ = w.Write([]byte(`{"access_token":"fresh-bearer","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	src := NewRefreshTokenSource(RefreshTokenConfig{
		TokenURL:     srv.URL,
		ClientID:     "id",
		ClientSecret: "secret",
		RefreshToken: "refresh-me",
	}, zap.NewNop())

	tok, err := src.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "fresh-bearer", tok)

	wantBasic := "Basic " + base64.StdEncoding.EncodeToString([]byte("id:secret"))
	require.Equal(t, wantBasic, gotAuth)
	require.Equal(t, "refresh_token", gotGrant)
	require.Equal(t, "refresh-me", gotRefresh)

	// Second call serves from cache.
	tok, err = src.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "fresh-bearer", tok)
	require.Equal(t, 1, exchanges)
}

func TestRefreshTokenSource_InvalidateForcesReexchange(t *testing.T) {
	t.Parallel()

	var exchanges int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		exchanges++
		_, _ = w.Write([]byte(`{"access_token":"bearer"}`))
	}))
	defer srv.Close()

	src := NewRefreshTokenSource(RefreshTokenConfig{
		TokenURL:     srv.URL,
		ClientID:     "id",
		ClientSecret: "secret",
		RefreshToken: "refresh-me",
	}, zap.NewNop())

	_, err := src.Token(context.Background())
	require.NoError(t, err)
	src.Invalidate()
	_, err = src.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, exchanges)
}

func TestRefreshTokenSource_MissingCredentials(t *testing.T) {
	t.Parallel()

	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		hits++
	}))
	defer srv.Close()

	src := NewRefreshTokenSource(RefreshTokenConfig{TokenURL: srv.URL}, zap.NewNop())
	_, err := src.Token(context.Background())

	var ae *preload.AuthError
	require.ErrorAs(t, err, &ae)
	require.Zero(t, hits)
}

func TestRefreshTokenSource_ExchangeRejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	src := NewRefreshTokenSource(RefreshTokenConfig{
		TokenURL:     srv.URL,
		ClientID:     "id",
		ClientSecret: "secret",
		RefreshToken: "revoked",
	}, zap.NewNop())

	_, err := src.Token(context.Background())
	var ae *preload.AuthError
	require.ErrorAs(t, err, &ae)
	require.Contains(t, ae.Reason, "400")
}

func TestRefreshTokenSource_EmptyAccessToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	src := NewRefreshTokenSource(RefreshTokenConfig{
		TokenURL:     srv.URL,
		ClientID:     "id",
		ClientSecret: "secret",
		RefreshToken: "refresh-me",
	}, zap.NewNop())

	_, err := src.Token(context.Background())
	var ae *preload.AuthError
	require.ErrorAs(t, err, &ae)
	require.Contains(t, ae.Reason, "access_token")
}

func TestStaticTokenSource(t *testing.T) {
	t.Parallel()

	tok, err := NewStaticTokenSource("read-token").Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "read-token", tok)

	_, err = NewStaticTokenSource("").Token(context.Background())
	var ae *preload.AuthError
	require.ErrorAs(t, err, &ae)
}
