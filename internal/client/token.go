package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/acstiles/media-preloader/internal/preload"
)

// RefreshTokenConfig holds the credentials for an OAuth refresh-token
// exchange (the Spotify accounts service shape).
type RefreshTokenConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	RefreshToken string
	Timeout      time.Duration
}

// RefreshTokenSource exchanges a stored refresh token for a bearer
// token and caches it until Invalidate. The orchestrator invalidates
// at the start of each run, so a token never outlives one run.
type RefreshTokenSource struct {
	cfg    RefreshTokenConfig
	http   *http.Client
	logger *zap.Logger

	mu    sync.Mutex
	token string
}

// NewRefreshTokenSource constructs a RefreshTokenSource.
func NewRefreshTokenSource(cfg RefreshTokenConfig, logger *zap.Logger) *RefreshTokenSource {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RefreshTokenSource{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Token returns a cached bearer token, exchanging the refresh token on
// a cache miss. Missing credentials fail with *AuthError before any
// network call.
func (s *RefreshTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" {
		return s.token, nil
	}
	if s.cfg.ClientID == "" || s.cfg.ClientSecret == "" || s.cfg.RefreshToken == "" {
		return "", &preload.AuthError{Reason: "client credentials or refresh token not configured"}
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", s.cfg.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	basic := base64.StdEncoding.EncodeToString([]byte(s.cfg.ClientID + ":" + s.cfg.ClientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", &preload.AuthError{Reason: fmt.Sprintf("token exchange: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", &preload.AuthError{Reason: fmt.Sprintf("read token response: %v", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > 256 {
			msg = msg[:256]
		}
		return "", &preload.AuthError{Reason: fmt.Sprintf("token exchange status %d: %s", resp.StatusCode, msg)}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", &preload.AuthError{Reason: fmt.Sprintf("decode token response: %v", err)}
	}
	if payload.AccessToken == "" {
		return "", &preload.AuthError{Reason: "token response missing access_token"}
	}

	s.logger.Debug("bearer token refreshed")
	s.token = payload.AccessToken
	return s.token, nil
}

// Invalidate drops the cached token.
func (s *RefreshTokenSource) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

// StaticTokenSource serves a fixed bearer token (the TMDB read access
// token shape). An empty token fails with *AuthError.
type StaticTokenSource struct {
	token string
}

// NewStaticTokenSource constructs a StaticTokenSource.
func NewStaticTokenSource(token string) *StaticTokenSource {
	return &StaticTokenSource{token: token}
}

// Token returns the configured token.
func (s *StaticTokenSource) Token(context.Context) (string, error) {
	if s.token == "" {
		return "", &preload.AuthError{Reason: "api token not configured"}
	}
	return s.token, nil
}

// Invalidate is a no-op: a static token has nothing to refresh.
func (s *StaticTokenSource) Invalidate() {}
