// Package client implements the rate-limited upstream API client:
// token acquisition, retry with backoff on throttling, and cursor
// pagination collection.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/acstiles/media-preloader/internal/preload"
	"github.com/acstiles/media-preloader/internal/ratelimit"
	"github.com/acstiles/media-preloader/internal/telemetry"
)

const maxBodyBytes = 4 << 20

// Config controls Client behavior. Provider labels log entries and
// metrics; BaseURL anchors relative request paths.
type Config struct {
	Provider  string
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Backoff   BackoffPolicy
}

// Client wraps outbound JSON API calls. A nil token source means the
// upstream requires no auth; a nil limiter disables local pacing.
type Client struct {
	cfg     Config
	http    *http.Client
	tokens  preload.TokenSource
	limiter *ratelimit.Limiter
	logger  *zap.Logger
}

// New constructs a Client.
func New(cfg Config, tokens preload.TokenSource, limiter *ratelimit.Limiter, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Backoff.Base <= 0 {
		cfg.Backoff = DefaultBackoff()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "media-preloader/1.0"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		tokens:  tokens,
		limiter: limiter,
		logger:  logger,
	}
}

// Get issues a GET to pathOrURL (absolute, or relative to BaseURL) and
// returns the response body. A 404 returns (nil, nil) so callers can
// fall back gracefully. A 429 is retried with backoff, honoring a
// Retry-After hint; exhausting the budget yields *RateLimitError.
// Other non-2xx statuses yield *NetworkError.
func (c *Client) Get(ctx context.Context, pathOrURL string) ([]byte, error) {
	url := c.resolveURL(pathOrURL)

	var token string
	if c.tokens != nil {
		var err error
		token, err = c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire token: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx, url); err != nil {
				return nil, err
			}
		}

		body, status, header, err := c.do(ctx, url, token)
		if err != nil {
			telemetry.CountAPIRequest(c.cfg.Provider, "transport_error")
			return nil, err
		}
		telemetry.CountAPIRequest(c.cfg.Provider, strconv.Itoa(status))

		switch {
		case status >= 200 && status < 300:
			return body, nil
		case status == http.StatusNotFound:
			c.logger.Debug("upstream 404, treating as absent",
				zap.String("provider", c.cfg.Provider),
				zap.String("url", url),
			)
			return nil, nil
		case status == http.StatusUnauthorized:
			if c.tokens != nil {
				c.tokens.Invalidate()
			}
			return nil, &preload.AuthError{Reason: "token rejected by upstream"}
		case status == http.StatusTooManyRequests:
			if attempt >= c.cfg.Backoff.MaxRetries {
				c.logger.Warn("retry budget exhausted",
					zap.String("provider", c.cfg.Provider),
					zap.String("url", url),
					zap.Int("attempts", attempt+1),
				)
				return nil, &preload.RateLimitError{Attempts: attempt + 1}
			}
			delay, hinted := retryAfterHint(header, time.Now())
			if !hinted {
				delay = c.cfg.Backoff.Delay(attempt)
			}
			telemetry.CountAPIRetry(c.cfg.Provider)
			c.logger.Info("throttled, backing off",
				zap.String("provider", c.cfg.Provider),
				zap.String("url", url),
				zap.Duration("delay", delay),
				zap.Int("attempt", attempt+1),
				zap.Bool("retry_after_hint", hinted),
			)
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
		default:
			msg := strings.TrimSpace(string(body))
			if len(msg) > 256 {
				msg = msg[:256]
			}
			c.logger.Warn("upstream request failed",
				zap.String("provider", c.cfg.Provider),
				zap.String("url", url),
				zap.Int("status", status),
			)
			return nil, &preload.NetworkError{Status: status, Message: msg}
		}
	}
}

// GetJSON fetches pathOrURL and decodes the payload into out. The
// bool result is false when the resource does not exist (404).
func (c *Client) GetJSON(ctx context.Context, pathOrURL string, out any) (bool, error) {
	body, err := c.Get(ctx, pathOrURL)
	if err != nil {
		return false, err
	}
	if body == nil {
		return false, nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("decode %s response: %w", c.cfg.Provider, err)
	}
	return true, nil
}

func (c *Client) do(ctx context.Context, url, token string) ([]byte, int, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.Debug("upstream request",
		zap.String("provider", c.cfg.Provider),
		zap.String("url", url),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, nil, &preload.NetworkError{Status: 0, Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, 0, nil, &preload.NetworkError{Status: resp.StatusCode, Message: err.Error()}
	}
	return body, resp.StatusCode, resp.Header, nil
}

func (c *Client) resolveURL(pathOrURL string) string {
	if strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://") {
		return pathOrURL
	}
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(pathOrURL, "/")
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("backoff wait: %w", ctx.Err())
	}
}
