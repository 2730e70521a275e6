package client

import (
	"net/http"
	"strconv"
	"time"
)

// BackoffPolicy computes the wait between 429 retries: Base doubling
// per attempt, capped at Max. MaxRetries bounds retries after the
// first request, so MaxRetries=3 means at most four requests total.
type BackoffPolicy struct {
	Base       time.Duration
	Max        time.Duration
	MaxRetries int
}

// DefaultBackoff matches the upstream budget this service is tuned
// for: 1s, 2s, 4s, then give up.
func DefaultBackoff() BackoffPolicy {
	return BackoffPolicy{
		Base:       time.Second,
		Max:        60 * time.Second,
		MaxRetries: 3,
	}
}

// Delay returns the backoff before retry number attempt (0-based).
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	d := p.Base << uint(attempt)
	if d > p.Max || d <= 0 {
		d = p.Max
	}
	return d
}

// retryAfterHint reads a Retry-After header, accepting either the
// delta-seconds or the HTTP-date form.
func retryAfterHint(h http.Header, now time.Time) (time.Duration, bool) {
	raw := h.Get("Retry-After")
	if raw == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(raw); err == nil {
		if d := at.Sub(now); d > 0 {
			return d, true
		}
		return 0, true
	}
	return 0, false
}
