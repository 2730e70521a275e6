package preload

import "fmt"

// AuthError reports absent or rejected upstream credentials. It is
// fatal for the current orchestration attempt only; the domain records
// it and the UI may retry after a reset.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth: %s", e.Reason)
}

// RateLimitError reports an exhausted 429 retry budget.
type RateLimitError struct {
	Attempts int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited after %d attempts", e.Attempts)
}

// NetworkError carries a non-2xx, non-429 upstream status.
type NetworkError struct {
	Status  int
	Message string
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Message)
}

// InvalidReferenceError reports a malformed content reference. Unlike
// resolution failures it fails fast and consumes no retry budget.
type InvalidReferenceError struct {
	Ref    string
	Reason string
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("invalid reference %q: %s", e.Ref, e.Reason)
}

// CheckpointParseError reports a corrupt persisted snapshot. Callers
// treat it as a cache miss; it never propagates past the store.
type CheckpointParseError struct {
	Domain Domain
	Err    error
}

func (e *CheckpointParseError) Error() string {
	return fmt.Sprintf("parse checkpoint for %s: %v", e.Domain, e.Err)
}

func (e *CheckpointParseError) Unwrap() error {
	return e.Err
}
