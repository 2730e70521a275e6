package preload

import (
	"context"
	"time"
)

// Resolver converts one external reference into a normalized detail
// record. A reference the upstream does not know returns (nil, nil);
// upstream failures return an error, which batch callers swallow per
// item. A malformed reference surfaces an *InvalidReferenceError.
type Resolver interface {
	Resolve(ctx context.Context, ref Reference) (*DetailRecord, error)
}

// TokenSource yields a bearer token for the upstream API, exchanging a
// refresh token on demand. Implementations may cache; Invalidate drops
// any cached token so the next Token call re-exchanges.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
