package resolver

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/acstiles/media-preloader/internal/preload"
	"github.com/acstiles/media-preloader/internal/telemetry"
)

// Fallback decorates a resolver with an offline sample set: when the
// inner resolver fails or finds nothing, known sample ids still yield
// a record, so the UI never shows a fully-empty entry for them.
// Disabled in production wiring by simply not applying the decorator.
type Fallback struct {
	inner   preload.Resolver
	samples map[string]preload.DetailRecord
	logger  *zap.Logger
}

// NewFallback wraps inner with the given sample set. A nil samples map
// uses the built-in set.
func NewFallback(inner preload.Resolver, samples map[string]preload.DetailRecord, logger *zap.Logger) *Fallback {
	if samples == nil {
		samples = builtinSamples
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fallback{inner: inner, samples: samples, logger: logger}
}

// Resolve delegates to the inner resolver and consults the sample set
// when it comes back empty or failed. Malformed references still fail
// fast; other inner errors are only propagated when no sample matches.
func (f *Fallback) Resolve(ctx context.Context, ref preload.Reference) (*preload.DetailRecord, error) {
	rec, err := f.inner.Resolve(ctx, ref)
	if err != nil {
		var invalid *preload.InvalidReferenceError
		if errors.As(err, &invalid) {
			return nil, err
		}
	}
	if rec != nil {
		return rec, nil
	}

	key := sampleKey(ref)
	if sample, ok := f.samples[key]; ok {
		f.logger.Debug("serving offline sample",
			zap.String("ref", ref.Value),
			zap.String("key", key),
			zap.Error(err),
		)
		telemetry.CountItem(domainFor(ref.Kind), "fallback")
		copied := sample
		return &copied, nil
	}
	return nil, err
}

// domainFor maps a reference kind to the domain it belongs to, for
// metric labels.
func domainFor(kind preload.RefKind) string {
	switch kind {
	case preload.RefISBN:
		return string(preload.DomainBooks)
	case preload.RefIMDB:
		return string(preload.DomainMedia)
	case preload.RefSpotify:
		return string(preload.DomainMusic)
	}
	return "unknown"
}
