// Package telemetry exposes Prometheus metrics for the preload pipeline.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	apiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preloader_api_requests_total",
			Help: "Total upstream API requests, labeled by provider and status code.",
		},
		[]string{"provider", "code"},
	)

	apiRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preloader_api_retries_total",
			Help: "Total 429-driven retries, labeled by provider.",
		},
		[]string{"provider"},
	)

	rateLimitDelaySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "preloader_rate_limit_delay_seconds",
			Help:    "Delay introduced by the local rate limiter, labeled by host.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"host"},
	)

	itemsResolvedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preloader_items_resolved_total",
			Help: "Enrichment outcomes per domain, labeled by status (resolved, skipped, fallback).",
		},
		[]string{"domain", "status"},
	)

	checkpointWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preloader_checkpoint_writes_total",
			Help: "Checkpoint save operations, labeled by domain.",
		},
		[]string{"domain"},
	)
)

// CountAPIRequest records one upstream request outcome.
func CountAPIRequest(provider, code string) {
	apiRequestsTotal.WithLabelValues(provider, code).Inc()
}

// CountAPIRetry records one 429-driven retry.
func CountAPIRetry(provider string) {
	apiRetriesTotal.WithLabelValues(provider).Inc()
}

// ObserveRateLimitDelay records time spent waiting on the local limiter.
func ObserveRateLimitDelay(host string, d time.Duration) {
	rateLimitDelaySeconds.WithLabelValues(host).Observe(d.Seconds())
}

// CountItem records an enrichment outcome for a domain.
func CountItem(domain, status string) {
	itemsResolvedTotal.WithLabelValues(domain, status).Inc()
}

// CountCheckpointWrite records one checkpoint save.
func CountCheckpointWrite(domain string) {
	checkpointWritesTotal.WithLabelValues(domain).Inc()
}
