package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Provider attempt outcomes, labeled by provider, request kind and
	// outcome (success | not_found | unavailable).
	ProviderAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockfeed_provider_attempts_total",
			Help: "Upstream provider attempts by outcome",
		}, []string{"provider", "kind", "outcome"})

	// Fallback chains that exhausted every (provider, candidate) pair.
	FallbackExhausted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockfeed_fallback_exhausted_total",
			Help: "Requests for which every provider and candidate missed",
		}, []string{"kind"})

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockfeed_cache_hits_total",
			Help: "Response cache hits by request kind",
		}, []string{"kind"})

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockfeed_cache_misses_total",
			Help: "Response cache misses by request kind",
		}, []string{"kind"})

	AttemptLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stockfeed_provider_attempt_seconds",
			Help:    "Latency of individual provider attempts",
			Buckets: prometheus.DefBuckets,
		})
)
