// Package metrics provides Prometheus instrumentation for ratelimit components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for ratelimit components.
type Registry struct {
	// Token Bucket Metrics
	RateLimitRequests *prometheus.CounterVec
	RateLimitAllowed  *prometheus.CounterVec
	RateLimitDenied   *prometheus.CounterVec
	RateLimitWaitTime *prometheus.HistogramVec
	RateLimitTokens   *prometheus.GaugeVec

	// Keyed Registry Metrics
	KeyedLimiters *prometheus.GaugeVec
}

// DefaultRegistry is the default metrics registry used by ratelimit components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		// Token Bucket Metrics
		RateLimitRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ratelimit",
				Subsystem: "bucket",
				Name:      "requests_total",
				Help:      "Total number of tokens requested",
			},
			[]string{"limiter_type", "limiter_name"},
		),

		RateLimitAllowed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ratelimit",
				Subsystem: "bucket",
				Name:      "allowed_total",
				Help:      "Total number of tokens granted",
			},
			[]string{"limiter_type", "limiter_name"},
		),

		RateLimitDenied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ratelimit",
				Subsystem: "bucket",
				Name:      "denied_total",
				Help:      "Total number of tokens denied",
			},
			[]string{"limiter_type", "limiter_name"},
		),

		RateLimitWaitTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "ratelimit",
				Subsystem: "bucket",
				Name:      "wait_duration_seconds",
				Help:      "Time committed to waiting for tokens to accumulate",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"limiter_type", "limiter_name"},
		),

		RateLimitTokens: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "ratelimit",
				Subsystem: "bucket",
				Name:      "tokens_available",
				Help:      "Number of tokens currently available",
			},
			[]string{"limiter_type", "limiter_name"},
		),

		// Keyed Registry Metrics
		KeyedLimiters: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "ratelimit",
				Subsystem: "keyed",
				Name:      "limiters",
				Help:      "Number of per-key limiters currently tracked",
			},
			[]string{"registry_name"},
		),
	}
}
