// Package metrics provides Prometheus instrumentation for ratelimit components.
//
// This package enables monitoring and observability for the library's token
// bucket and keyed registry components through Prometheus metrics.
//
// # Overview
//
// The metrics package provides automatic instrumentation for:
//   - Token bucket operations (requested, granted, and denied tokens)
//   - Committed wait durations for blocking acquisitions
//   - Available token balances
//   - Per-key limiter counts in keyed registries
//
// # Quick Start
//
// Enable metrics by using the metrics-enabled constructors:
//
//	// Token bucket with metrics
//	limiter := bucket.NewWithMetrics(100*time.Millisecond, 20, "api_requests")
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//	log.Fatal(http.ListenAndServe(":8080", nil))
//
// # Custom Registry
//
// Use a custom Prometheus registry for isolation:
//
//	registry := prometheus.NewRegistry()
//	config := metrics.Config{
//		Enabled:  true,
//		Registry: registry,
//	}
//
//	limiter := bucket.NewWithConfigAndMetrics(
//		bucket.Config{FillInterval: time.Second, Capacity: 10},
//		"custom_limiter",
//		config,
//	)
//
// # Available Metrics
//
// ## Token Bucket Metrics
//
//   - ratelimit_bucket_requests_total: Total number of tokens requested
//   - ratelimit_bucket_allowed_total: Total number of tokens granted
//   - ratelimit_bucket_denied_total: Total number of tokens denied
//   - ratelimit_bucket_wait_duration_seconds: Time committed to waiting for tokens
//   - ratelimit_bucket_tokens_available: Number of tokens currently available
//
// ## Keyed Registry Metrics
//
//   - ratelimit_keyed_limiters: Number of per-key limiters currently tracked
//
// # Labels
//
// Metrics include relevant labels for filtering and aggregation:
//
//   - limiter_type: "token_bucket"
//   - limiter_name: User-provided name for the limiter instance
//   - registry_name: User-provided name for the keyed registry instance
//
// # Configuration
//
// Metrics can be configured globally or per-component:
//
//	config := metrics.Config{
//		Enabled:   true,                         // Enable/disable metrics
//		Registry:  prometheus.DefaultRegisterer, // Custom registry
//		Namespace: "myapp",                      // Override default "ratelimit"
//		Labels:    prometheus.Labels{"version": "1.0"}, // Additional labels
//	}
//
// # Runtime Control
//
// Components implementing the Instrumentable interface support runtime control:
//
//	limiter := bucket.NewWithMetrics(time.Second, 20, "api").(*bucket.MetricsLimiter)
//	limiter.DisableMetrics()            // Stop collecting metrics
//	limiter.EnableMetrics(config)       // Re-enable with new config
//	enabled := limiter.MetricsEnabled() // Check current state
//
// # Performance
//
// Metrics collection is designed for minimal overhead:
//   - Metrics are updated only when operations occur
//   - No background goroutines or timers
//   - Conditional metrics updates based on enabled state
package metrics
