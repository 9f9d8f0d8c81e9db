/*
Package ratelimit provides token bucket rate limiting for Go applications,
with per-key registries and Prometheus instrumentation.

Token Buckets (pkg/bucket):
  - Integer token accounting with configurable capacity, refill interval,
    and refill quantum
  - Non-blocking admission, bounded waits, and context-aware blocking
  - Injectable clock for deterministic tests

Keyed Registries (pkg/keyed):
  - One bucket per caller key with lazy creation
  - TTL-based eviction of idle keys

Metrics (pkg/metrics):
  - Prometheus counters, histograms, and gauges for limiter activity

Example usage:

	import (
		"github.com/jimizai/ratelimit/pkg/bucket"
		"github.com/jimizai/ratelimit/pkg/keyed"
	)

	limiter, _ := bucket.NewSafe(100*time.Millisecond, 20) // 10 RPS, burst 20
	if limiter.TakeAvailable(1) > 0 {
		serve(req)
	}

	clients := keyed.New(keyed.Config{
		Bucket: bucket.Config{
			FillInterval:  time.Second,
			Capacity:      5,
			InitialTokens: -1,
		},
	})
	defer clients.Stop()

	if clients.Allow(clientID) {
		serve(req)
	}
*/
package ratelimit
