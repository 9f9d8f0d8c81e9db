package bucket

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jimizai/ratelimit/pkg/metrics"
)

// MetricsLimiter wraps a Limiter with Prometheus metrics collection.
type MetricsLimiter struct {
	limiter  Limiter
	name     string
	registry *metrics.Registry
	enabled  bool
}

// NewWithMetrics creates a new token bucket limiter with metrics enabled.
func NewWithMetrics(fillInterval time.Duration, capacity int64, name string) Limiter {
	// Use a separate registry for each metrics-enabled component to avoid conflicts
	registry := prometheus.NewRegistry()
	config := metrics.Config{
		Enabled:  true,
		Registry: registry,
	}

	return NewWithConfigAndMetrics(Config{
		FillInterval:  fillInterval,
		Capacity:      capacity,
		Quantum:       1,
		InitialTokens: -1,
		Clock:         SystemClock{},
	}, name, config)
}

// NewWithConfigAndMetrics creates a new token bucket limiter with custom config and metrics.
func NewWithConfigAndMetrics(config Config, name string, metricsConfig metrics.Config) Limiter {
	baseLimiter := NewWithConfig(config)

	if !metricsConfig.Enabled {
		return baseLimiter
	}

	// The default registerer already carries DefaultRegistry's collectors,
	// so only a custom registerer gets a fresh set.
	registry := metrics.DefaultRegistry
	if metricsConfig.Registry != nil && metricsConfig.Registry != prometheus.DefaultRegisterer {
		registry = metrics.NewRegistry(metricsConfig.Registry)
	}

	return &MetricsLimiter{
		limiter:  baseLimiter,
		name:     name,
		registry: registry,
		enabled:  true,
	}
}

// TakeAvailable removes up to count tokens and returns the number removed.
func (ml *MetricsLimiter) TakeAvailable(count int64) int64 {
	if ml.enabled && count > 0 {
		ml.registry.RateLimitRequests.WithLabelValues("token_bucket", ml.name).Add(float64(count))
	}

	taken := ml.limiter.TakeAvailable(count)

	if ml.enabled && count > 0 {
		if taken > 0 {
			ml.registry.RateLimitAllowed.WithLabelValues("token_bucket", ml.name).Add(float64(taken))
		}
		if denied := count - taken; denied > 0 {
			ml.registry.RateLimitDenied.WithLabelValues("token_bucket", ml.name).Add(float64(denied))
		}

		ml.updateTokensGauge()
	}

	return taken
}

// Take reserves count tokens and returns how long the caller must wait.
func (ml *MetricsLimiter) Take(count int64) (time.Duration, bool) {
	return ml.observeTake(count, func() (time.Duration, bool) {
		return ml.limiter.Take(count)
	})
}

// TakeMaxDuration reserves count tokens if the wait is at most maxWait.
func (ml *MetricsLimiter) TakeMaxDuration(count int64, maxWait time.Duration) (time.Duration, bool) {
	return ml.observeTake(count, func() (time.Duration, bool) {
		return ml.limiter.TakeMaxDuration(count, maxWait)
	})
}

// observeTake records request/allow/deny counts and the committed wait
// around a probing acquisition.
func (ml *MetricsLimiter) observeTake(count int64, take func() (time.Duration, bool)) (time.Duration, bool) {
	if ml.enabled && count > 0 {
		ml.registry.RateLimitRequests.WithLabelValues("token_bucket", ml.name).Add(float64(count))
	}

	wait, ok := take()

	if ml.enabled && count > 0 {
		if ok {
			ml.registry.RateLimitAllowed.WithLabelValues("token_bucket", ml.name).Add(float64(count))
			ml.registry.RateLimitWaitTime.WithLabelValues("token_bucket", ml.name).Observe(wait.Seconds())
		} else {
			ml.registry.RateLimitDenied.WithLabelValues("token_bucket", ml.name).Add(float64(count))
		}

		ml.updateTokensGauge()
	}

	return wait, ok
}

// Wait reserves count tokens and sleeps until they are available.
func (ml *MetricsLimiter) Wait(ctx context.Context, count int64) error {
	start := time.Now()

	if ml.enabled && count > 0 {
		ml.registry.RateLimitRequests.WithLabelValues("token_bucket", ml.name).Add(float64(count))
	}

	err := ml.limiter.Wait(ctx, count)

	if ml.enabled && count > 0 {
		duration := time.Since(start)
		ml.registry.RateLimitWaitTime.WithLabelValues("token_bucket", ml.name).Observe(duration.Seconds())

		if err == nil {
			ml.registry.RateLimitAllowed.WithLabelValues("token_bucket", ml.name).Add(float64(count))
		} else {
			ml.registry.RateLimitDenied.WithLabelValues("token_bucket", ml.name).Add(float64(count))
		}

		ml.updateTokensGauge()
	}

	return err
}

// WaitMaxDuration reserves count tokens and sleeps if the wait is at most maxWait.
func (ml *MetricsLimiter) WaitMaxDuration(ctx context.Context, count int64, maxWait time.Duration) bool {
	start := time.Now()

	if ml.enabled && count > 0 {
		ml.registry.RateLimitRequests.WithLabelValues("token_bucket", ml.name).Add(float64(count))
	}

	ok := ml.limiter.WaitMaxDuration(ctx, count, maxWait)

	if ml.enabled && count > 0 {
		duration := time.Since(start)
		ml.registry.RateLimitWaitTime.WithLabelValues("token_bucket", ml.name).Observe(duration.Seconds())

		if ok {
			ml.registry.RateLimitAllowed.WithLabelValues("token_bucket", ml.name).Add(float64(count))
		} else {
			ml.registry.RateLimitDenied.WithLabelValues("token_bucket", ml.name).Add(float64(count))
		}

		ml.updateTokensGauge()
	}

	return ok
}

// Available returns the current token balance.
func (ml *MetricsLimiter) Available() int64 {
	tokens := ml.limiter.Available()

	if ml.enabled {
		ml.registry.RateLimitTokens.WithLabelValues("token_bucket", ml.name).Set(float64(tokens))
	}

	return tokens
}

// Capacity returns the maximum number of tokens the bucket holds.
func (ml *MetricsLimiter) Capacity() int64 {
	return ml.limiter.Capacity()
}

// Quantum returns the number of tokens added per fill interval.
func (ml *MetricsLimiter) Quantum() int64 {
	return ml.limiter.Quantum()
}

// FillInterval returns the duration between refills.
func (ml *MetricsLimiter) FillInterval() time.Duration {
	return ml.limiter.FillInterval()
}

// Rate returns the effective fill rate in tokens per second.
func (ml *MetricsLimiter) Rate() float64 {
	return ml.limiter.Rate()
}

func (ml *MetricsLimiter) updateTokensGauge() {
	ml.registry.RateLimitTokens.WithLabelValues("token_bucket", ml.name).Set(float64(ml.limiter.Available()))
}

// EnableMetrics enables metrics collection. A nil config.Registry keeps
// the limiter's current destination.
func (ml *MetricsLimiter) EnableMetrics(config metrics.Config) error {
	ml.enabled = config.Enabled

	if config.Registry == prometheus.DefaultRegisterer {
		ml.registry = metrics.DefaultRegistry
	} else if config.Registry != nil {
		ml.registry = metrics.NewRegistry(config.Registry)
	}

	return nil
}

// DisableMetrics disables metrics collection.
func (ml *MetricsLimiter) DisableMetrics() {
	ml.enabled = false
}

// MetricsEnabled returns true if metrics are currently enabled.
func (ml *MetricsLimiter) MetricsEnabled() bool {
	return ml.enabled
}
