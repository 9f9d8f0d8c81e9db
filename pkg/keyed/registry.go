// Package keyed manages independent token buckets indexed by caller key,
// such as a client ID or remote address.
package keyed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jimizai/ratelimit/pkg/bucket"
	"github.com/jimizai/ratelimit/pkg/common/errors"
	"github.com/jimizai/ratelimit/pkg/common/validation"
	"github.com/jimizai/ratelimit/pkg/metrics"
)

const (
	// DefaultTTL is how long an idle key is kept before eviction.
	DefaultTTL = time.Minute

	// DefaultSweepInterval is how often idle keys are scanned for eviction.
	DefaultSweepInterval = 30 * time.Second
)

// Config holds configuration for a keyed limiter registry.
type Config struct {
	// Bucket is the template for the limiter created per key. Its Clock
	// is inherited from the registry when nil.
	Bucket bucket.Config

	// TTL is how long a key may stay idle before its limiter is evicted.
	// If zero, DefaultTTL is used.
	TTL time.Duration

	// SweepInterval is how often the registry scans for idle keys.
	// If zero, DefaultSweepInterval is used.
	SweepInterval time.Duration

	// Name labels this registry in metrics. If empty, "default" is used.
	Name string

	// Metrics configures the key-count gauge. Disabled when zero.
	Metrics metrics.Config

	// Clock is the time source for idle tracking. If nil, the system
	// clock is used.
	Clock bucket.Clock
}

type entry struct {
	limiter  bucket.Limiter
	lastSeen time.Time
}

// Registry hands out one token bucket per key, creating buckets on first
// use and evicting those idle longer than the TTL. Eviction forgets a
// key's spent tokens, so a key returning after the TTL starts over with
// a fresh bucket.
//
// Per-key buckets are not individually instrumented. Keys are unbounded
// caller input, and labeling metrics by key would make the series
// cardinality unbounded too. The registry exposes a single gauge of
// tracked keys instead.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*entry
	stopped  bool

	bucketConfig  bucket.Config
	ttl           time.Duration
	sweepInterval time.Duration
	name          string
	clock         bucket.Clock

	// registry is nil when metrics are disabled
	registry *metrics.Registry

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSafe creates a new keyed registry with validation that returns an
// error instead of panicking, and starts its eviction sweeper.
// This is the recommended way to create registries for production use.
func NewSafe(config Config) (*Registry, error) {
	if err := config.Bucket.Validate(); err != nil {
		return nil, err
	}
	if config.TTL == 0 {
		config.TTL = DefaultTTL
	}
	if config.SweepInterval == 0 {
		config.SweepInterval = DefaultSweepInterval
	}
	if err := validation.ValidatePositiveDuration("keyed", "ttl", config.TTL); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositiveDuration("keyed", "sweepInterval", config.SweepInterval); err != nil {
		return nil, err
	}
	if config.Name == "" {
		config.Name = "default"
	}
	if config.Clock == nil {
		config.Clock = bucket.SystemClock{}
	}
	if config.Bucket.Clock == nil {
		config.Bucket.Clock = config.Clock
	}

	var registry *metrics.Registry
	if config.Metrics.Enabled {
		registry = metrics.DefaultRegistry
		if config.Metrics.Registry != nil && config.Metrics.Registry != prometheus.DefaultRegisterer {
			registry = metrics.NewRegistry(config.Metrics.Registry)
		}
	}

	r := &Registry{
		limiters:      make(map[string]*entry),
		bucketConfig:  config.Bucket,
		ttl:           config.TTL,
		sweepInterval: config.SweepInterval,
		name:          config.Name,
		clock:         config.Clock,
		registry:      registry,
		stopCh:        make(chan struct{}),
	}

	r.wg.Add(1)
	go r.sweepLoop()

	return r, nil
}

// New creates a new keyed registry and panics on invalid configuration.
func New(config Config) *Registry {
	r, err := NewSafe(config)
	if err != nil {
		panic(err)
	}
	return r
}

// Get returns the limiter for key, creating it on first use and marking
// the key as seen. The limiter stays valid after eviction, but a later
// Get for the same key returns a fresh one.
func (r *Registry) Get(key string) (bucket.Limiter, error) {
	if key == "" {
		return nil, errors.NewValidationError("keyed", "key", key, "cannot be empty").
			WithHint("use a stable caller identifier such as a client ID or address")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return nil, errors.NewOperationError("keyed", "Get", errors.ErrClosed).
			WithContext(fmt.Sprintf("key %s", key))
	}

	e, ok := r.limiters[key]
	if !ok {
		// The template was validated at construction, so this cannot panic
		e = &entry{limiter: bucket.NewWithConfig(r.bucketConfig)}
		r.limiters[key] = e
		r.updateGauge()
	}
	e.lastSeen = r.clock.Now()

	return e.limiter, nil
}

// Allow reports whether key may proceed, consuming one token if so.
// Empty keys and stopped registries deny.
func (r *Registry) Allow(key string) bool {
	return r.TakeAvailable(key, 1) == 1
}

// TakeAvailable removes up to count tokens from key's bucket and returns
// the number removed. Empty keys and stopped registries yield zero.
func (r *Registry) TakeAvailable(key string, count int64) int64 {
	limiter, err := r.Get(key)
	if err != nil {
		return 0
	}
	return limiter.TakeAvailable(count)
}

// Wait blocks until count tokens are available for key, the request is
// impossible, or ctx is done.
func (r *Registry) Wait(ctx context.Context, key string, count int64) error {
	limiter, err := r.Get(key)
	if err != nil {
		return err
	}
	return limiter.Wait(ctx, count)
}

// Len returns the number of keys currently tracked.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}

// Stop halts the eviction sweeper and releases all limiters. Subsequent
// lookups fail with ErrClosed. Stop is idempotent.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
		r.wg.Wait()

		r.mu.Lock()
		r.stopped = true
		r.limiters = make(map[string]*entry)
		r.updateGauge()
		r.mu.Unlock()
	})
}

func (r *Registry) sweepLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sweep()
		case <-r.stopCh:
			return
		}
	}
}

// sweep evicts entries idle for at least the TTL.
func (r *Registry) sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	for key, e := range r.limiters {
		if now.Sub(e.lastSeen) >= r.ttl {
			delete(r.limiters, key)
		}
	}
	r.updateGauge()
}

// updateGauge is called with r.mu held.
func (r *Registry) updateGauge() {
	if r.registry == nil {
		return
	}
	r.registry.KeyedLimiters.WithLabelValues(r.name).Set(float64(len(r.limiters)))
}
