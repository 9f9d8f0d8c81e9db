package bucket

import (
	"context"
	"sync"
	"time"

	"github.com/jimizai/ratelimit/pkg/common/errors"
	"github.com/jimizai/ratelimit/pkg/common/validation"
)

// Limiter controls how frequently events are allowed to happen using
// a token bucket algorithm. Tokens accumulate in whole quantum steps,
// one quantum per fill interval, up to a fixed capacity. Acquisition
// is either immediate (TakeAvailable), a bounded probe that commits
// tokens and reports the wait (Take, TakeMaxDuration), or a bounded
// blocking wait (Wait, WaitMaxDuration).
type Limiter interface {
	// TakeAvailable removes up to count tokens and returns the number
	// actually removed. It never blocks; an empty bucket yields 0.
	TakeAvailable(count int64) int64

	// Take reserves count tokens and returns the duration the caller
	// must wait before they are physically available. The tokens are
	// committed immediately; Take never sleeps itself. It returns
	// ok=false, taking nothing, when count exceeds the bucket capacity.
	Take(count int64) (time.Duration, bool)

	// TakeMaxDuration behaves like Take, but only commits the tokens
	// if the required wait is at most maxWait. When the wait would be
	// longer, or count exceeds the capacity, it takes nothing and
	// returns ok=false with a zero duration.
	TakeMaxDuration(count int64, maxWait time.Duration) (time.Duration, bool)

	// Wait reserves count tokens and sleeps until they are available.
	// It returns an error wrapping ErrCapacityExceeded when count
	// exceeds the capacity, or ctx.Err() if the context is canceled
	// while sleeping. A cancellation does not refund committed tokens.
	Wait(ctx context.Context, count int64) error

	// WaitMaxDuration reserves count tokens and sleeps until they are
	// available, but only if the required wait is at most maxWait.
	// It reports whether the tokens were acquired. It returns false
	// without sleeping when the wait would exceed maxWait or count
	// exceeds the capacity, and false if the context is canceled while
	// sleeping. A cancellation does not refund committed tokens.
	WaitMaxDuration(ctx context.Context, count int64, maxWait time.Duration) bool

	// Available returns the current token balance after applying any
	// pending refill. The balance is negative while committed
	// reservations are waiting for tokens to accumulate.
	Available() int64

	// Capacity returns the maximum number of tokens the bucket holds.
	Capacity() int64

	// Quantum returns the number of tokens added per fill interval.
	Quantum() int64

	// FillInterval returns the duration between refills.
	FillInterval() time.Duration

	// Rate returns the effective fill rate in tokens per second.
	Rate() float64
}

// Clock provides the current time. It can be mocked for testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Config holds configuration options for creating a new Limiter.
type Config struct {
	// FillInterval is the duration between refills. One quantum of
	// tokens is added per elapsed fill interval.
	FillInterval time.Duration

	// Capacity is the maximum number of tokens the bucket can hold.
	Capacity int64

	// Quantum is the number of tokens added per fill interval.
	// If zero, a quantum of 1 is used.
	Quantum int64

	// InitialTokens is the number of tokens to start with.
	// If negative, starts with full capacity; values above Capacity
	// are clamped to Capacity.
	InitialTokens int64

	// Clock provides the current time. If nil, SystemClock is used.
	Clock Clock
}

// tokenBucket implements the Limiter interface using a token bucket algorithm.
type tokenBucket struct {
	mu           sync.Mutex
	fillInterval time.Duration
	capacity     int64
	quantum      int64

	// availableTokens may go negative: committed reservations are
	// deducted before the tokens physically accumulate.
	availableTokens int64

	// latestTick advances in whole fill intervals only, so the
	// fractional remainder of elapsed time is never discarded.
	latestTick time.Time

	clock Clock
}

// NewSafe creates a new token bucket with validation that returns an error
// instead of panicking. The bucket adds 1 token per fillInterval, holds at
// most capacity tokens, and starts full.
// This is the recommended way to create rate limiters for production use.
func NewSafe(fillInterval time.Duration, capacity int64) (Limiter, error) {
	return NewWithConfigSafe(Config{
		FillInterval:  fillInterval,
		Capacity:      capacity,
		Quantum:       1,
		InitialTokens: -1, // Start with full capacity
		Clock:         SystemClock{},
	})
}

// NewWithQuantumSafe creates a new token bucket that adds quantum tokens per
// fillInterval, with validation that returns an error instead of panicking.
// The bucket starts full.
func NewWithQuantumSafe(fillInterval time.Duration, capacity, quantum int64) (Limiter, error) {
	if err := validation.ValidatePositive("bucket", "quantum", quantum); err != nil {
		return nil, err
	}
	return NewWithConfigSafe(Config{
		FillInterval:  fillInterval,
		Capacity:      capacity,
		Quantum:       quantum,
		InitialTokens: -1, // Start with full capacity
		Clock:         SystemClock{},
	})
}

// Validate checks the configuration without constructing a limiter.
func (c Config) Validate() error {
	if err := validation.ValidatePositiveDuration("bucket", "fillInterval", c.FillInterval); err != nil {
		return err
	}
	if err := validation.ValidatePositive("bucket", "capacity", c.Capacity); err != nil {
		return err
	}
	if c.Quantum < 0 {
		return errors.NewValidationError("bucket", "quantum", c.Quantum, "quantum cannot be negative").
			WithHint("leave quantum zero for the default of 1 token per interval")
	}
	return nil
}

// NewWithConfigSafe creates a new token bucket from a Config with validation
// that returns an error instead of panicking.
// This is the recommended way to create rate limiters for production use.
func NewWithConfigSafe(config Config) (Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Quantum == 0 {
		config.Quantum = 1
	}
	if config.Clock == nil {
		config.Clock = SystemClock{}
	}

	initialTokens := config.InitialTokens
	if initialTokens < 0 || initialTokens > config.Capacity {
		initialTokens = config.Capacity
	}

	return &tokenBucket{
		fillInterval:    config.FillInterval,
		capacity:        config.Capacity,
		quantum:         config.Quantum,
		availableTokens: initialTokens,
		latestTick:      config.Clock.Now(),
		clock:           config.Clock,
	}, nil
}

// New creates a new token bucket that adds 1 token per fillInterval and
// starts full. It panics on invalid configuration; use NewSafe to get an
// error instead.
func New(fillInterval time.Duration, capacity int64) Limiter {
	l, err := NewSafe(fillInterval, capacity)
	if err != nil {
		panic(err)
	}
	return l
}

// NewWithQuantum creates a new token bucket that adds quantum tokens per
// fillInterval and starts full. It panics on invalid configuration; use
// NewWithQuantumSafe to get an error instead.
func NewWithQuantum(fillInterval time.Duration, capacity, quantum int64) Limiter {
	l, err := NewWithQuantumSafe(fillInterval, capacity, quantum)
	if err != nil {
		panic(err)
	}
	return l
}

// NewWithConfig creates a new token bucket from a Config. It panics on
// invalid configuration; use NewWithConfigSafe to get an error instead.
func NewWithConfig(config Config) Limiter {
	l, err := NewWithConfigSafe(config)
	if err != nil {
		panic(err)
	}
	return l
}
