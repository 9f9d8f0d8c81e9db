package bucket

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jimizai/ratelimit/pkg/common/errors"
)

// infinityDuration is the maxWait used by the unbounded acquisition paths.
const infinityDuration time.Duration = math.MaxInt64

// TakeAvailable removes up to count tokens and returns the number removed.
func (tb *tokenBucket) TakeAvailable(count int64) int64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.takeAvailable(tb.clock.Now(), count)
}

// Take reserves count tokens and returns how long the caller must wait.
func (tb *tokenBucket) Take(count int64) (time.Duration, bool) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.take(tb.clock.Now(), count, infinityDuration)
}

// TakeMaxDuration reserves count tokens if the wait is at most maxWait.
func (tb *tokenBucket) TakeMaxDuration(count int64, maxWait time.Duration) (time.Duration, bool) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.take(tb.clock.Now(), count, maxWait)
}

// Wait reserves count tokens and sleeps until they are available.
func (tb *tokenBucket) Wait(ctx context.Context, count int64) error {
	if count <= 0 {
		return nil
	}

	// Check if context is already canceled
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	tb.mu.Lock()
	waitTime, ok := tb.take(tb.clock.Now(), count, infinityDuration)
	tb.mu.Unlock()

	if !ok {
		return errors.NewOperationError("bucket", "Wait", errors.ErrCapacityExceeded).
			WithContext(fmt.Sprintf("requested %d tokens, capacity %d", count, tb.capacity))
	}
	return tb.sleep(ctx, waitTime)
}

// WaitMaxDuration reserves count tokens and sleeps if the wait is at most maxWait.
func (tb *tokenBucket) WaitMaxDuration(ctx context.Context, count int64, maxWait time.Duration) bool {
	if count <= 0 {
		return true
	}

	select {
	case <-ctx.Done():
		return false
	default:
	}

	tb.mu.Lock()
	waitTime, ok := tb.take(tb.clock.Now(), count, maxWait)
	tb.mu.Unlock()

	if !ok {
		return false
	}
	return tb.sleep(ctx, waitTime) == nil
}

// Available returns the current token balance after applying any pending refill.
func (tb *tokenBucket) Available() int64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.adjustTokens(tb.clock.Now())
	return tb.availableTokens
}

// Capacity returns the maximum number of tokens the bucket holds.
func (tb *tokenBucket) Capacity() int64 {
	return tb.capacity
}

// Quantum returns the number of tokens added per fill interval.
func (tb *tokenBucket) Quantum() int64 {
	return tb.quantum
}

// FillInterval returns the duration between refills.
func (tb *tokenBucket) FillInterval() time.Duration {
	return tb.fillInterval
}

// Rate returns the effective fill rate in tokens per second.
func (tb *tokenBucket) Rate() float64 {
	return float64(tb.quantum) * float64(time.Second) / float64(tb.fillInterval)
}

// takeAvailable removes up to count tokens at the given time.
// Callers must hold tb.mu.
func (tb *tokenBucket) takeAvailable(now time.Time, count int64) int64 {
	if count <= 0 {
		return 0
	}

	tb.adjustTokens(now)
	if tb.availableTokens <= 0 {
		return 0
	}
	if count > tb.availableTokens {
		count = tb.availableTokens
	}
	tb.availableTokens -= count
	return count
}

// take commits count tokens at the given time if the required wait does
// not exceed maxWait, returning the wait. On failure the state is left
// unchanged and the returned duration is zero. Callers must hold tb.mu.
func (tb *tokenBucket) take(now time.Time, count int64, maxWait time.Duration) (time.Duration, bool) {
	if count <= 0 {
		return 0, true
	}
	// More than the capacity can never accumulate, no matter the wait.
	if count > tb.capacity {
		return 0, false
	}

	tb.adjustTokens(now)

	avail := tb.availableTokens - count
	if avail >= 0 {
		tb.availableTokens = avail
		return 0, true
	}

	// The deficit accumulates one quantum per fill interval. The wait
	// saturates instead of wrapping when ticks*fillInterval would
	// overflow a Duration.
	deficit := -avail
	waitTicks := deficit / tb.quantum
	if deficit%tb.quantum != 0 {
		waitTicks++
	}
	waitTime := infinityDuration
	if waitTicks <= int64(infinityDuration/tb.fillInterval) {
		waitTime = time.Duration(waitTicks) * tb.fillInterval
	}
	if waitTime > maxWait {
		return 0, false
	}

	tb.availableTokens = avail
	return waitTime, true
}

// adjustTokens applies the refill accumulated since latestTick.
// Callers must hold tb.mu.
func (tb *tokenBucket) adjustTokens(now time.Time) {
	elapsed := now.Sub(tb.latestTick)
	if elapsed < tb.fillInterval {
		// Less than one whole tick, nothing to apply. A backwards
		// clock step lands here too and must not drain tokens.
		return
	}
	ticks := int64(elapsed / tb.fillInterval)

	// Advance by whole ticks only so the fractional remainder counts
	// toward the next refill instead of being discarded.
	tb.latestTick = tb.latestTick.Add(time.Duration(ticks) * tb.fillInterval)

	if tb.availableTokens >= tb.capacity {
		return
	}

	// Clamp before multiplying: once ticks covers the deficit the
	// bucket is full, and below that bound ticks*quantum < deficit,
	// so the product cannot overflow.
	deficit := tb.capacity - tb.availableTokens
	ticksToFill := deficit / tb.quantum
	if deficit%tb.quantum != 0 {
		ticksToFill++
	}
	if ticks >= ticksToFill {
		tb.availableTokens = tb.capacity
		return
	}
	tb.availableTokens += ticks * tb.quantum
}

// sleep blocks for d honoring context cancellation. The bucket lock is
// never held here.
func (tb *tokenBucket) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
