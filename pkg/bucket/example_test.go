package bucket_test

import (
	"context"
	"fmt"
	"time"

	"github.com/jimizai/ratelimit/pkg/bucket"
)

func Example() {
	// 3 tokens, refilling one every 200ms
	limiter := bucket.New(200*time.Millisecond, 3)

	for i := 1; i <= 5; i++ {
		if limiter.TakeAvailable(1) > 0 {
			fmt.Printf("request %d: allowed\n", i)
		} else {
			fmt.Printf("request %d: rejected\n", i)
		}
	}

	// Output:
	// request 1: allowed
	// request 2: allowed
	// request 3: allowed
	// request 4: rejected
	// request 5: rejected
}

func Example_wait() {
	limiter := bucket.New(time.Second, 1)

	// The initial token is available immediately
	if err := limiter.Wait(context.Background(), 1); err == nil {
		fmt.Println("first request served")
	}

	// The next token is a full second away; a 100ms deadline cannot cover it
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, 1); err != nil {
		fmt.Printf("second request: %v\n", ctx.Err())
	}

	// Output:
	// first request served
	// second request: context deadline exceeded
}

func Example_takeMaxDuration() {
	limiter := bucket.New(500*time.Millisecond, 3)
	limiter.TakeAvailable(3) // Drain the bucket

	// The next token needs 500ms; a 100ms budget is too short
	if _, ok := limiter.TakeMaxDuration(1, 100*time.Millisecond); !ok {
		fmt.Println("denied: wait would exceed budget")
	}

	// A 500ms budget covers it, and the caller learns how long to sleep
	if wait, ok := limiter.TakeMaxDuration(1, 500*time.Millisecond); ok {
		fmt.Printf("granted after %v\n", wait)
	}

	// Output:
	// denied: wait would exceed budget
	// granted after 500ms
}

func Example_multipleTokens() {
	limiter := bucket.New(100*time.Millisecond, 20)

	// Weighted operations take several tokens at once
	n := limiter.TakeAvailable(5)
	fmt.Printf("took %d tokens\n", n)
	fmt.Printf("%d remaining\n", limiter.Available())

	// Output:
	// took 5 tokens
	// 15 remaining
}

func Example_configuration() {
	limiter := bucket.NewWithConfig(bucket.Config{
		FillInterval:  100 * time.Millisecond,
		Capacity:      50,
		Quantum:       5,
		InitialTokens: 10,
	})

	fmt.Printf("capacity: %d\n", limiter.Capacity())
	fmt.Printf("quantum: %d\n", limiter.Quantum())
	fmt.Printf("rate: %.0f tokens/sec\n", limiter.Rate())
	fmt.Printf("available: %d\n", limiter.Available())

	// Output:
	// capacity: 50
	// quantum: 5
	// rate: 50 tokens/sec
	// available: 10
}

func Example_quantum() {
	// Refill in bursts of 5 rather than one token at a time
	limiter := bucket.NewWithQuantum(50*time.Millisecond, 100, 5)

	fmt.Printf("adds %d tokens every %v\n", limiter.Quantum(), limiter.FillInterval())
	fmt.Printf("sustained rate: %.0f tokens/sec\n", limiter.Rate())

	// Output:
	// adds 5 tokens every 50ms
	// sustained rate: 100 tokens/sec
}
