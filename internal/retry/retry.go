package retry

import (
	"context"
	"time"
)

// Defaults used by the report generation and chat calls.
const (
	DefaultAttempts = 3
	DefaultDelay    = 1000 * time.Millisecond
)

// SleepFunc pauses for d. It returns early with ctx.Err() when ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Dispatcher runs an operation up to Attempts times, waiting the same
// fixed Delay between attempts. There is no backoff and no jitter.
//
// The zero value performs a single attempt.
type Dispatcher struct {
	Attempts int
	Delay    time.Duration

	// Sleep is used between attempts. Nil means a real timer.
	Sleep SleepFunc
}

// New returns a Dispatcher with the given budget. attempts < 1 is clamped to 1.
func New(attempts int, delay time.Duration) Dispatcher {
	if attempts < 1 {
		attempts = 1
	}
	if delay < 0 {
		delay = 0
	}
	return Dispatcher{Attempts: attempts, Delay: delay}
}

// Default returns the 3 attempts / 1s dispatcher.
func Default() Dispatcher {
	return New(DefaultAttempts, DefaultDelay)
}

// Do invokes op until it succeeds or the attempt budget is spent.
// On success the result is returned right away. When every attempt fails the
// error of the last attempt is returned as is, without wrapping.
//
// The dispatcher never cancels op. If ctx is done while waiting between
// attempts the loop stops and the last error from op is returned.
func Do[T any](ctx context.Context, d Dispatcher, op func(context.Context) (T, error)) (T, error) {
	attempts := d.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := d.Sleep
	if sleep == nil {
		sleep = wait
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		res, err := op(ctx)
		if err == nil {
			return res, nil
		}
		lastErr = err

		// no pause after the final attempt
		if attempt == attempts {
			break
		}
		if sleep(ctx, d.Delay) != nil {
			break
		}
	}

	var zero T
	return zero, lastErr
}

// Run is Do for operations without a result.
func (d Dispatcher) Run(ctx context.Context, op func(context.Context) error) error {
	_, err := Do(ctx, d, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

func wait(ctx context.Context, d time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
