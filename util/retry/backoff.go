package retry

import (
	"context"
	"time"
)

// sleepFunc is swapped out by tests to record the sleeps instead of taking them.
var sleepFunc = sleepContext

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// BackoffAndSleep sleeps for backoffMultiplier*retries+1 units of
// durationType. It returns the context error if ctx is done first.
func BackoffAndSleep(ctx context.Context, retries int, backoffMultiplier int, durationType time.Duration) error {
	backoff := time.Duration(backoffMultiplier*retries+1) * durationType

	return sleepFunc(ctx, backoff)
}

// CappedExponentialBackoff returns currentBackoff grown by backoffFactor, never
// more than maxBackoff.
func CappedExponentialBackoff(currentBackoff time.Duration, backoffFactor float64, maxBackoff time.Duration) time.Duration {
	return min(time.Duration(float64(currentBackoff)*backoffFactor), maxBackoff)
}
