package retry

import (
	"context"
	"testing"
	"time"

	"github.com/bsv-blockchain/legacy-p2p/errors"
	"github.com/bsv-blockchain/legacy-p2p/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failing(n int) (func() (string, error), *int) {
	calls := 0

	return func() (string, error) {
		calls++
		if calls <= n {
			return "", errors.NewNetworkError("dial failed")
		}

		return "success", nil
	}, &calls
}

func recordSleeps(t *testing.T) *[]time.Duration {
	t.Helper()

	original := sleepFunc
	t.Cleanup(func() { sleepFunc = original })

	var sleeps []time.Duration

	sleepFunc = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}

	return &sleeps
}

func TestRetry(t *testing.T) {
	logger := ulogger.TestLogger{}
	ctx := context.Background()

	t.Run("first attempt succeeds", func(t *testing.T) {
		sleeps := recordSleeps(t)
		f, calls := failing(0)

		result, err := Retry(ctx, logger, f, WithRetryCount(3))
		require.NoError(t, err)
		assert.Equal(t, "success", result)
		assert.Equal(t, 1, *calls)
		assert.Empty(t, *sleeps)
	})

	t.Run("linear backoff", func(t *testing.T) {
		sleeps := recordSleeps(t)
		f, calls := failing(2)

		result, err := Retry(ctx, logger, f,
			WithRetryCount(3),
			WithBackoffMultiplier(1),
			WithBackoffDurationType(time.Millisecond),
			WithMessage("retrying..."))
		require.NoError(t, err)
		assert.Equal(t, "success", result)
		assert.Equal(t, 3, *calls)
		assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, *sleeps)
	})

	t.Run("all attempts fail", func(t *testing.T) {
		sleeps := recordSleeps(t)
		f, calls := failing(10)

		_, err := Retry(ctx, logger, f, WithRetryCount(3), WithBackoffDurationType(time.Millisecond))
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrNetwork))
		assert.Equal(t, 3, *calls)
		assert.Len(t, *sleeps, 2)
	})

	t.Run("capped exponential backoff", func(t *testing.T) {
		sleeps := recordSleeps(t)
		f, _ := failing(4)

		_, err := Retry(ctx, logger, f,
			WithExponentialBackoff(),
			WithBackoffDurationType(50*time.Millisecond),
			WithBackoffFactor(2.0),
			WithMaxBackoff(200*time.Millisecond),
			WithRetryCount(5))
		require.NoError(t, err)
		assert.Equal(t, []time.Duration{
			50 * time.Millisecond,
			100 * time.Millisecond,
			200 * time.Millisecond,
			200 * time.Millisecond,
		}, *sleeps)
	})

	t.Run("infinite retry", func(t *testing.T) {
		recordSleeps(t)
		f, calls := failing(20)

		result, err := Retry(ctx, logger, f, WithInfiniteRetry(), WithRetryCount(1))
		require.NoError(t, err)
		assert.Equal(t, "success", result)
		assert.Equal(t, 21, *calls)
	})
}

func TestRetryStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	f, _ := failing(1 << 30)

	_, err := Retry(ctx, ulogger.TestLogger{}, f,
		WithInfiniteRetry(),
		WithExponentialBackoff(),
		WithBackoffDurationType(10*time.Millisecond))
	assert.Equal(t, context.DeadlineExceeded, err)
}

func TestCappedExponentialBackoff(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, CappedExponentialBackoff(100*time.Millisecond, 2.0, time.Second))
	assert.Equal(t, time.Second, CappedExponentialBackoff(600*time.Millisecond, 2.0, time.Second))
	assert.Equal(t, 150*time.Millisecond, CappedExponentialBackoff(100*time.Millisecond, 1.5, time.Second))
}

func TestBackoffAndSleep(t *testing.T) {
	t.Run("cancels on context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() {
			done <- BackoffAndSleep(ctx, 2, 1, 100*time.Millisecond)
		}()

		time.Sleep(10 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			assert.Equal(t, context.Canceled, err)
		case <-time.After(time.Second):
			t.Fatal("BackoffAndSleep did not cancel in time")
		}
	})

	t.Run("backoff calculation", func(t *testing.T) {
		sleeps := recordSleeps(t)

		tests := []struct {
			retries    int
			multiplier int
			duration   time.Duration
			expected   time.Duration
		}{
			{0, 1, time.Second, time.Second},
			{1, 2, time.Second, 3 * time.Second},
			{3, 3, time.Second, 10 * time.Second},
			{2, 5, time.Millisecond, 11 * time.Millisecond},
		}

		for _, tc := range tests {
			require.NoError(t, BackoffAndSleep(context.Background(), tc.retries, tc.multiplier, tc.duration))
			assert.Equal(t, tc.expected, (*sleeps)[len(*sleeps)-1])
		}
	})
}
