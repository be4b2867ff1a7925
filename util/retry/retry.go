// Package retry re-runs a failing operation with linear or capped exponential backoff.
package retry

import (
	"context"
	"time"

	"github.com/bsv-blockchain/legacy-p2p/ulogger"
)

type SetOptions struct {
	Message             string
	BackoffMultiplier   int
	BackoffDurationType time.Duration
	RetryCount          int
	ExponentialBackoff  bool
	BackoffFactor       float64
	MaxBackoff          time.Duration
	InfiniteRetry       bool
}

type Options func(s *SetOptions)

func WithMessage(message string) Options {
	return func(s *SetOptions) {
		s.Message = message
	}
}

func WithBackoffMultiplier(multiplier int) Options {
	return func(s *SetOptions) {
		s.BackoffMultiplier = multiplier
	}
}

func WithBackoffDurationType(d time.Duration) Options {
	return func(s *SetOptions) {
		s.BackoffDurationType = d
	}
}

func WithRetryCount(count int) Options {
	return func(s *SetOptions) {
		s.RetryCount = count
	}
}

// WithExponentialBackoff starts at the backoff duration type and multiplies
// it by the backoff factor after every failure, up to the max backoff.
func WithExponentialBackoff() Options {
	return func(s *SetOptions) {
		s.ExponentialBackoff = true
	}
}

func WithBackoffFactor(factor float64) Options {
	return func(s *SetOptions) {
		s.BackoffFactor = factor
	}
}

func WithMaxBackoff(d time.Duration) Options {
	return func(s *SetOptions) {
		s.MaxBackoff = d
	}
}

// WithInfiniteRetry retries until f succeeds or ctx is done.
func WithInfiniteRetry() Options {
	return func(s *SetOptions) {
		s.InfiniteRetry = true
	}
}

func defaultOptions() *SetOptions {
	return &SetOptions{
		Message:             "retrying",
		BackoffMultiplier:   2,
		BackoffDurationType: time.Second,
		RetryCount:          3,
		BackoffFactor:       2.0,
		MaxBackoff:          30 * time.Second,
	}
}

// Retry calls f until it succeeds, the attempts run out or ctx is done. The
// error of the last attempt is returned when every attempt fails, and the
// context error when ctx ends the loop.
func Retry[T any](ctx context.Context, logger ulogger.Logger, f func() (T, error), opts ...Options) (T, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	var (
		result  T
		err     error
		backoff = o.BackoffDurationType
	)

	for i := 0; o.InfiniteRetry || i < o.RetryCount; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}

		result, err = f()
		if err == nil {
			return result, nil
		}

		if !o.InfiniteRetry && i == o.RetryCount-1 {
			break
		}

		if o.ExponentialBackoff {
			logger.Warnf("%s (attempt %d, next in %s): %v", o.Message, i+1, backoff, err)

			if sleepErr := sleepFunc(ctx, backoff); sleepErr != nil {
				return result, sleepErr
			}

			backoff = CappedExponentialBackoff(backoff, o.BackoffFactor, o.MaxBackoff)

			continue
		}

		logger.Warnf("%s (attempt %d): %v", o.Message, i+1, err)

		if sleepErr := BackoffAndSleep(ctx, i, o.BackoffMultiplier, o.BackoffDurationType); sleepErr != nil {
			return result, sleepErr
		}
	}

	return result, err
}
