package geolib

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type retryNotifyFunc func(attempt int, delay time.Duration, err error)

// retryPolicy runs an operation up to maxRetries+1 times. A delay
// before attempt N+1 is retryDelay * 2^(N-1).
type retryPolicy struct {
	maxRetries uint64
	retryDelay time.Duration
}

func (r retryPolicy) Do(ctx context.Context, operation func() error, notify retryNotifyFunc) error {
	attempt := 0

	return backoff.RetryNotify(func() error {
		err := operation()
		if err != nil && isPermanentError(err) {
			return backoff.Permanent(err)
		}

		return err
	}, backoff.WithContext(backoff.WithMaxRetries(r.backOff(), r.maxRetries), ctx),
		func(err error, delay time.Duration) {
			attempt++

			if notify != nil {
				notify(attempt, delay, err)
			}
		})
}

func (r retryPolicy) backOff() *backoff.ExponentialBackOff {
	maxInterval := r.retryDelay

	for i := uint64(0); i < r.maxRetries && maxInterval < time.Hour; i++ {
		maxInterval *= 2
	}

	rv := backoff.NewExponentialBackOff()
	rv.InitialInterval = r.retryDelay
	rv.Multiplier = 2
	rv.RandomizationFactor = 0
	rv.MaxInterval = maxInterval
	rv.MaxElapsedTime = 0

	return rv
}

// isPermanentError reports errors which make no sense to retry: rate
// limiter refusals, soft provider failures and cancellations.
func isPermanentError(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrProviderFailure) ||
		errors.Is(err, context.Canceled)
}
