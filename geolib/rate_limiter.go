package geolib

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitWindow is a length of the rolling window of the rate limiter.
const RateLimitWindow = time.Minute

// rateLimiter enforces 2 independent constraints:
//
//    1. A minimal spacing between requests. If a next slot is closer
//       than maxWait, caller waits. Otherwise fails fast.
//    2. A maximal number of requests within a rolling window. This
//       one always fails fast.
type rateLimiter struct {
	mutex       sync.Mutex
	spacing     *rate.Limiter
	window      []time.Time
	maxInWindow int
	maxWait     time.Duration
	clock       func() time.Time
}

// Wait blocks until a request is allowed or returns an error wrapping
// ErrRateLimited.
func (r *rateLimiter) Wait(ctx context.Context) error {
	delay, err := r.reserve()
	if err != nil {
		return err
	}

	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// reserve takes a slot in both constraints or none of them.
func (r *rateLimiter) reserve() (time.Duration, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := r.clock()

	r.trim(now)

	if len(r.window) >= r.maxInWindow {
		return 0, fmt.Errorf("%d requests within last %v: %w",
			len(r.window), RateLimitWindow, ErrRateLimited)
	}

	reservation := r.spacing.ReserveN(now, 1)
	if !reservation.OK() {
		return 0, fmt.Errorf("cannot reserve a slot: %w", ErrRateLimited)
	}

	delay := reservation.DelayFrom(now)
	if delay > r.maxWait {
		reservation.CancelAt(now)

		return 0, fmt.Errorf("next slot is in %v: %w", delay, ErrRateLimited)
	}

	r.window = append(r.window, now.Add(delay))

	return delay, nil
}

func (r *rateLimiter) trim(now time.Time) {
	border := now.Add(-RateLimitWindow)
	idx := 0

	for idx < len(r.window) && !r.window[idx].After(border) {
		idx++
	}

	if idx > 0 {
		r.window = append(r.window[:0], r.window[idx:]...)
	}
}

func newRateLimiter(maxPerWindow int, minDelay, maxWait time.Duration) *rateLimiter {
	return &rateLimiter{
		spacing:     rate.NewLimiter(rate.Every(minDelay), 1),
		window:      make([]time.Time, 0, maxPerWindow),
		maxInWindow: maxPerWindow,
		maxWait:     maxWait,
		clock:       time.Now,
	}
}
