// Package retry runs an operation under an explicit, bounded retry policy.
package retry

import (
	"context"
	"time"
)

// Clock abstracts waiting so tests can run retries without sleeping.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock waits on wall-clock time.
var RealClock Clock = realClock{}

// Policy describes how many attempts to make and how long to wait between
// them. Delay receives the number of the attempt that just failed, starting at 1.
type Policy struct {
	MaxAttempts int
	Delay       func(attempt int) time.Duration
	// Retryable decides whether an error is worth another attempt. Nil means
	// every error is retried.
	Retryable func(err error) bool
}

// Fixed waits the same delay after every failed attempt.
func Fixed(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

// Exponential doubles base after each failed attempt, capped at max.
func Exponential(base, max time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		d := base
		for i := 1; i < attempt; i++ {
			d *= 2
			if d >= max {
				return max
			}
		}
		return d
	}
}

// Do calls fn until it succeeds, returns a non-retryable error, the attempts
// are exhausted, or ctx is done. The last error from fn is returned; a done
// context during a wait returns ctx.Err().
func Do[T any](ctx context.Context, p Policy, clock Clock, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	if clock == nil {
		clock = RealClock
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, err
		}

		result, err := fn(ctx, attempt)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if p.Retryable != nil && !p.Retryable(err) {
			return zero, err
		}
		if attempt == attempts {
			break
		}

		var wait time.Duration
		if p.Delay != nil {
			wait = p.Delay(attempt)
		}
		if wait <= 0 {
			continue
		}
		select {
		case <-clock.After(wait):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	return zero, lastErr
}
