// Package retry runs provider calls with capped exponential backoff.
package retry

import (
	"context"
	"errors"
	"net"
	"time"
)

// Policy bounds the number of attempts and the backoff.
type Policy struct {
	MaxRetries int
	Base       time.Duration
	Max        time.Duration
}

// DefaultPolicy retries five times starting at 200ms, capped at 5s.
var DefaultPolicy = Policy{MaxRetries: 5, Base: 200 * time.Millisecond, Max: 5 * time.Second}

type transientError struct {
	err   error
	after time.Duration
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient marks err as retryable. A positive after overrides the backoff for the
// next attempt (e.g. from a Retry-After header).
func Transient(err error, after time.Duration) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err, after: after}
}

// IsTransient reports whether err was marked retryable or is a network timeout.
func IsTransient(err error) bool {
	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Do calls fn until it succeeds, returns a non-transient error, the context ends,
// or MaxRetries retries are used up. The last error is returned.
func Do(ctx context.Context, p Policy, fn func(attempt int) error) error {
	for attempt := 0; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		if attempt >= p.MaxRetries || !IsTransient(err) || ctx.Err() != nil {
			return unwrapTransient(err)
		}
		wait := p.Delay(attempt)
		var te *transientError
		if errors.As(err, &te) && te.after > 0 {
			wait = te.after
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return unwrapTransient(err)
		case <-t.C:
		}
	}
}

// Delay returns the backoff before retry number attempt.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base, limit := p.Base, p.Max
	if base <= 0 {
		base = DefaultPolicy.Base
	}
	if limit <= 0 {
		limit = DefaultPolicy.Max
	}
	if attempt > 30 {
		return limit
	}
	d := base << attempt
	if d > limit || d <= 0 {
		d = limit
	}
	return d
}

func unwrapTransient(err error) error {
	var te *transientError
	if errors.As(err, &te) {
		return te.err
	}
	return err
}
