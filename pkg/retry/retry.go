// Package retry provides bounded exponential backoff for calls into
// network-bound backends (embedding, generation, vector search).
package retry

import (
	"context"
	"time"
)

// Policy controls how Do re-invokes a failing operation.
type Policy struct {
	// Attempts is the total number of invocations, including the first.
	Attempts int
	// BaseDelay is the wait before the first retry; it doubles after each
	// failed attempt.
	BaseDelay time.Duration
	// Retryable reports whether an error is worth retrying. A nil Retryable
	// retries every error.
	Retryable func(error) bool
}

// DefaultPolicy matches the pipeline contract: up to 3 attempts with
// exponential backoff before the error surfaces to the caller.
func DefaultPolicy(retryable func(error) bool) Policy {
	return Policy{Attempts: 3, BaseDelay: 500 * time.Millisecond, Retryable: retryable}
}

// Do runs fn until it succeeds, the policy is exhausted, a non-retryable
// error occurs, or ctx is done. The last error is returned unwrapped so
// callers can classify it.
func Do(ctx context.Context, p Policy, fn func(context.Context) error) error {
	if p.Attempts < 1 {
		p.Attempts = 1
	}

	var err error
	delay := p.BaseDelay
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == p.Attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
