// Package backend defines the failure taxonomy shared by the embedding and
// generation capabilities. Both are opaque network-bound services; callers
// only need to distinguish fatal misconfiguration from retryable failure.
package backend

import (
	"errors"
	"fmt"
)

// ErrConfig marks a non-retryable backend misconfiguration (missing API key,
// unknown provider, unknown model). It aborts the whole run.
var ErrConfig = errors.New("backend configuration error")

// TransientError wraps a retryable backend failure: timeouts, rate limits,
// connection resets. The retry helper re-attempts these before they surface
// as a metric-level skip.
type TransientError struct {
	Op  string // the failed operation, e.g. "embed", "generate"
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient backend error during %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a retryable backend failure.
func Transient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err is (or wraps) a retryable backend failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// Configf builds a fatal configuration error.
func Configf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrConfig}, args...)...)
}
