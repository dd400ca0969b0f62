package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the non-transient failure classes. Wrap with
// fmt.Errorf("...: %w", err) and classify with errors.Is.
var (
	// ErrInvalidQuery marks an empty or malformed query. Never retried.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrSessionTimeout marks an exceeded overall session deadline.
	ErrSessionTimeout = errors.New("session deadline exceeded")

	// ErrCancelled marks a cooperatively cancelled session.
	ErrCancelled = errors.New("cancelled")
)

// TransientError wraps a backend hiccup (timeout, connection failure) that is
// worth retrying with backoff.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient %s failure: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as retryable. Returns nil for a nil err.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err (or anything it wraps) is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
