package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("storage: not found")
	ErrInvalidLocator  = errors.New("storage: invalid locator")
	ErrLocatorMismatch = errors.New("storage: locator mismatch")
	ErrImmutable       = errors.New("storage: immutable blob mismatch")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsTimeout reports whether err was caused by an expired or canceled
// context. Timeouts are the only retryable storage failure.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
