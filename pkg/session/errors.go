package session

import (
	"context"
	"errors"
	"fmt"
)

// Session errors.
var (
	ErrNotConnected      = errors.New("session not connected")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrDeviceUnavailable = errors.New("device unavailable")
	ErrAddressOutOfRange = errors.New("address out of range")
	ErrWriteProtected    = errors.New("write protected")
	ErrIO                = errors.New("i/o error")
	ErrTimeout           = errors.New("operation timed out")
)

var taxonomy = []error{
	ErrNotConnected,
	ErrPermissionDenied,
	ErrDeviceUnavailable,
	ErrAddressOutOfRange,
	ErrWriteProtected,
	ErrIO,
	ErrTimeout,
}

// IsFatal reports whether err invalidates the session handle.
// Fatal errors move an open session to Failed.
func IsFatal(err error) bool {
	return errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrDeviceUnavailable)
}

// Kind returns the taxonomy sentinel that err wraps, or nil.
func Kind(err error) error {
	for _, k := range taxonomy {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// classify makes sure a device error carries a taxonomy sentinel.
// Unknown errors become ErrIO.
func classify(err error) error {
	if err == nil || Kind(err) != nil {
		return err
	}
	return fmt.Errorf("%w: %w", ErrIO, err)
}

// contextErr maps a finished context to a session error. Cancellation is
// reported as ErrIO and still matches context.Canceled.
func contextErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return fmt.Errorf("%w: %w", ErrIO, ctx.Err())
}

// wrapUnavailable marks an open failure as ErrDeviceUnavailable while
// keeping the underlying cause inspectable.
func wrapUnavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
}
