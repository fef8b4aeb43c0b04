package wakeup

import (
	"errors"
	"fmt"
)

// Standard errors.
var (
	// ErrResourceExhausted indicates the OS refused to allocate (or operate)
	// the readiness channel. It is not recoverable internally.
	ErrResourceExhausted = errors.New("wakeup: resource exhausted")

	// ErrInvalidUse indicates a programming error, e.g. a double close, or
	// concurrent calls to an owner-only method.
	ErrInvalidUse = errors.New("wakeup: invalid use")

	ErrAlreadyRegistered = errors.New("wakeup: already registered")
	ErrNotRegistered     = errors.New("wakeup: not registered")
	ErrPollerClosed      = errors.New("wakeup: poller closed")
)

// ResourceError reports a failed syscall against the readiness channel.
//
// It matches both [ErrResourceExhausted] and its Cause, via [errors.Is]:
//
//	_, err := wakeup.New()
//	if errors.Is(err, unix.EMFILE) {
//	    // out of file descriptors
//	}
type ResourceError struct {
	Cause error
	Op    string
}

// Error implements the error interface.
func (e *ResourceError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("wakeup: %s: resource exhausted", e.Op)
	}
	return fmt.Sprintf("wakeup: %s: resource exhausted: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *ResourceError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is [ErrResourceExhausted].
func (e *ResourceError) Is(target error) bool {
	return target == ErrResourceExhausted
}

// UsageError reports misuse of a [Wakeup] or [Poller]. Methods that cannot
// return an error panic with a *UsageError instead.
type UsageError struct {
	Op      string
	Message string
}

// Error implements the error interface.
func (e *UsageError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("wakeup: %s: invalid use", e.Op)
	}
	return fmt.Sprintf("wakeup: %s: invalid use: %s", e.Op, e.Message)
}

// Is reports whether target is [ErrInvalidUse].
func (e *UsageError) Is(target error) bool {
	return target == ErrInvalidUse
}

func newResourceError(op string, cause error) error {
	return &ResourceError{Op: op, Cause: cause}
}

func misuse(op, message string) *UsageError {
	return &UsageError{Op: op, Message: message}
}
