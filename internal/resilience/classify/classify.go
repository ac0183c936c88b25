// Package classify decides whether a failure is worth retrying.
//
// Every error that reaches the retry handler is sorted into one of two
// classes: Transient failures (the dependency may recover, retrying can
// help) and Permanent failures (retrying cannot help). Unknown errors
// classify as Permanent so that a misbehaving dependency is never hammered
// with retries it cannot serve.
package classify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// Class is the retry-worthiness of a failure.
type Class int

const (
	// Transient failures may clear on their own: service unavailable,
	// timeouts, connection resets, rate limiting.
	Transient Class = iota

	// Permanent failures will not clear by retrying: authentication
	// failures, malformed requests, and anything unrecognized.
	Permanent
)

// String returns the lowercase name of the class.
func (c Class) String() string {
	switch c {
	case Transient:
		return "transient"
	case Permanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// HTTPError represents an HTTP error response from a dependency.
// It carries the status code so classification can distinguish
// server-side conditions from client-side ones.
type HTTPError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// classifiedError pins an explicit class onto a wrapped error,
// overriding inspection-based classification.
type classifiedError struct {
	class Class
	err   error
}

func (e *classifiedError) Error() string {
	return e.err.Error()
}

func (e *classifiedError) Unwrap() error {
	return e.err
}

// AsTransient marks err as Transient regardless of its underlying type.
// Returns nil if err is nil.
func AsTransient(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{class: Transient, err: err}
}

// AsPermanent marks err as Permanent regardless of its underlying type.
// Returns nil if err is nil.
func AsPermanent(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{class: Permanent, err: err}
}

// Classify reports the class of a non-nil error.
//
// Classification rules, in order:
//   - Explicitly marked errors (AsTransient / AsPermanent) keep their mark.
//   - context.DeadlineExceeded is Transient: a timeout says nothing about
//     the next attempt. context.Canceled is Permanent: the caller gave up.
//   - HTTPError: 5xx, 429 (rate limited), and 408 (request timeout) are
//     Transient; all other statuses are Permanent.
//   - Network timeouts (net.Error) and connection-level errno failures
//     (ECONNREFUSED, ECONNRESET, ETIMEDOUT, ENETUNREACH) are Transient.
//   - Everything else is Permanent.
func Classify(err error) Class {
	var marked *classifiedError
	if errors.As(err, &marked) {
		return marked.class
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Transient
	}
	if errors.Is(err, context.Canceled) {
		return Permanent
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode >= 500:
			return Transient
		case httpErr.StatusCode == 429:
			return Transient
		case httpErr.StatusCode == 408:
			return Transient
		default:
			return Permanent
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Transient
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.ETIMEDOUT, syscall.ENETUNREACH:
			return Transient
		}
	}

	return Permanent
}

// IsTransient reports whether err classifies as Transient.
// A nil error is not transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	return Classify(err) == Transient
}
