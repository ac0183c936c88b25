package call

import (
	"errors"

	"callguard/internal/resilience/circuitbreaker"
)

// ErrNoContacts is returned by ProcessBatch when the contact list is empty,
// so callers can tell an idle batch apart from one that ran and failed.
var ErrNoContacts = errors.New("no contacts to call")

// IsRejection reports whether err means a circuit breaker denied the call
// before the downstream service was invoked.
func IsRejection(err error) bool {
	return errors.Is(err, circuitbreaker.ErrOpen)
}
