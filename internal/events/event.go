// Package events defines the structured event emitted after every
// terminal call outcome and breaker state transition. Events are the
// audit trail operators read to reconstruct what the breakers did and
// why; sinks decide where they go.
package events

import "time"

// Outcome classifies what an event reports.
type Outcome string

const (
	// OutcomeSuccess marks a call that completed, possibly after retries.
	OutcomeSuccess Outcome = "success"

	// OutcomePermanentFailure marks a call abandoned on a non-retryable
	// error.
	OutcomePermanentFailure Outcome = "permanent_failure"

	// OutcomeRetriesExhausted marks a call that failed every attempt in
	// its retry budget.
	OutcomeRetriesExhausted Outcome = "retries_exhausted"

	// OutcomeRejected marks a call the breaker refused to admit.
	OutcomeRejected Outcome = "rejected"

	// OutcomeStateChange marks a breaker state transition.
	OutcomeStateChange Outcome = "state_change"

	// OutcomeRecovered marks a health probe confirming a service is back.
	OutcomeRecovered Outcome = "recovered"
)

// Event is one record in the resilience audit trail.
type Event struct {
	// Timestamp is when the outcome or transition happened.
	Timestamp time.Time

	// Service names the downstream dependency involved.
	Service string

	// Outcome classifies the record.
	Outcome Outcome

	// BreakerState is the breaker's state when the event was emitted,
	// for transitions the state entered.
	BreakerState string

	// RetryCount is the number of attempts the call consumed. Zero for
	// events without an associated call.
	RetryCount int

	// Message is a short human-readable description.
	Message string
}

// Alertworthy reports whether the event should page someone: a breaker
// opening or a call exhausting its retries. Everything else is routine.
func Alertworthy(e Event) bool {
	if e.Outcome == OutcomeRetriesExhausted {
		return true
	}
	return e.Outcome == OutcomeStateChange && e.BreakerState == "open"
}
