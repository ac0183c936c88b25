package entity

import "time"

// CallStatus is the terminal disposition of one outbound call.
type CallStatus string

const (
	// CallCompleted means every stage of the call pipeline succeeded.
	CallCompleted CallStatus = "completed"

	// CallDegraded means the call went out with the fallback script
	// because script generation was unavailable.
	CallDegraded CallStatus = "degraded"

	// CallFailed means a required stage failed and no call was placed.
	CallFailed CallStatus = "failed"

	// CallRejected means a circuit breaker refused the call outright.
	CallRejected CallStatus = "rejected"
)

// CallResult captures the outcome of one outbound call attempt.
// AudioDuration is the length of the synthesized audio in seconds.
type CallResult struct {
	CallID        string
	ContactID     int64
	ContactName   string
	Status        CallStatus
	Script        string
	AudioURL      string
	AudioDuration float64
	StartedAt     time.Time
	CompletedAt   time.Time
}

// Succeeded reports whether the call actually went out, with or without
// degradation.
func (r *CallResult) Succeeded() bool {
	return r.Status == CallCompleted || r.Status == CallDegraded
}
