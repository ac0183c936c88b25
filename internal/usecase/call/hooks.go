package call

import (
	"fmt"
	"time"

	"callguard/internal/events"
	"callguard/internal/resilience/circuitbreaker"
)

// TransitionRecorder returns a breaker transition hook that records one
// state-change event per transition. Wire it into the registry before the
// first breaker is created so no transition goes unrecorded.
func TransitionRecorder(sink events.Sink) circuitbreaker.TransitionFunc {
	return func(name string, from, to circuitbreaker.State) {
		sink.Record(events.Event{
			Timestamp:    time.Now(),
			Service:      name,
			Outcome:      events.OutcomeStateChange,
			BreakerState: to.String(),
			Message:      fmt.Sprintf("circuit breaker changed from %s to %s", from, to),
		})
	}
}

// RecoveryRecorder returns a health-monitor recovery hook that records one
// recovered event per monitor-driven breaker reset.
func RecoveryRecorder(sink events.Sink) func(service string) {
	return func(service string) {
		sink.Record(events.Event{
			Timestamp:    time.Now(),
			Service:      service,
			Outcome:      events.OutcomeRecovered,
			BreakerState: circuitbreaker.StateClosed.String(),
			Message:      "health probe succeeded, circuit breaker reset",
		})
	}
}
