package events

import (
	"sync/atomic"

	"golang.org/x/time/rate"
)

// RateLimitedSink caps the event rate reaching a wrapped sink using a
// token bucket. A flapping dependency can emit transitions far faster
// than any downstream consumer wants to see them; excess events are
// dropped and counted rather than queued, so the call path never blocks
// on event delivery.
type RateLimitedSink struct {
	next    Sink
	limiter *rate.Limiter
	dropped atomic.Int64
}

// NewRateLimitedSink wraps next with a token bucket.
//
// Parameters:
//   - next: the sink receiving admitted events
//   - eventsPerSecond: maximum sustained event rate (e.g., 5.0)
//   - burst: events that may pass back-to-back before the rate applies
//
// Example:
//
//	sink := NewRateLimitedSink(NewLogSink(logger), 5.0, 10)
func NewRateLimitedSink(next Sink, eventsPerSecond float64, burst int) *RateLimitedSink {
	return &RateLimitedSink{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(eventsPerSecond), burst),
	}
}

// Record implements Sink. Events beyond the configured rate are dropped.
func (s *RateLimitedSink) Record(e Event) {
	if !s.limiter.Allow() {
		s.dropped.Add(1)
		return
	}
	s.next.Record(e)
}

// Dropped returns how many events the limiter has discarded so far.
func (s *RateLimitedSink) Dropped() int64 {
	return s.dropped.Load()
}
