package events

import (
	"context"
	"log/slog"
)

// Sink consumes events. Implementations must be safe for concurrent use
// and must not block the caller meaningfully; event delivery problems
// never surface as errors in the call path.
type Sink interface {
	Record(event Event)
}

// LogSink writes every event to a structured logger. Alertworthy events
// log at warn level so they stand out in aggregated logs, the rest at
// info.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink backed by the given logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Record implements Sink.
func (s *LogSink) Record(e Event) {
	level := slog.LevelInfo
	if Alertworthy(e) {
		level = slog.LevelWarn
	}
	s.logger.Log(context.Background(), level, "resilience event",
		"service", e.Service,
		"outcome", string(e.Outcome),
		"breaker_state", e.BreakerState,
		"retry_count", e.RetryCount,
		"message", e.Message,
		"occurred_at", e.Timestamp,
		"alertworthy", Alertworthy(e),
	)
}

// NoopSink discards every event. It is used when event recording is
// disabled to avoid nil checks in the call path.
type NoopSink struct{}

// NewNoopSink creates a new NoopSink instance.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

// Record does nothing.
func (s *NoopSink) Record(e Event) {}

// MultiSink fans each event out to every wrapped sink in order.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a sink that delivers to all the given sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Record implements Sink.
func (s *MultiSink) Record(e Event) {
	for _, sink := range s.sinks {
		sink.Record(e)
	}
}
