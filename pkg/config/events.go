package config

import (
	"log/slog"
	"time"
)

// EventSinkConfig contains the rate cap for the resilience event stream.
//
// A flapping dependency can emit state transitions far faster than any
// downstream log consumer wants to see them, so the sink is capped with
// a token bucket and everything beyond the cap is dropped.
type EventSinkConfig struct {
	// EventsPerSecond is the sustained event rate admitted to the sink.
	EventsPerSecond float64

	// Burst is the number of events that may pass back-to-back before
	// the rate applies.
	Burst int
}

// LoadEventSinkConfig loads event sink settings from environment variables.
//
// If any values are invalid, it logs warnings and uses safe defaults
// instead of failing.
//
// Environment variables:
//   - EVENT_RATE_LIMIT: Sustained events per second (default: 5.0)
//   - EVENT_RATE_BURST: Events allowed back-to-back (default: 10)
//
// Returns:
//   - *EventSinkConfig: Validated configuration with defaults applied
//   - error: Always nil (validation failures result in warnings and defaults)
//
// Example:
//
//	config, err := LoadEventSinkConfig()
//	if err != nil {
//	    return fmt.Errorf("failed to load event sink config: %w", err)
//	}
func LoadEventSinkConfig() (*EventSinkConfig, error) {
	config := &EventSinkConfig{}

	eventsPerSecond := GetEnvFloat("EVENT_RATE_LIMIT", 5.0)
	if eventsPerSecond <= 0 {
		slog.Warn("invalid EVENT_RATE_LIMIT, using default",
			slog.Float64("value", eventsPerSecond),
			slog.Float64("default", 5.0))
		eventsPerSecond = 5.0
	}
	config.EventsPerSecond = eventsPerSecond

	burst := GetEnvInt("EVENT_RATE_BURST", 10)
	if burst <= 0 {
		slog.Warn("invalid EVENT_RATE_BURST, using default",
			slog.Int("value", burst),
			slog.Int("default", 10))
		burst = 10
	}
	config.Burst = burst

	return config, nil
}

// SustainedInterval returns the average spacing between admitted events
// at the configured rate. Useful for sizing test sleeps and dashboards.
func (c *EventSinkConfig) SustainedInterval() time.Duration {
	if c.EventsPerSecond <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / c.EventsPerSecond)
}
