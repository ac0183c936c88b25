package config

import (
	"fmt"
	"time"
)

// ValidateDurationRange checks min <= d <= max, bounds inclusive.
//
//	if err := ValidateDurationRange(interval, time.Second, time.Hour); err != nil {
//	    return fmt.Errorf("invalid probe interval: %w", err)
//	}
func ValidateDurationRange(d, min, max time.Duration) error {
	switch {
	case min > max:
		return fmt.Errorf("invalid range [%v, %v]", min, max)
	case d < min:
		return fmt.Errorf("duration %v below range minimum %v", d, min)
	case d > max:
		return fmt.Errorf("duration %v above range maximum %v", d, max)
	}
	return nil
}

// ValidatePositiveDuration rejects zero and negative durations. Timeouts
// and intervals that would never fire go through this.
func ValidatePositiveDuration(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("expected a positive duration, got %v", d)
	}
	return nil
}

// ValidateNonNegativeDuration rejects negative durations. Zero is fine;
// simulated latencies and optional delays may legitimately be off.
func ValidateNonNegativeDuration(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("expected a non-negative duration, got %v", d)
	}
	return nil
}
