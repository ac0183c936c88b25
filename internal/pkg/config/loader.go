package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ConfigLoadResult is what every loader returns: the value the component
// should run with, the warnings to log, and whether the default had to
// stand in for a bad environment value.
//
// Loaders never fail. A mistyped variable must not crash-loop the worker;
// it starts on defaults and the fallback shows up in logs and metrics.
//
//	result := LoadEnvDuration("CALL_TIMEOUT", 2*time.Minute, ValidatePositiveDuration)
//	timeout := result.Value.(time.Duration)
type ConfigLoadResult struct {
	Value           interface{}
	Warnings        []string
	FallbackApplied bool
}

// accepted wraps a value that needs no warning: it came from the
// environment and passed validation, or the variable was absent and the
// default applies silently.
func accepted(value interface{}) ConfigLoadResult {
	return ConfigLoadResult{Value: value}
}

// rejected substitutes the default for an unusable value and records the
// one warning the caller is expected to log.
func rejected(envKey, raw string, reason interface{}, defaultValue interface{}) ConfigLoadResult {
	warning := fmt.Sprintf("Invalid %s='%s': %v, falling back to default '%v'",
		envKey, raw, reason, defaultValue)
	return ConfigLoadResult{
		Value:           defaultValue,
		Warnings:        []string{warning},
		FallbackApplied: true,
	}
}

// LoadEnvString reads a plain string variable. Unset and empty both mean
// the default; no validation runs. Use LoadEnvWithFallback when the value
// has a shape worth checking.
func LoadEnvString(envKey, defaultValue string) string {
	if value := os.Getenv(envKey); value != "" {
		return value
	}
	return defaultValue
}

// LoadEnvWithFallback reads a string variable and checks it with validator
// (nil skips the check). A value that fails validation is replaced by the
// default and reported through Warnings and FallbackApplied.
//
//	result := LoadEnvWithFallback("CRON_SCHEDULE", "0 9 * * *", ValidateCronSchedule)
//	schedule := result.Value.(string)
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) ConfigLoadResult {
	value := os.Getenv(envKey)
	if value == "" {
		return accepted(defaultValue)
	}
	if validator != nil {
		if err := validator(value); err != nil {
			return rejected(envKey, value, err, defaultValue)
		}
	}
	return accepted(value)
}

// LoadEnvDuration reads a variable in time.ParseDuration syntax ("45s",
// "2m", "1h30m"). Unparseable input and validator rejections both fall
// back to the default.
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) ConfigLoadResult {
	raw := os.Getenv(envKey)
	if raw == "" {
		return accepted(defaultValue)
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return rejected(envKey, raw, "invalid duration format", defaultValue)
	}
	if validator != nil {
		if err := validator(parsed); err != nil {
			return rejected(envKey, raw, err, defaultValue)
		}
	}
	return accepted(parsed)
}

// LoadEnvInt reads an integer variable. Unparseable input and validator
// rejections both fall back to the default.
//
//	result := LoadEnvInt("BATCH_PARALLELISM", 5, func(v int) error {
//		return ValidateIntRange(v, 1, 50)
//	})
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) ConfigLoadResult {
	raw := os.Getenv(envKey)
	if raw == "" {
		return accepted(defaultValue)
	}

	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return rejected(envKey, raw, "invalid integer format", defaultValue)
	}
	if validator != nil {
		if err := validator(parsed); err != nil {
			return rejected(envKey, raw, err, defaultValue)
		}
	}
	return accepted(parsed)
}
