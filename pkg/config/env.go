// Package config provides the small typed environment helpers shared by
// the simulated providers and the command binaries, plus the duration
// validators for the values they read.
//
// The GetEnv* readers never fail: an unset variable means the default,
// and an unparseable one logs a warning and means the default too. Use
// them for knobs where a bad value is an inconvenience, not an incident;
// the worker's own configuration goes through its metrics-backed loader
// instead.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// warnInvalid reports one fallback in a consistent shape.
func warnInvalid(key, value string, defaultValue any, err error) {
	slog.Warn("invalid value for environment variable, using default",
		slog.String("key", key),
		slog.String("value", value),
		slog.Any("default", defaultValue),
		slog.Any("error", err))
}

// GetEnvString returns the variable's value, or defaultValue when the
// variable is unset or empty. No parsing, no warnings.
func GetEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt reads an integer variable.
//
//	failFirst := GetEnvInt("SPEECH_FAIL_FIRST", 3)
func GetEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		warnInvalid(key, raw, defaultValue, err)
		return defaultValue
	}
	return value
}

// GetEnvFloat reads a float64 variable.
//
//	rps := GetEnvFloat("LLM_REQUESTS_PER_SECOND", 10.0)
func GetEnvFloat(key string, defaultValue float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		warnInvalid(key, raw, defaultValue, err)
		return defaultValue
	}
	return value
}

// GetEnvBool reads a boolean variable in strconv.ParseBool syntax:
// "1", "t", "T", "true", "TRUE", "True" and their false counterparts.
func GetEnvBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		warnInvalid(key, raw, defaultValue, err)
		return defaultValue
	}
	return value
}

// GetEnvDuration reads a variable in time.ParseDuration syntax ("30s",
// "1m", "1h30m").
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		warnInvalid(key, raw, defaultValue, err)
		return defaultValue
	}
	return value
}
