package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"callguard/internal/resilience/circuitbreaker"
	"callguard/internal/resilience/health"
	"callguard/internal/resilience/retry"
)

// ResilienceConfig holds the retry, circuit breaker and health probing
// settings shared by every guarded dependency.
type ResilienceConfig struct {
	// Retry configures the backoff schedule for transient failures.
	Retry RetryConfig

	// CircuitBreaker configures the default per-service breaker.
	CircuitBreaker CircuitBreakerConfig

	// HealthCheck configures the background recovery probing.
	HealthCheck HealthCheckConfig
}

// RetryConfig holds the backoff schedule settings.
type RetryConfig struct {
	// InitialDelay before the second attempt. Default: 5s
	InitialDelay time.Duration

	// MaxAttempts including the first call. Default: 3
	MaxAttempts int

	// BackoffMultiplier applied to the delay after each attempt.
	// Default: 2.0
	BackoffMultiplier float64

	// MaxDelay caps the backoff; zero means uncapped. Default: 0
	MaxDelay time.Duration

	// JitterFraction randomizes each delay by the given fraction;
	// zero keeps the schedule deterministic. Default: 0
	JitterFraction float64
}

// CircuitBreakerConfig holds the default breaker settings.
type CircuitBreakerConfig struct {
	// FailureThreshold is the consecutive failures that trip the
	// breaker. Default: 3
	FailureThreshold int

	// OpenTimeout before trial calls are admitted. Default: 60s
	OpenTimeout time.Duration

	// HalfOpenMaxAttempts is the trial budget while half-open.
	// Default: 1
	HalfOpenMaxAttempts int
}

// HealthCheckConfig holds the recovery probing cadence.
type HealthCheckConfig struct {
	// Interval between probe rounds. Default: 30s
	Interval time.Duration

	// Timeout per individual probe. Default: 5s
	Timeout time.Duration
}

// LoadResilienceConfig loads resilience configuration from environment
// variables. Returns a config with defaults if environment variables
// are not set.
func LoadResilienceConfig() (*ResilienceConfig, error) {
	config := &ResilienceConfig{
		Retry: RetryConfig{
			InitialDelay:      getEnvDuration("RETRY_INITIAL_DELAY", 5*time.Second),
			MaxAttempts:       getEnvInt("RETRY_MAX_ATTEMPTS", 3),
			BackoffMultiplier: getEnvFloat("RETRY_BACKOFF_MULTIPLIER", 2.0),
			MaxDelay:          getEnvDuration("RETRY_MAX_DELAY", 0),
			JitterFraction:    getEnvFloat("RETRY_JITTER_FRACTION", 0),
		},
		CircuitBreaker: CircuitBreakerConfig{
			FailureThreshold:    getEnvInt("CB_FAILURE_THRESHOLD", 3),
			OpenTimeout:         getEnvDuration("CB_OPEN_TIMEOUT", 60*time.Second),
			HalfOpenMaxAttempts: getEnvInt("CB_HALF_OPEN_MAX_ATTEMPTS", 1),
		},
		HealthCheck: HealthCheckConfig{
			Interval: getEnvDuration("HEALTH_CHECK_INTERVAL", 30*time.Second),
			Timeout:  getEnvDuration("HEALTH_CHECK_TIMEOUT", 5*time.Second),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid resilience configuration: %w", err)
	}

	return config, nil
}

// Validate checks configuration correctness.
func (c *ResilienceConfig) Validate() error {
	if c.Retry.InitialDelay <= 0 {
		return fmt.Errorf("RETRY_INITIAL_DELAY must be positive")
	}

	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1")
	}

	if c.Retry.BackoffMultiplier < 1.0 {
		return fmt.Errorf("RETRY_BACKOFF_MULTIPLIER must be at least 1.0")
	}

	if c.Retry.MaxDelay < 0 {
		return fmt.Errorf("RETRY_MAX_DELAY cannot be negative")
	}

	if c.Retry.JitterFraction < 0 || c.Retry.JitterFraction >= 1 {
		return fmt.Errorf("RETRY_JITTER_FRACTION must be in [0.0, 1.0)")
	}

	if c.CircuitBreaker.FailureThreshold < 1 {
		return fmt.Errorf("CB_FAILURE_THRESHOLD must be at least 1")
	}

	if c.CircuitBreaker.OpenTimeout <= 0 {
		return fmt.Errorf("CB_OPEN_TIMEOUT must be positive")
	}

	if c.CircuitBreaker.HalfOpenMaxAttempts < 1 {
		return fmt.Errorf("CB_HALF_OPEN_MAX_ATTEMPTS must be at least 1")
	}

	if c.HealthCheck.Interval <= 0 {
		return fmt.Errorf("HEALTH_CHECK_INTERVAL must be positive")
	}

	if c.HealthCheck.Timeout <= 0 {
		return fmt.Errorf("HEALTH_CHECK_TIMEOUT must be positive")
	}

	if c.HealthCheck.Timeout >= c.HealthCheck.Interval {
		return fmt.Errorf("HEALTH_CHECK_TIMEOUT must be shorter than HEALTH_CHECK_INTERVAL")
	}

	return nil
}

// RetryPolicy converts the loaded settings into the retry package's
// policy type.
func (c *ResilienceConfig) RetryPolicy() retry.Policy {
	return retry.Policy{
		InitialDelay:   c.Retry.InitialDelay,
		MaxAttempts:    c.Retry.MaxAttempts,
		Multiplier:     c.Retry.BackoffMultiplier,
		MaxDelay:       c.Retry.MaxDelay,
		JitterFraction: c.Retry.JitterFraction,
	}
}

// BreakerConfig converts the loaded settings into the circuit breaker
// package's config type.
func (c *ResilienceConfig) BreakerConfig() circuitbreaker.Config {
	return circuitbreaker.Config{
		FailureThreshold:    c.CircuitBreaker.FailureThreshold,
		OpenTimeout:         c.CircuitBreaker.OpenTimeout,
		HalfOpenMaxAttempts: c.CircuitBreaker.HalfOpenMaxAttempts,
	}
}

// HealthConfig converts the loaded settings into the health package's
// config type.
func (c *ResilienceConfig) HealthConfig() health.Config {
	return health.Config{
		Interval: c.HealthCheck.Interval,
		Timeout:  c.HealthCheck.Timeout,
	}
}

// getEnvInt parses integer environment variable with default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvFloat parses float environment variable with default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration parses duration environment variable with default.
// Supports formats like "30s", "1m", "2h".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
