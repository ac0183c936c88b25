package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"callguard/internal/resilience/circuitbreaker"
	"callguard/internal/resilience/retry"
)

// ServicesConfig represents optional per-service resilience overrides
// and simulated provider knobs, loaded from a YAML file. Durations are
// strings in Go duration syntax ("30s", "2m"); empty or omitted fields
// keep the defaults.
type ServicesConfig struct {
	Services  map[string]ServiceOverride `yaml:"services"`
	Providers ProvidersConfig            `yaml:"providers"`
}

// ServiceOverride tunes one service's retry schedule and breaker.
type ServiceOverride struct {
	Retry struct {
		InitialDelay      string  `yaml:"initial_delay"`
		MaxAttempts       int     `yaml:"max_attempts"`
		BackoffMultiplier float64 `yaml:"backoff_multiplier"`
		MaxDelay          string  `yaml:"max_delay"`
		JitterFraction    float64 `yaml:"jitter_fraction"`
	} `yaml:"retry"`
	CircuitBreaker struct {
		FailureThreshold    int    `yaml:"failure_threshold"`
		OpenTimeout         string `yaml:"open_timeout"`
		HalfOpenMaxAttempts int    `yaml:"half_open_max_attempts"`
	} `yaml:"circuit_breaker"`
}

// ProvidersConfig tunes the simulated downstream services.
type ProvidersConfig struct {
	LLM struct {
		Latency           string  `yaml:"latency"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"llm"`
	Speech struct {
		Latency   string `yaml:"latency"`
		FailFirst int    `yaml:"fail_first"`
	} `yaml:"speech"`
}

// LoadServicesConfig loads the overrides file named by
// SERVICES_CONFIG_PATH. An unset variable yields an empty config, which
// is not an error: overrides are optional.
func LoadServicesConfig() (*ServicesConfig, error) {
	path := os.Getenv("SERVICES_CONFIG_PATH")
	if path == "" {
		return &ServicesConfig{}, nil
	}
	return LoadServicesConfigFromFile(path)
}

// LoadServicesConfigFromFile loads and validates per-service overrides
// from the given YAML file.
// The path parameter is expected to come from a trusted source (environment variable or hardcoded default).
func LoadServicesConfigFromFile(path string) (*ServicesConfig, error) {
	// #nosec G304 -- path is provided by trusted source (env var or config), not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config ServicesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validateServicesConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// validateServicesConfig validates the loaded configuration.
func validateServicesConfig(config *ServicesConfig) error {
	for name, override := range config.Services {
		if name == "" {
			return fmt.Errorf("service name cannot be empty")
		}

		if _, err := parseOptionalDuration(override.Retry.InitialDelay); err != nil {
			return fmt.Errorf("service %s: retry initial_delay: %w", name, err)
		}
		if _, err := parseOptionalDuration(override.Retry.MaxDelay); err != nil {
			return fmt.Errorf("service %s: retry max_delay: %w", name, err)
		}
		if override.Retry.MaxAttempts < 0 {
			return fmt.Errorf("service %s: retry max_attempts cannot be negative", name)
		}
		if override.Retry.BackoffMultiplier != 0 && override.Retry.BackoffMultiplier < 1.0 {
			return fmt.Errorf("service %s: retry backoff_multiplier must be at least 1.0", name)
		}
		if override.Retry.JitterFraction < 0 || override.Retry.JitterFraction >= 1 {
			return fmt.Errorf("service %s: retry jitter_fraction must be in [0.0, 1.0)", name)
		}

		if _, err := parseOptionalDuration(override.CircuitBreaker.OpenTimeout); err != nil {
			return fmt.Errorf("service %s: circuit_breaker open_timeout: %w", name, err)
		}
		if override.CircuitBreaker.FailureThreshold < 0 {
			return fmt.Errorf("service %s: circuit_breaker failure_threshold cannot be negative", name)
		}
		if override.CircuitBreaker.HalfOpenMaxAttempts < 0 {
			return fmt.Errorf("service %s: circuit_breaker half_open_max_attempts cannot be negative", name)
		}
	}

	if _, err := parseOptionalDuration(config.Providers.LLM.Latency); err != nil {
		return fmt.Errorf("providers llm latency: %w", err)
	}
	if config.Providers.LLM.RequestsPerSecond < 0 {
		return fmt.Errorf("providers llm requests_per_second cannot be negative")
	}
	if config.Providers.LLM.Burst < 0 {
		return fmt.Errorf("providers llm burst cannot be negative")
	}
	if _, err := parseOptionalDuration(config.Providers.Speech.Latency); err != nil {
		return fmt.Errorf("providers speech latency: %w", err)
	}
	if config.Providers.Speech.FailFirst < 0 {
		return fmt.Errorf("providers speech fail_first cannot be negative")
	}

	return nil
}

// parseOptionalDuration parses a duration string, treating empty as
// zero (field unset).
func parseOptionalDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %q cannot be negative", s)
	}
	return d, nil
}

// HasOverride reports whether the named service has an override entry.
func (c *ServicesConfig) HasOverride(name string) bool {
	_, ok := c.Services[name]
	return ok
}

// RetryPolicyFor layers the named service's override onto the given
// defaults. Unset fields keep their default values. The config must
// have passed validation; unparseable durations fall back to defaults.
func (c *ServicesConfig) RetryPolicyFor(name string, defaults retry.Policy) retry.Policy {
	override, ok := c.Services[name]
	if !ok {
		return defaults
	}

	policy := defaults
	if d, err := parseOptionalDuration(override.Retry.InitialDelay); err == nil && d > 0 {
		policy.InitialDelay = d
	}
	if override.Retry.MaxAttempts > 0 {
		policy.MaxAttempts = override.Retry.MaxAttempts
	}
	if override.Retry.BackoffMultiplier >= 1.0 {
		policy.Multiplier = override.Retry.BackoffMultiplier
	}
	if d, err := parseOptionalDuration(override.Retry.MaxDelay); err == nil && d > 0 {
		policy.MaxDelay = d
	}
	if override.Retry.JitterFraction > 0 {
		policy.JitterFraction = override.Retry.JitterFraction
	}
	return policy
}

// BreakerConfigFor layers the named service's override onto the given
// defaults. Unset fields keep their default values.
func (c *ServicesConfig) BreakerConfigFor(name string, defaults circuitbreaker.Config) circuitbreaker.Config {
	override, ok := c.Services[name]
	if !ok {
		return defaults
	}

	cfg := defaults
	if override.CircuitBreaker.FailureThreshold > 0 {
		cfg.FailureThreshold = override.CircuitBreaker.FailureThreshold
	}
	if d, err := parseOptionalDuration(override.CircuitBreaker.OpenTimeout); err == nil && d > 0 {
		cfg.OpenTimeout = d
	}
	if override.CircuitBreaker.HalfOpenMaxAttempts > 0 {
		cfg.HalfOpenMaxAttempts = override.CircuitBreaker.HalfOpenMaxAttempts
	}
	return cfg
}
