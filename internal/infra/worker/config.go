package worker

import (
	"fmt"
	"log/slog"
	"time"

	"callguard/internal/pkg/config"
)

// WorkerConfig holds the runtime configuration for the call worker: when
// batches run, how wide they fan out, and where the worker reports health.
//
// Configuration sources:
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (provided by DefaultConfig)
//
// Every field has a default and a validation rule, so the worker starts
// even when the environment is partially or wrongly configured.
type WorkerConfig struct {
	// CronSchedule is the cron expression for batch scheduling.
	// Format: "minute hour day month weekday"
	// Example: "0 9 * * *" (every day at 9:00)
	// Validation: must be a valid cron expression (5 fields)
	// Default: "0 9 * * *"
	CronSchedule string

	// Timezone is the IANA timezone name for cron scheduling. Reminder
	// calls should go out in the recipients' business hours, not UTC's.
	// Example: "America/New_York", "UTC", "Asia/Tokyo"
	// Validation: must be a valid IANA timezone name
	// Default: "UTC"
	Timezone string

	// BatchParallelism is the maximum number of concurrent outbound calls
	// in one batch.
	// Range: 1-50
	// Default: 5
	BatchParallelism int

	// CallTimeout is the deadline for one outbound call, covering script
	// generation, retries, and synthesis.
	// Range: 10s-30m
	// Default: 2 minutes
	CallTimeout time.Duration

	// CallsFile is the path to the YAML file listing the contacts to call.
	// An empty value selects the built-in demo batch.
	// Default: "" (built-in batch)
	CallsFile string

	// HealthPort is the port for the health check HTTP server.
	// Range: 1024-65535 (avoid privileged ports)
	// Default: 9091
	HealthPort int
}

// DefaultConfig returns a WorkerConfig with production-ready defaults:
// a daily batch at 9:00, five concurrent calls, and a two-minute per-call
// deadline that comfortably covers the full retry budget of both stages.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		CronSchedule:     "0 9 * * *",
		Timezone:         "UTC",
		BatchParallelism: 5,
		CallTimeout:      2 * time.Minute,
		CallsFile:        "",
		HealthPort:       9091,
	}
}

// Validate checks every field using the reusable validators from
// internal/pkg/config and returns all failures together.
//
// Validation rules:
//   - CronSchedule: valid cron expression (robfig/cron parser)
//   - Timezone: valid IANA timezone (time.LoadLocation)
//   - BatchParallelism: between 1 and 50
//   - CallTimeout: between 10 seconds and 30 minutes
//   - HealthPort: between 1024 and 65535
//
// CallsFile is not validated here; the batch loader reports missing or
// malformed files when the job runs.
func (c *WorkerConfig) Validate() error {
	var errors []error

	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errors = append(errors, fmt.Errorf("cron schedule: %w", err))
	}

	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errors = append(errors, fmt.Errorf("timezone: %w", err))
	}

	if err := config.ValidateIntRange(c.BatchParallelism, 1, 50); err != nil {
		errors = append(errors, fmt.Errorf("batch parallelism: %w", err))
	}

	if err := config.ValidateDuration(c.CallTimeout, 10*time.Second, 30*time.Minute); err != nil {
		errors = append(errors, fmt.Errorf("call timeout: %w", err))
	}

	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errors = append(errors, fmt.Errorf("health port: %w", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}

	return nil
}

// LoadConfigFromEnv loads the worker configuration from environment
// variables with a fail-open strategy: each field starts from its default,
// an invalid value logs a warning and records a fallback metric, and the
// returned configuration is always valid. The worker never refuses to start
// over configuration.
//
// Environment variables:
//   - CRON_SCHEDULE: cron expression (default: "0 9 * * *")
//   - WORKER_TIMEZONE: IANA timezone name (default: "UTC")
//   - BATCH_PARALLELISM: integer 1-50 (default: 5)
//   - CALL_TIMEOUT: duration string, e.g. "2m" (default: 2 minutes)
//   - CALLS_FILE: path to the contacts YAML (default: built-in batch)
//   - WORKER_HEALTH_PORT: integer 1024-65535 (default: 9091)
//
// Metrics updated per fallback: validation errors, fallback count, and the
// fallback-active gauge; the load timestamp is always refreshed.
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	result := config.LoadEnvWithFallback("CRON_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule)
	cfg.CronSchedule = result.Value.(string)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("cron_schedule")
		metrics.RecordFallback("cron_schedule")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "CronSchedule"),
				slog.String("warning", warning))
		}
	}

	result = config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = result.Value.(string)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("timezone")
		metrics.RecordFallback("timezone")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "Timezone"),
				slog.String("warning", warning))
		}
	}

	result = config.LoadEnvInt("BATCH_PARALLELISM", cfg.BatchParallelism, func(v int) error {
		return config.ValidateIntRange(v, 1, 50)
	})
	cfg.BatchParallelism = result.Value.(int)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("batch_parallelism")
		metrics.RecordFallback("batch_parallelism")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "BatchParallelism"),
				slog.String("warning", warning))
		}
	}

	result = config.LoadEnvDuration("CALL_TIMEOUT", cfg.CallTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, 10*time.Second, 30*time.Minute)
	})
	cfg.CallTimeout = result.Value.(time.Duration)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("call_timeout")
		metrics.RecordFallback("call_timeout")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "CallTimeout"),
				slog.String("warning", warning))
		}
	}

	// No validation; the batch loader handles bad paths when the job runs.
	cfg.CallsFile = config.LoadEnvString("CALLS_FILE", cfg.CallsFile)

	result = config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = result.Value.(int)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("health_port")
		metrics.RecordFallback("health_port")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "HealthPort"),
				slog.String("warning", warning))
		}
	}

	metrics.SetFallbackActive(fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}
