// Package retry provides exponential backoff retry for transient failures.
//
// The handler re-invokes an operation until it succeeds, fails permanently,
// or runs out of attempts. Failure classes come from the classify package:
// transient failures are retried with exponentially growing delays,
// permanent failures propagate immediately.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"callguard/internal/resilience/classify"
)

// Policy controls retry behavior for one class of operation.
type Policy struct {
	// InitialDelay is the delay before the second attempt.
	InitialDelay time.Duration

	// MaxAttempts is the total number of invocations, including the first.
	MaxAttempts int

	// Multiplier scales the delay after each failed attempt.
	// With InitialDelay 5s and Multiplier 2.0 the delays run 5s, 10s, 20s, ...
	Multiplier float64

	// MaxDelay caps the computed delay. Zero means uncapped.
	MaxDelay time.Duration

	// JitterFraction randomizes each slept delay by ±fraction to avoid
	// synchronized retry storms. Zero keeps delays deterministic.
	JitterFraction float64
}

// DefaultPolicy returns the baseline policy: three attempts with delays
// of 5s and 10s between them.
func DefaultPolicy() Policy {
	return Policy{
		InitialDelay: 5 * time.Second,
		MaxAttempts:  3,
		Multiplier:   2.0,
	}
}

// LLMPolicy returns the policy tuned for script generation calls.
// LLM latency is dominated by the request itself, so delays start short.
func LLMPolicy() Policy {
	return Policy{
		InitialDelay:   2 * time.Second,
		MaxAttempts:    3,
		Multiplier:     2.0,
		MaxDelay:       20 * time.Second,
		JitterFraction: 0.1,
	}
}

// SpeechSynthesisPolicy returns the policy tuned for synthesis calls.
// Synthesis outages tend to last longer, so delays grow further.
func SpeechSynthesisPolicy() Policy {
	return Policy{
		InitialDelay:   5 * time.Second,
		MaxAttempts:    3,
		Multiplier:     2.0,
		MaxDelay:       60 * time.Second,
		JitterFraction: 0.1,
	}
}

// Validate checks the policy fields.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.InitialDelay <= 0 {
		return fmt.Errorf("initial delay must be positive, got %v", p.InitialDelay)
	}
	if p.Multiplier < 1.0 {
		return fmt.Errorf("multiplier must be at least 1.0, got %v", p.Multiplier)
	}
	if p.MaxDelay < 0 {
		return fmt.Errorf("max delay must be non-negative, got %v", p.MaxDelay)
	}
	if p.JitterFraction < 0 || p.JitterFraction >= 1 {
		return fmt.Errorf("jitter fraction must be in [0, 1), got %v", p.JitterFraction)
	}
	return nil
}

// ExhaustedError reports that every attempt failed with a transient error.
// It carries the attempt count and wraps the final error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("max retry attempts (%d) exceeded: %v", e.Attempts, e.Err)
}

// Unwrap returns the final attempt's error.
func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// SleepFunc blocks for the given duration or until the context is done,
// returning the context's error in the latter case.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the production SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Operation is a single invocation against a dependency. Implementations
// must honor the context and return a classifiable error on failure.
type Operation func(ctx context.Context) (any, error)

// Handler runs operations under a retry policy. The zero value is not
// usable; construct with NewHandler or NewHandlerWithSleep.
type Handler struct {
	sleep  SleepFunc
	logger *slog.Logger
}

// NewHandler returns a Handler that sleeps on the wall clock.
func NewHandler(logger *slog.Logger) *Handler {
	return NewHandlerWithSleep(logger, Sleep)
}

// NewHandlerWithSleep returns a Handler with an injected sleep function.
// Tests use this to run backoff schedules without waiting.
func NewHandlerWithSleep(logger *slog.Logger, sleep SleepFunc) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{sleep: sleep, logger: logger}
}

// Run invokes op up to policy.MaxAttempts times and returns the operation's
// value along with the number of attempts used.
//
// Terminal conditions:
//   - success: the value is returned as soon as an attempt succeeds
//   - permanent failure: the error propagates unchanged, even on the first
//     attempt, with no delay
//   - transient failure on the final attempt: an *ExhaustedError wrapping
//     the final error is returned
//   - context cancellation during backoff: a wrapped context error
//
// The delay before attempt n is InitialDelay × Multiplier^(n−2); op never
// runs more than MaxAttempts times.
func (h *Handler) Run(ctx context.Context, policy Policy, op Operation) (any, int, error) {
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	delay := policy.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			if attempt > 1 {
				h.logger.Info("operation succeeded after retry",
					slog.Int("attempt", attempt))
			}
			return result, attempt, nil
		}
		lastErr = err

		if classify.Classify(err) == classify.Permanent {
			h.logger.Warn("permanent failure, not retrying",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			return nil, attempt, err
		}

		if attempt == maxAttempts {
			break
		}

		h.logger.Warn("transient failure, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", maxAttempts),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		if err := h.sleep(ctx, addJitter(delay, policy.JitterFraction)); err != nil {
			return nil, attempt, fmt.Errorf("retry aborted: %w", err)
		}

		delay = time.Duration(float64(delay) * policy.Multiplier)
		if policy.MaxDelay > 0 && delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}

	return nil, maxAttempts, &ExhaustedError{Attempts: maxAttempts, Err: lastErr}
}

// addJitter randomizes d by ±fraction. A zero fraction returns d unchanged.
func addJitter(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return d
	}

	// #nosec G404 -- jitter does not need cryptographic randomness
	offset := (rand.Float64()*2 - 1) * fraction * float64(d)
	return d + time.Duration(offset)
}
