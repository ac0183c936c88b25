package call

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"callguard/internal/events"
	"callguard/internal/observability/metrics"
	"callguard/internal/observability/tracing"
	"callguard/internal/resilience/circuitbreaker"
	"callguard/internal/resilience/retry"
)

// Caller guards invocations of named downstream services with a circuit
// breaker in front of a retry handler. One Caller serves every service in
// the process; breakers are created lazily by name in the shared registry.
//
// The breaker mutex is only held for the state check and the terminal
// report, never while the operation runs or while the retry handler sleeps,
// so concurrent invokes against one service serialize only on that check.
type Caller struct {
	registry *circuitbreaker.Registry
	handler  *retry.Handler
	sink     events.Sink
	logger   *slog.Logger

	mu            sync.RWMutex
	policies      map[string]retry.Policy
	defaultPolicy retry.Policy
}

// NewCaller creates a Caller backed by the given breaker registry and retry
// handler. Events for every terminal outcome go to sink; a nil sink discards
// them and a nil logger falls back to slog.Default.
func NewCaller(registry *circuitbreaker.Registry, handler *retry.Handler, sink events.Sink, logger *slog.Logger) *Caller {
	if sink == nil {
		sink = events.NewNoopSink()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Caller{
		registry:      registry,
		handler:       handler,
		sink:          sink,
		logger:        logger,
		policies:      make(map[string]retry.Policy),
		defaultPolicy: retry.DefaultPolicy(),
	}
}

// SetDefaultPolicy replaces the retry policy used for services without an
// explicit override.
func (c *Caller) SetDefaultPolicy(policy retry.Policy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultPolicy = policy
}

// SetPolicy pins a retry policy for one named service.
func (c *Caller) SetPolicy(service string, policy retry.Policy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.policies[service] = policy
}

func (c *Caller) policyFor(service string) retry.Policy {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if policy, ok := c.policies[service]; ok {
		return policy
	}
	return c.defaultPolicy
}

// Invoke runs op against the named service under its circuit breaker and
// retry policy.
//
// If the breaker denies admission, op is never invoked and the returned
// error wraps circuitbreaker.ErrOpen with the service name. Otherwise op
// runs under the service's retry policy; on success the breaker records a
// success and the operation's value is returned, on failure the breaker
// records the failure first and the error then propagates unchanged, whether
// it is a permanent error or a *retry.ExhaustedError.
//
// Every terminal outcome emits one event to the configured sink.
func (c *Caller) Invoke(ctx context.Context, service string, op retry.Operation) (any, error) {
	ctx, span := tracing.StartInvokeSpan(ctx, service)
	defer span.End()

	breaker := c.registry.GetOrCreate(service)

	if err := breaker.Allow(); err != nil {
		wrapped := fmt.Errorf("service %q: %w", service, err)
		c.logger.WarnContext(ctx, "call rejected, circuit breaker open",
			slog.String("service", service))
		metrics.RecordRejectedCall(service)
		tracing.RecordOutcome(span, string(events.OutcomeRejected), 0, wrapped)
		c.emit(service, events.OutcomeRejected, breaker.State(), 0, "rejected without invoking the service")
		return nil, wrapped
	}

	start := time.Now()
	result, attempts, err := c.handler.Run(ctx, c.policyFor(service), op)
	elapsed := time.Since(start)

	if err != nil {
		breaker.RecordFailure()

		outcome := events.OutcomePermanentFailure
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			outcome = events.OutcomeRetriesExhausted
		}

		c.logger.ErrorContext(ctx, "guarded call failed",
			slog.String("service", service),
			slog.String("outcome", string(outcome)),
			slog.Int("attempts", attempts),
			slog.String("error", err.Error()))
		metrics.RecordGuardedCall(service, string(outcome), attempts, elapsed)
		tracing.RecordOutcome(span, string(outcome), attempts, err)
		c.emit(service, outcome, breaker.State(), attempts, err.Error())
		return nil, err
	}

	breaker.RecordSuccess()

	c.logger.DebugContext(ctx, "guarded call succeeded",
		slog.String("service", service),
		slog.Int("attempts", attempts),
		slog.Duration("duration", elapsed))
	metrics.RecordGuardedCall(service, string(events.OutcomeSuccess), attempts, elapsed)
	tracing.RecordOutcome(span, string(events.OutcomeSuccess), attempts, nil)
	c.emit(service, events.OutcomeSuccess, breaker.State(), attempts, "")
	return result, nil
}

// emit records one terminal-outcome event. Callers read the breaker state
// after reporting the outcome so the event reflects any transition it caused.
func (c *Caller) emit(service string, outcome events.Outcome, state circuitbreaker.State, attempts int, message string) {
	c.sink.Record(events.Event{
		Timestamp:    time.Now(),
		Service:      service,
		Outcome:      outcome,
		BreakerState: state.String(),
		RetryCount:   attempts,
		Message:      message,
	})
}
