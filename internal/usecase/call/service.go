package call

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"callguard/internal/domain/entity"
	"callguard/internal/infra/provider"
	"callguard/internal/observability/logging"
	"callguard/internal/observability/metrics"
	"callguard/internal/observability/tracing"
	"callguard/internal/resilience/circuitbreaker"
	"callguard/internal/resilience/health"
)

const (
	// ServiceLLM and ServiceSpeech name the circuit breakers guarding the
	// two downstream dependencies of the call pipeline.
	ServiceLLM    = "llm"
	ServiceSpeech = "speech-synthesis"

	stageScript    = "script_generation"
	stageSynthesis = "speech_synthesis"
)

// ScriptGenerator produces a personalized call script for a contact.
type ScriptGenerator interface {
	GenerateScript(ctx context.Context, contact *entity.Contact) (*provider.Script, error)
}

// AudioSynthesizer renders a call script into playable audio.
type AudioSynthesizer interface {
	Synthesize(ctx context.Context, script string) (*provider.Synthesis, error)
}

// HealthReporter exposes the health monitor's per-service view.
type HealthReporter interface {
	Health() map[string]health.Status
}

// Service processes outbound reminder calls.
type Service interface {
	// ProcessCall runs the full pipeline for one contact: script
	// generation, then speech synthesis, each guarded by its service's
	// circuit breaker and retry policy.
	//
	// Script-generation failures degrade the call to a canned script and
	// processing continues. Synthesis failures fail the call. The returned
	// CallResult is non-nil whenever the contact passed validation,
	// regardless of outcome, so callers always see what was attempted.
	ProcessCall(ctx context.Context, contact *entity.Contact) (*entity.CallResult, error)

	// ProcessBatch runs ProcessCall for every contact with bounded
	// concurrency. Per-call failures are counted and logged, never fatal
	// to the batch; only cancellation of ctx aborts it early. Returns
	// ErrNoContacts when the list is empty.
	ProcessBatch(ctx context.Context, contacts []*entity.Contact) (*BatchStats, error)

	// Status reports the current breaker state for every known service
	// together with the health monitor's view.
	Status() *ServiceStatus

	// ResetBreakers forces every registered circuit breaker back to
	// closed. Operator escape hatch; recovery normally goes through the
	// health monitor or a half-open trial.
	ResetBreakers()
}

// BatchStats summarizes one batch run. Counters are updated atomically
// while calls are in flight.
type BatchStats struct {
	Contacts  int
	Completed int64
	Degraded  int64
	Failed    int64
	Rejected  int64
	Duration  time.Duration
}

// ServiceStatus is the admin view of the resilience layer.
type ServiceStatus struct {
	Breakers map[string]circuitbreaker.State
	Health   map[string]health.Status
}

type service struct {
	caller      *Caller
	registry    *circuitbreaker.Registry
	scripts     ScriptGenerator
	speech      AudioSynthesizer
	healthView  HealthReporter
	logger      *slog.Logger
	parallelism int
	callTimeout time.Duration
}

// NewService wires the call pipeline.
//
// Parameters:
//   - caller: guarded invoker shared by both stages
//   - registry: breaker registry backing the admin surface
//   - scripts: script generation stage
//   - speech: audio synthesis stage
//   - healthView: health monitor snapshot for Status (can be nil)
//   - logger: structured logger (nil falls back to slog.Default)
//   - parallelism: max concurrent calls in a batch (values below 1 become 1)
//   - callTimeout: per-call deadline, 0 disables
func NewService(
	caller *Caller,
	registry *circuitbreaker.Registry,
	scripts ScriptGenerator,
	speech AudioSynthesizer,
	healthView HealthReporter,
	logger *slog.Logger,
	parallelism int,
	callTimeout time.Duration,
) Service {
	if logger == nil {
		logger = slog.Default()
	}
	if parallelism < 1 {
		parallelism = 1
	}
	return &service{
		caller:      caller,
		registry:    registry,
		scripts:     scripts,
		speech:      speech,
		healthView:  healthView,
		logger:      logger,
		parallelism: parallelism,
		callTimeout: callTimeout,
	}
}

func (s *service) ProcessCall(ctx context.Context, contact *entity.Contact) (*entity.CallResult, error) {
	if err := entity.ValidateContact(contact); err != nil {
		return nil, fmt.Errorf("invalid contact: %w", err)
	}

	callID := uuid.New().String()
	ctx = logging.ContextWithCallID(ctx, callID)
	logger := s.logger.With(
		slog.String("call_id", callID),
		slog.Int64("contact_id", contact.ID))

	if s.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
	}

	ctx, span := tracing.StartCallSpan(ctx, callID, contact.Name)
	defer span.End()

	result := &entity.CallResult{
		CallID:      callID,
		ContactID:   contact.ID,
		ContactName: contact.Name,
		StartedAt:   time.Now(),
	}

	logger.InfoContext(ctx, "processing outbound call",
		slog.String("contact", contact.Name))

	script, degraded := s.generateScript(ctx, contact, logger)
	result.Script = script

	synthesis, err := s.synthesize(ctx, script, logger)
	result.CompletedAt = time.Now()
	if err != nil {
		if IsRejection(err) {
			result.Status = entity.CallRejected
		} else {
			result.Status = entity.CallFailed
		}
		metrics.RecordCallCompleted(string(result.Status))
		logger.WarnContext(ctx, "call not completed",
			slog.String("status", string(result.Status)),
			slog.String("error", err.Error()))
		return result, fmt.Errorf("synthesize call audio: %w", err)
	}

	result.AudioURL = synthesis.AudioURL
	result.AudioDuration = synthesis.Duration
	if degraded {
		result.Status = entity.CallDegraded
	} else {
		result.Status = entity.CallCompleted
	}
	metrics.RecordCallCompleted(string(result.Status))

	logger.InfoContext(ctx, "call completed",
		slog.String("status", string(result.Status)),
		slog.Float64("audio_seconds", synthesis.Duration),
		slog.Duration("duration", result.CompletedAt.Sub(result.StartedAt)))

	return result, nil
}

// generateScript runs the script stage. On any failure it falls back to the
// canned script and reports the call as degraded rather than failing it.
func (s *service) generateScript(ctx context.Context, contact *entity.Contact, logger *slog.Logger) (string, bool) {
	ctx, span := tracing.StartStageSpan(ctx, stageScript, ServiceLLM)
	defer span.End()

	start := time.Now()
	value, err := s.caller.Invoke(ctx, ServiceLLM, func(ctx context.Context) (any, error) {
		return s.scripts.GenerateScript(ctx, contact)
	})
	metrics.RecordCallStageDuration(stageScript, time.Since(start))

	if err != nil {
		span.RecordError(err)
		logger.WarnContext(ctx, "script generation failed, using fallback script",
			slog.String("service", ServiceLLM),
			slog.String("error", err.Error()))
		return fallbackScript(contact), true
	}

	script, ok := value.(*provider.Script)
	if !ok {
		logger.ErrorContext(ctx, "script stage returned unexpected type",
			slog.String("type", fmt.Sprintf("%T", value)))
		return fallbackScript(contact), true
	}
	return script.Text, false
}

// synthesize runs the audio stage. Failures here fail the call; there is no
// fallback for audio.
func (s *service) synthesize(ctx context.Context, script string, logger *slog.Logger) (*provider.Synthesis, error) {
	ctx, span := tracing.StartStageSpan(ctx, stageSynthesis, ServiceSpeech)
	defer span.End()

	start := time.Now()
	value, err := s.caller.Invoke(ctx, ServiceSpeech, func(ctx context.Context) (any, error) {
		return s.speech.Synthesize(ctx, script)
	})
	metrics.RecordCallStageDuration(stageSynthesis, time.Since(start))

	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	synthesis, ok := value.(*provider.Synthesis)
	if !ok {
		err := fmt.Errorf("synthesis stage returned unexpected type %T", value)
		span.RecordError(err)
		logger.ErrorContext(ctx, "synthesis stage returned unexpected type",
			slog.String("type", fmt.Sprintf("%T", value)))
		return nil, err
	}
	return synthesis, nil
}

func (s *service) ProcessBatch(ctx context.Context, contacts []*entity.Contact) (*BatchStats, error) {
	if len(contacts) == 0 {
		return nil, ErrNoContacts
	}

	start := time.Now()
	stats := &BatchStats{Contacts: len(contacts)}

	s.logger.InfoContext(ctx, "starting call batch",
		slog.Int("contacts", len(contacts)),
		slog.Int("parallelism", s.parallelism))

	sem := make(chan struct{}, s.parallelism)
	eg, egCtx := errgroup.WithContext(ctx)

	for _, contact := range contacts {
		c := contact
		if c == nil {
			atomic.AddInt64(&stats.Failed, 1)
			continue
		}

		eg.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					atomic.AddInt64(&stats.Failed, 1)
					s.logger.Error("panic while processing call",
						slog.Int64("contact_id", c.ID),
						slog.Any("panic", r),
						slog.String("stack", string(debug.Stack())))
				}
			}()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-egCtx.Done():
				return egCtx.Err()
			}

			result, err := s.ProcessCall(egCtx, c)
			if err != nil && egCtx.Err() != nil {
				// Batch canceled; stop scheduling, the partial stats stand.
				return egCtx.Err()
			}

			switch {
			case err == nil && result.Status == entity.CallDegraded:
				atomic.AddInt64(&stats.Degraded, 1)
			case err == nil:
				atomic.AddInt64(&stats.Completed, 1)
			case result != nil && result.Status == entity.CallRejected:
				atomic.AddInt64(&stats.Rejected, 1)
			default:
				atomic.AddInt64(&stats.Failed, 1)
			}

			if err != nil {
				s.logger.WarnContext(egCtx, "call in batch did not complete",
					slog.Int64("contact_id", c.ID),
					slog.String("error", err.Error()))
			}
			return nil
		})
	}

	err := eg.Wait()
	stats.Duration = time.Since(start)
	metrics.RecordCallBatch(stats.Duration, int(stats.Failed+stats.Rejected), stats.Contacts)

	if err != nil {
		s.logger.WarnContext(ctx, "call batch aborted",
			slog.String("error", err.Error()),
			slog.Int64("completed", atomic.LoadInt64(&stats.Completed)))
		return stats, fmt.Errorf("call batch aborted: %w", err)
	}

	s.logger.InfoContext(ctx, "call batch completed",
		slog.Int("contacts", stats.Contacts),
		slog.Int64("completed", stats.Completed),
		slog.Int64("degraded", stats.Degraded),
		slog.Int64("failed", stats.Failed),
		slog.Int64("rejected", stats.Rejected),
		slog.Duration("duration", stats.Duration))

	return stats, nil
}

func (s *service) Status() *ServiceStatus {
	status := &ServiceStatus{
		Breakers: s.registry.Snapshot(),
		Health:   map[string]health.Status{},
	}
	if s.healthView != nil {
		status.Health = s.healthView.Health()
	}
	return status
}

func (s *service) ResetBreakers() {
	s.logger.Info("resetting all circuit breakers")
	s.registry.ResetAll()
	for name := range s.registry.Snapshot() {
		metrics.RecordBreakerReset(name, "admin")
	}
}

// fallbackScript is the canned script used when personalized generation is
// unavailable. The call still goes out; it is just less tailored.
func fallbackScript(contact *entity.Contact) string {
	return fmt.Sprintf(
		"Hello %s, this is a courtesy reminder about your upcoming appointment. "+
			"Please contact us if you have any questions. Thank you!",
		contact.Name,
	)
}
