// Package provider implements the simulated downstream services the
// dialer depends on: an LLM for call script generation and a speech
// synthesis backend. Both expose the failure modes a real vendor API
// shows in production, behind deterministic knobs so the resilience
// behavior around them can be exercised and tested without network
// access.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"callguard/internal/domain/entity"
	"callguard/internal/resilience/classify"
	"callguard/internal/utils/text"
	"callguard/pkg/config"
)

// Script is a generated call script.
type Script struct {
	// Text is the script the voice line reads to the contact.
	Text string

	// TokensUsed is the simulated token consumption of the generation.
	TokensUsed int
}

// LLMConfig holds the behavior knobs for the simulated LLM.
// Configuration is loaded from environment variables with fallback to
// defaults.
type LLMConfig struct {
	// Latency is the simulated processing time per request.
	// Loaded from LLM_LATENCY. Default: 150ms.
	Latency time.Duration

	// RequestsPerSecond is the sustained request budget before the
	// service answers 429. Loaded from LLM_REQUESTS_PER_SECOND.
	// Default: 5.0.
	RequestsPerSecond float64

	// Burst is the token bucket depth. Loaded from LLM_BURST.
	// Default: 10.
	Burst int

	// SimulateAuthFailure makes every request fail with 401.
	// Loaded from LLM_SIMULATE_AUTH_FAILURE. Default: false.
	SimulateAuthFailure bool

	// SimulateMalformed makes every request fail with 400.
	// Loaded from LLM_SIMULATE_MALFORMED. Default: false.
	SimulateMalformed bool
}

// LoadLLMConfig loads the simulated LLM settings from environment
// variables.
func LoadLLMConfig() LLMConfig {
	cfg := LLMConfig{
		Latency:             config.GetEnvDuration("LLM_LATENCY", 150*time.Millisecond),
		RequestsPerSecond:   config.GetEnvFloat("LLM_REQUESTS_PER_SECOND", 5.0),
		Burst:               config.GetEnvInt("LLM_BURST", 10),
		SimulateAuthFailure: config.GetEnvBool("LLM_SIMULATE_AUTH_FAILURE", false),
		SimulateMalformed:   config.GetEnvBool("LLM_SIMULATE_MALFORMED", false),
	}
	if err := config.ValidateNonNegativeDuration(cfg.Latency); err != nil {
		slog.Warn("invalid LLM_LATENCY, using default", slog.Any("error", err))
		cfg.Latency = 150 * time.Millisecond
	}
	return cfg
}

// LLM simulates the script-generation service. It rate limits with a
// token bucket and answers 429 when the budget is exhausted, the same
// shape a hosted model API presents under load.
type LLM struct {
	cfg             LLMConfig
	limiter         *rate.Limiter
	metricsRecorder ProviderMetricsRecorder
}

// NewLLM creates the simulated LLM from environment configuration with
// Prometheus metrics.
func NewLLM() *LLM {
	cfg := LoadLLMConfig()

	slog.Info("Initialized simulated LLM provider",
		slog.Duration("latency", cfg.Latency),
		slog.Float64("requests_per_second", cfg.RequestsPerSecond),
		slog.Int("burst", cfg.Burst))

	return NewLLMWithConfig(cfg, NewPrometheusProviderMetrics())
}

// NewLLMWithConfig creates the simulated LLM with explicit configuration
// and metrics recorder. Tests use this with a no-op recorder.
func NewLLMWithConfig(cfg LLMConfig, recorder ProviderMetricsRecorder) *LLM {
	if recorder == nil {
		recorder = NoopProviderMetrics{}
	}
	return &LLM{
		cfg:             cfg,
		limiter:         rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		metricsRecorder: recorder,
	}
}

// GenerateScript produces a call script for the contact. Failure modes
// surface as classify.HTTPError values with the status a real service
// would answer: 429 under rate limiting, 401 and 400 for the simulated
// permanent failures.
func (l *LLM) GenerateScript(ctx context.Context, contact *entity.Contact) (*Script, error) {
	requestID := uuid.New().String()
	start := time.Now()

	if l.cfg.SimulateAuthFailure {
		l.metricsRecorder.RecordRequest("llm", "auth_failed", time.Since(start))
		return nil, &classify.HTTPError{StatusCode: 401, Message: "invalid api key"}
	}

	if !l.limiter.Allow() {
		slog.WarnContext(ctx, "llm request rate limited",
			slog.String("request_id", requestID))
		l.metricsRecorder.RecordRequest("llm", "rate_limited", time.Since(start))
		return nil, &classify.HTTPError{StatusCode: 429, Message: "rate limit exceeded"}
	}

	slog.InfoContext(ctx, "Generating call script",
		slog.String("request_id", requestID),
		slog.String("contact", contact.Name))

	if err := l.simulateLatency(ctx); err != nil {
		l.metricsRecorder.RecordRequest("llm", "canceled", time.Since(start))
		return nil, err
	}

	if l.cfg.SimulateMalformed {
		l.metricsRecorder.RecordRequest("llm", "malformed", time.Since(start))
		return nil, &classify.HTTPError{StatusCode: 400, Message: "malformed request payload"}
	}

	scriptText := fmt.Sprintf(
		"Hello %s, this is an automated reminder from your service provider. "+
			"We are calling to confirm your upcoming appointment. "+
			"If you need to reschedule, please call us back at your convenience. Thank you!",
		contact.Name,
	)
	script := &Script{
		Text:       scriptText,
		TokensUsed: text.CountRunes(scriptText)/4 + 32,
	}
	duration := time.Since(start)

	slog.InfoContext(ctx, "Call script generated",
		slog.String("request_id", requestID),
		slog.Int("tokens_used", script.TokensUsed),
		slog.Duration("duration", duration))

	l.metricsRecorder.RecordRequest("llm", "ok", duration)
	l.metricsRecorder.RecordTokens("llm", script.TokensUsed)

	return script, nil
}

// Probe reports whether the simulated LLM would serve a request. It does
// not consume rate limiter tokens; health probing must not eat into the
// callers' budget.
func (l *LLM) Probe(ctx context.Context) bool {
	if err := l.simulateLatency(ctx); err != nil {
		return false
	}
	return !l.cfg.SimulateAuthFailure && !l.cfg.SimulateMalformed
}

func (l *LLM) simulateLatency(ctx context.Context) error {
	if l.cfg.Latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(l.cfg.Latency)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
