package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"callguard/internal/resilience/classify"
	"callguard/internal/utils/text"
	"callguard/pkg/config"
)

// Synthesis is the result of one speech synthesis request.
type Synthesis struct {
	// AudioURL points at the rendered audio.
	AudioURL string

	// Duration is the audio length in seconds.
	Duration float64
}

// SpeechConfig holds the behavior knobs for the simulated speech
// synthesis service.
type SpeechConfig struct {
	// Latency is the simulated processing time per request.
	// Loaded from SPEECH_LATENCY. Default: 250ms.
	Latency time.Duration

	// FailFirst makes the first N synthesis requests fail with 503
	// before the service recovers. Loaded from SPEECH_FAIL_FIRST.
	// Default: 0.
	FailFirst int

	// SimulateAuthFailure makes every request fail with 401.
	// Loaded from SPEECH_SIMULATE_AUTH_FAILURE. Default: false.
	SimulateAuthFailure bool
}

// LoadSpeechConfig loads the simulated speech settings from environment
// variables.
func LoadSpeechConfig() SpeechConfig {
	cfg := SpeechConfig{
		Latency:             config.GetEnvDuration("SPEECH_LATENCY", 250*time.Millisecond),
		FailFirst:           config.GetEnvInt("SPEECH_FAIL_FIRST", 0),
		SimulateAuthFailure: config.GetEnvBool("SPEECH_SIMULATE_AUTH_FAILURE", false),
	}
	if err := config.ValidateNonNegativeDuration(cfg.Latency); err != nil {
		slog.Warn("invalid SPEECH_LATENCY, using default", slog.Any("error", err))
		cfg.Latency = 250 * time.Millisecond
	}
	return cfg
}

// Speech simulates the synthesis service. With FailFirst set it answers
// 503 for the first N requests and then recovers, which is the outage
// shape the breaker and health monitor are built around.
type Speech struct {
	cfg             SpeechConfig
	calls           atomic.Int64
	metricsRecorder ProviderMetricsRecorder
}

// NewSpeech creates the simulated speech service from environment
// configuration with Prometheus metrics.
func NewSpeech() *Speech {
	cfg := LoadSpeechConfig()

	slog.Info("Initialized simulated speech provider",
		slog.Duration("latency", cfg.Latency),
		slog.Int("fail_first", cfg.FailFirst))

	return NewSpeechWithConfig(cfg, NewPrometheusProviderMetrics())
}

// NewSpeechWithConfig creates the simulated speech service with explicit
// configuration and metrics recorder. Tests use this with a no-op
// recorder.
func NewSpeechWithConfig(cfg SpeechConfig, recorder ProviderMetricsRecorder) *Speech {
	if recorder == nil {
		recorder = NoopProviderMetrics{}
	}
	return &Speech{
		cfg:             cfg,
		metricsRecorder: recorder,
	}
}

// Synthesize renders the script to audio. The first FailFirst requests
// fail with 503; afterwards requests succeed. The counter covers real
// synthesis requests only, probes do not advance it.
func (s *Speech) Synthesize(ctx context.Context, script string) (*Synthesis, error) {
	requestID := uuid.New().String()
	start := time.Now()

	if s.cfg.SimulateAuthFailure {
		s.metricsRecorder.RecordRequest("speech-synthesis", "auth_failed", time.Since(start))
		return nil, &classify.HTTPError{StatusCode: 401, Message: "invalid api key"}
	}

	call := s.calls.Add(1)

	slog.InfoContext(ctx, "Synthesizing call audio",
		slog.String("request_id", requestID),
		slog.Int("script_length", text.CountRunes(script)))

	if err := s.simulateLatency(ctx); err != nil {
		s.metricsRecorder.RecordRequest("speech-synthesis", "canceled", time.Since(start))
		return nil, err
	}

	if call <= int64(s.cfg.FailFirst) {
		slog.WarnContext(ctx, "speech synthesis backend unavailable",
			slog.String("request_id", requestID),
			slog.Int64("call", call),
			slog.Int("fail_first", s.cfg.FailFirst))
		s.metricsRecorder.RecordRequest("speech-synthesis", "unavailable", time.Since(start))
		return nil, &classify.HTTPError{StatusCode: 503, Message: "synthesis backend unavailable"}
	}

	result := &Synthesis{
		AudioURL: fmt.Sprintf("https://audio.callguard.invalid/%s.wav", requestID),
		Duration: estimateAudioSeconds(script),
	}
	duration := time.Since(start)

	slog.InfoContext(ctx, "Call audio synthesized",
		slog.String("request_id", requestID),
		slog.String("audio_url", result.AudioURL),
		slog.Float64("audio_seconds", result.Duration),
		slog.Duration("duration", duration))

	s.metricsRecorder.RecordRequest("speech-synthesis", "ok", duration)

	return result, nil
}

// Probe reports whether the synthesis backend would currently serve a
// request: the failure window must have passed. Probes do not consume
// the FailFirst counter.
func (s *Speech) Probe(ctx context.Context) bool {
	if err := s.simulateLatency(ctx); err != nil {
		return false
	}
	if s.cfg.SimulateAuthFailure {
		return false
	}
	return s.calls.Load() >= int64(s.cfg.FailFirst)
}

func (s *Speech) simulateLatency(ctx context.Context) error {
	if s.cfg.Latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.cfg.Latency)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// estimateAudioSeconds approximates spoken length at roughly 15
// characters per second, the pace of a natural reading voice.
func estimateAudioSeconds(script string) float64 {
	if script == "" {
		return 0
	}
	return float64(text.CountRunes(script)) / 15.0
}
