package provider_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"callguard/internal/infra/provider"
	"callguard/internal/resilience/classify"
)

func fastSpeechConfig() provider.SpeechConfig {
	return provider.SpeechConfig{
		Latency:   0,
		FailFirst: 0,
	}
}

// TestLoadSpeechConfig_Defaults tests that defaults apply when env vars are not set
func TestLoadSpeechConfig_Defaults(t *testing.T) {
	// Arrange
	for _, key := range []string{"SPEECH_LATENCY", "SPEECH_FAIL_FIRST", "SPEECH_SIMULATE_AUTH_FAILURE"} {
		t.Setenv(key, "")
	}

	// Act
	cfg := provider.LoadSpeechConfig()

	// Assert
	if cfg.Latency != 250*time.Millisecond {
		t.Errorf("expected latency 250ms, got %v", cfg.Latency)
	}
	if cfg.FailFirst != 0 {
		t.Errorf("expected fail_first 0, got %d", cfg.FailFirst)
	}
	if cfg.SimulateAuthFailure {
		t.Error("expected auth failure simulation disabled by default")
	}
}

// TestLoadSpeechConfig_CustomValues tests that env vars override the defaults
func TestLoadSpeechConfig_CustomValues(t *testing.T) {
	// Arrange
	t.Setenv("SPEECH_LATENCY", "5ms")
	t.Setenv("SPEECH_FAIL_FIRST", "3")
	t.Setenv("SPEECH_SIMULATE_AUTH_FAILURE", "true")

	// Act
	cfg := provider.LoadSpeechConfig()

	// Assert
	if cfg.Latency != 5*time.Millisecond {
		t.Errorf("expected latency 5ms, got %v", cfg.Latency)
	}
	if cfg.FailFirst != 3 {
		t.Errorf("expected fail_first 3, got %d", cfg.FailFirst)
	}
	if !cfg.SimulateAuthFailure {
		t.Error("expected auth failure simulation enabled")
	}
}

// TestSpeech_Synthesize_Success tests the happy path
func TestSpeech_Synthesize_Success(t *testing.T) {
	// Arrange
	speech := provider.NewSpeechWithConfig(fastSpeechConfig(), provider.NoopProviderMetrics{})

	// Act
	result, err := speech.Synthesize(context.Background(), "Hello Alice, this is a reminder call.")

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.HasPrefix(result.AudioURL, "https://audio.callguard.invalid/") {
		t.Errorf("expected synthetic audio URL, got %q", result.AudioURL)
	}
	if result.Duration <= 0 {
		t.Errorf("expected positive audio duration, got %v", result.Duration)
	}
}

// TestSpeech_AudioDurationTracksScriptLength tests the duration estimate
func TestSpeech_AudioDurationTracksScriptLength(t *testing.T) {
	// Arrange
	speech := provider.NewSpeechWithConfig(fastSpeechConfig(), provider.NoopProviderMetrics{})
	ctx := context.Background()

	// Act
	short, err := speech.Synthesize(ctx, "Hi.")
	if err != nil {
		t.Fatalf("short synthesis failed: %v", err)
	}
	long, err := speech.Synthesize(ctx, strings.Repeat("A longer script with much more to say. ", 10))
	if err != nil {
		t.Fatalf("long synthesis failed: %v", err)
	}

	// Assert
	if long.Duration <= short.Duration {
		t.Errorf("expected longer script to yield longer audio, got %v <= %v", long.Duration, short.Duration)
	}
}

// TestSpeech_FailFirstThenRecover tests the outage window: first N calls
// answer 503, later calls succeed
func TestSpeech_FailFirstThenRecover(t *testing.T) {
	// Arrange
	cfg := fastSpeechConfig()
	cfg.FailFirst = 2
	speech := provider.NewSpeechWithConfig(cfg, provider.NoopProviderMetrics{})
	ctx := context.Background()

	// Act / Assert - the failure window
	for i := 1; i <= 2; i++ {
		_, err := speech.Synthesize(ctx, "script")
		if err == nil {
			t.Fatalf("call %d: expected 503, got nil", i)
		}
		var httpErr *classify.HTTPError
		if !errors.As(err, &httpErr) {
			t.Fatalf("call %d: expected HTTPError, got %T", i, err)
		}
		if httpErr.StatusCode != 503 {
			t.Errorf("call %d: expected status 503, got %d", i, httpErr.StatusCode)
		}
		if classify.Classify(err) != classify.Transient {
			t.Errorf("call %d: expected 503 to classify as transient", i)
		}
	}

	// The window has passed: synthesis succeeds.
	result, err := speech.Synthesize(ctx, "script")
	if err != nil {
		t.Fatalf("expected recovery on call 3, got %v", err)
	}
	if result.AudioURL == "" {
		t.Error("expected audio URL after recovery")
	}
}

// TestSpeech_Probe tests that the probe flips healthy once the failure
// window has been consumed, without consuming it itself
func TestSpeech_Probe(t *testing.T) {
	// Arrange
	cfg := fastSpeechConfig()
	cfg.FailFirst = 2
	speech := provider.NewSpeechWithConfig(cfg, provider.NoopProviderMetrics{})
	ctx := context.Background()

	// Assert - unhealthy before the window is consumed, and probing
	// repeatedly does not consume it.
	for i := 0; i < 3; i++ {
		if speech.Probe(ctx) {
			t.Fatalf("probe %d: expected unhealthy during failure window", i+1)
		}
	}

	// Act - two failing synthesis calls consume the window.
	_, _ = speech.Synthesize(ctx, "script")
	_, _ = speech.Synthesize(ctx, "script")

	// Assert
	if !speech.Probe(ctx) {
		t.Error("expected healthy probe after failure window passed")
	}
}

// TestSpeech_AuthFailure tests the simulated 401
func TestSpeech_AuthFailure(t *testing.T) {
	// Arrange
	cfg := fastSpeechConfig()
	cfg.SimulateAuthFailure = true
	speech := provider.NewSpeechWithConfig(cfg, provider.NoopProviderMetrics{})

	// Act
	_, err := speech.Synthesize(context.Background(), "script")

	// Assert
	var httpErr *classify.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %T", err)
	}
	if httpErr.StatusCode != 401 {
		t.Errorf("expected status 401, got %d", httpErr.StatusCode)
	}
	if speech.Probe(context.Background()) {
		t.Error("expected unhealthy probe with auth failure simulated")
	}
}

// TestSpeech_ContextCanceled tests that cancellation interrupts the simulated latency
func TestSpeech_ContextCanceled(t *testing.T) {
	// Arrange
	cfg := fastSpeechConfig()
	cfg.Latency = 5 * time.Second
	speech := provider.NewSpeechWithConfig(cfg, provider.NoopProviderMetrics{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	// Act
	start := time.Now()
	_, err := speech.Synthesize(ctx, "script")
	elapsed := time.Since(start)

	// Assert
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if elapsed > time.Second {
		t.Errorf("expected prompt cancellation, took %v", elapsed)
	}
}
