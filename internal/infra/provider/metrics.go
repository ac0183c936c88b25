package provider

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ProviderMetricsRecorder defines the interface for recording simulated
// provider metrics. This interface abstracts the metrics recording
// implementation, enabling:
//   - Mocking in unit tests (inject mock recorder instead of Prometheus)
//   - Swapping metrics systems (DataDog, New Relic, OpenTelemetry, etc.)
type ProviderMetricsRecorder interface {
	// RecordRequest records one request outcome with its duration.
	// Status values: "ok", "rate_limited", "unavailable", "auth_failed",
	// "malformed", "canceled".
	RecordRequest(provider, status string, duration time.Duration)

	// RecordTokens records simulated token consumption.
	RecordTokens(provider string, tokens int)
}

// PrometheusProviderMetrics implements ProviderMetricsRecorder using
// Prometheus metrics. This is the production implementation.
type PrometheusProviderMetrics struct {
	requestsCounter   *prometheus.CounterVec
	durationHistogram *prometheus.HistogramVec
	tokensCounter     *prometheus.CounterVec
}

var (
	providerMetricsInstance *PrometheusProviderMetrics
	providerMetricsOnce     sync.Once
)

// getOrCreateCounterVec gets an existing counter vector or creates a new one if it doesn't exist
func getOrCreateCounterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(opts, labels)
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.CounterVec)
		}
		// If it's not an AlreadyRegisteredError, use promauto which handles this gracefully
		return promauto.NewCounterVec(opts, labels)
	}
	return c
}

// getOrCreateHistogramVec gets an existing histogram vector or creates a new one if it doesn't exist
func getOrCreateHistogramVec(opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(opts, labels)
	if err := prometheus.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.HistogramVec)
		}
		return promauto.NewHistogramVec(opts, labels)
	}
	return h
}

// NewPrometheusProviderMetrics creates a new Prometheus-based metrics
// recorder. Uses singleton pattern to avoid duplicate metric
// registration in tests.
func NewPrometheusProviderMetrics() *PrometheusProviderMetrics {
	providerMetricsOnce.Do(func() {
		providerMetricsInstance = &PrometheusProviderMetrics{
			requestsCounter: getOrCreateCounterVec(prometheus.CounterOpts{
				Name: "provider_requests_total",
				Help: "Total simulated provider requests by outcome",
			}, []string{"provider", "status"}),
			durationHistogram: getOrCreateHistogramVec(prometheus.HistogramOpts{
				Name:    "provider_request_duration_seconds",
				Help:    "Simulated provider request duration",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
			}, []string{"provider"}),
			tokensCounter: getOrCreateCounterVec(prometheus.CounterOpts{
				Name: "provider_tokens_used_total",
				Help: "Simulated token consumption by provider",
			}, []string{"provider"}),
		}
	})
	return providerMetricsInstance
}

// RecordRequest implements ProviderMetricsRecorder.RecordRequest
func (p *PrometheusProviderMetrics) RecordRequest(provider, status string, duration time.Duration) {
	p.requestsCounter.WithLabelValues(provider, status).Inc()
	p.durationHistogram.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordTokens implements ProviderMetricsRecorder.RecordTokens
func (p *PrometheusProviderMetrics) RecordTokens(provider string, tokens int) {
	p.tokensCounter.WithLabelValues(provider).Add(float64(tokens))
}

// NoopProviderMetrics discards every recording. Tests use it to keep
// the global Prometheus registry clean.
type NoopProviderMetrics struct{}

// RecordRequest implements ProviderMetricsRecorder.RecordRequest
func (NoopProviderMetrics) RecordRequest(provider, status string, duration time.Duration) {}

// RecordTokens implements ProviderMetricsRecorder.RecordTokens
func (NoopProviderMetrics) RecordTokens(provider string, tokens int) {}
