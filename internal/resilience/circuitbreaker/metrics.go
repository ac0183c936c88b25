package circuitbreaker

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// StateRecorder defines the interface for recording breaker state metrics.
// This interface abstracts the metrics recording implementation, enabling:
//   - Mocking in unit tests (inject mock recorder instead of Prometheus)
//   - Swapping metrics systems (DataDog, New Relic, OpenTelemetry, etc.)
//
// For testing with mocks:
//
//	type MockStateRecorder struct {
//	    Transitions []string
//	}
//
//	func (m *MockStateRecorder) RecordTransition(service string, from, to State) {
//	    m.Transitions = append(m.Transitions, from.String()+"->"+to.String())
//	}
type StateRecorder interface {
	// RecordState records the breaker's current state for a service.
	RecordState(service string, state State)

	// RecordTransition increments the transition counter for a service.
	RecordTransition(service string, from, to State)
}

// PrometheusStateRecorder implements StateRecorder using Prometheus
// metrics. This is the production implementation.
type PrometheusStateRecorder struct {
	stateGauge         *prometheus.GaugeVec
	transitionsCounter *prometheus.CounterVec
}

var (
	prometheusRecorderInstance *PrometheusStateRecorder
	prometheusRecorderOnce     sync.Once
)

// getOrCreateGaugeVec gets an existing gauge vector or creates a new one if it doesn't exist
func getOrCreateGaugeVec(opts prometheus.GaugeOpts, labels []string) *prometheus.GaugeVec {
	g := prometheus.NewGaugeVec(opts, labels)
	if err := prometheus.Register(g); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.GaugeVec)
		}
		// If it's not an AlreadyRegisteredError, use promauto which handles this gracefully
		return promauto.NewGaugeVec(opts, labels)
	}
	return g
}

// getOrCreateCounterVec gets an existing counter vector or creates a new one if it doesn't exist
func getOrCreateCounterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(opts, labels)
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.CounterVec)
		}
		return promauto.NewCounterVec(opts, labels)
	}
	return c
}

// NewPrometheusStateRecorder creates a new Prometheus-based state recorder.
// Uses singleton pattern to avoid duplicate metric registration in tests.
func NewPrometheusStateRecorder() *PrometheusStateRecorder {
	prometheusRecorderOnce.Do(func() {
		prometheusRecorderInstance = &PrometheusStateRecorder{
			stateGauge: getOrCreateGaugeVec(prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Current circuit breaker state per service (0=closed, 1=open, 2=half-open)",
			}, []string{"service"}),
			transitionsCounter: getOrCreateCounterVec(prometheus.CounterOpts{
				Name: "circuit_breaker_transitions_total",
				Help: "Total number of circuit breaker state transitions per service",
			}, []string{"service", "from", "to"}),
		}
	})
	return prometheusRecorderInstance
}

// RecordState implements StateRecorder.RecordState
func (p *PrometheusStateRecorder) RecordState(service string, state State) {
	p.stateGauge.WithLabelValues(service).Set(float64(state))
}

// RecordTransition implements StateRecorder.RecordTransition
func (p *PrometheusStateRecorder) RecordTransition(service string, from, to State) {
	p.transitionsCounter.WithLabelValues(service, from.String(), to.String()).Inc()
}

// NoopStateRecorder is a StateRecorder that discards everything. Tests
// use it to keep the global Prometheus registry clean.
type NoopStateRecorder struct{}

// RecordState implements StateRecorder.RecordState
func (NoopStateRecorder) RecordState(service string, state State) {}

// RecordTransition implements StateRecorder.RecordTransition
func (NoopStateRecorder) RecordTransition(service string, from, to State) {}
