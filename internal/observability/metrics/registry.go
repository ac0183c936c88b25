// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Guarded call metrics track every invocation that passes through a
// circuit breaker and the retry handler
var (
	// GuardedCallsTotal counts guarded invocations by service and terminal outcome
	GuardedCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guarded_calls_total",
			Help: "Total number of guarded invocations by terminal outcome",
		},
		[]string{"service", "outcome"},
	)

	// GuardedCallDuration measures wall-clock duration of guarded invocations,
	// including retry backoff sleeps
	GuardedCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guarded_call_duration_seconds",
			Help:    "Guarded invocation duration in seconds including backoff",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"service"},
	)

	// GuardedCallAttempts measures how many attempts each guarded invocation used
	GuardedCallAttempts = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guarded_call_attempts",
			Help:    "Number of attempts used per guarded invocation",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10},
		},
		[]string{"service"},
	)

	// RejectedCallsTotal counts invocations denied without running the operation
	RejectedCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rejected_calls_total",
			Help: "Total number of invocations rejected by an open circuit breaker",
		},
		[]string{"service"},
	)
)

// Call pipeline metrics track outbound-call processing
var (
	// OutboundCallsTotal counts processed outbound calls by final status
	OutboundCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbound_calls_total",
			Help: "Total number of outbound calls processed",
		},
		[]string{"status"}, // status: completed, degraded, failed, rejected
	)

	// CallStageDuration measures duration of individual pipeline stages
	CallStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "call_stage_duration_seconds",
			Help:    "Duration of call pipeline stages in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"stage"}, // stage: script_generation, speech_synthesis
	)

	// CallBatchDuration measures end-to-end batch duration
	CallBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "call_batch_duration_seconds",
			Help:    "Duration of a full call batch in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	// CallBatchesTotal counts processed batches by result
	CallBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "call_batches_total",
			Help: "Total number of call batches processed",
		},
		[]string{"status"}, // status: success, partial, failure
	)
)

// Health monitoring metrics track dependency probe results
var (
	// ServiceHealthy reports the last observed health of each dependency
	ServiceHealthy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "service_healthy",
			Help: "1 if the dependency's last health probe succeeded, 0 otherwise",
		},
		[]string{"service"},
	)

	// HealthProbesTotal counts health probes by service and result
	HealthProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "health_probes_total",
			Help: "Total number of health probes executed",
		},
		[]string{"service", "result"}, // result: healthy, unhealthy
	)

	// HealthProbeDuration measures health probe duration
	HealthProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "health_probe_duration_seconds",
			Help:    "Health probe duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"service"},
	)

	// BreakerResetsTotal counts forced breaker resets by trigger
	BreakerResetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breaker_resets_total",
			Help: "Total number of forced circuit breaker resets",
		},
		[]string{"service", "trigger"}, // trigger: recovery, admin
	)
)

// RecordGuardedCall records the terminal outcome of one guarded invocation.
func RecordGuardedCall(service, outcome string, attempts int, duration time.Duration) {
	GuardedCallsTotal.WithLabelValues(service, outcome).Inc()
	GuardedCallDuration.WithLabelValues(service).Observe(duration.Seconds())
	if attempts > 0 {
		GuardedCallAttempts.WithLabelValues(service).Observe(float64(attempts))
	}
}

// RecordRejectedCall records an invocation denied by an open breaker.
func RecordRejectedCall(service string) {
	RejectedCallsTotal.WithLabelValues(service).Inc()
	GuardedCallsTotal.WithLabelValues(service, "rejected").Inc()
}
