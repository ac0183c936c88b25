package metrics

import (
	"time"
)

// RecordCallCompleted records the final status of one outbound call.
// Status should be one of "completed", "degraded", "failed", or "rejected".
func RecordCallCompleted(status string) {
	OutboundCallsTotal.WithLabelValues(status).Inc()
}

// RecordCallStageDuration records the time taken by one pipeline stage.
// This helps identify which dependency dominates call latency.
func RecordCallStageDuration(stage string, duration time.Duration) {
	CallStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordCallBatch records metrics for a completed call batch.
//
// Parameters:
//   - duration: Wall-clock time for the entire batch
//   - failed: Number of calls that ended in failure or rejection
//   - total: Number of calls in the batch
//
// Example:
//
//	start := time.Now()
//	stats, err := svc.ProcessBatch(ctx, contacts)
//	RecordCallBatch(time.Since(start), stats.Failed+stats.Rejected, stats.Contacts)
func RecordCallBatch(duration time.Duration, failed, total int) {
	CallBatchDuration.Observe(duration.Seconds())

	status := "success"
	switch {
	case total > 0 && failed == total:
		status = "failure"
	case failed > 0:
		status = "partial"
	}
	CallBatchesTotal.WithLabelValues(status).Inc()
}

// RecordHealthProbe records the result of one dependency health probe.
func RecordHealthProbe(service string, healthy bool, duration time.Duration) {
	result := "healthy"
	value := 1.0
	if !healthy {
		result = "unhealthy"
		value = 0
	}
	HealthProbesTotal.WithLabelValues(service, result).Inc()
	HealthProbeDuration.WithLabelValues(service).Observe(duration.Seconds())
	ServiceHealthy.WithLabelValues(service).Set(value)
}

// RecordBreakerReset records a forced breaker reset.
// Trigger should be "recovery" for monitor-driven resets or "admin" for
// operator-driven resets.
func RecordBreakerReset(service, trigger string) {
	BreakerResetsTotal.WithLabelValues(service, trigger).Inc()
}
