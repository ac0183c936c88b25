// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes all application metrics including:
//   - Guarded call metrics (outcomes, attempts, durations, rejections)
//   - Call pipeline metrics (stage durations, batch results)
//   - Health monitoring metrics (probe results, forced breaker resets)
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "callguard/internal/observability/metrics"
//
//	func synthesize(ctx context.Context) {
//	    start := time.Now()
//	    // ... run the guarded call ...
//
//	    metrics.RecordGuardedCall("speech-synthesis", "success", attempts, time.Since(start))
//	    metrics.RecordCallStageDuration("speech_synthesis", time.Since(start))
//	}
package metrics
