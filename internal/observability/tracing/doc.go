// Package tracing provides OpenTelemetry tracing integration.
//
// Spans cover the outbound-call pipeline: one root span per call with a
// child span per stage, carrying the guarded invocation's outcome and
// attempt count as attributes.
//
// Exporter wiring is left to the process entrypoint; without a configured
// provider the spans are no-ops.
//
// Example usage:
//
//	import "callguard/internal/observability/tracing"
//
//	func processCall(ctx context.Context) {
//	    ctx, span := tracing.StartCallSpan(ctx, callID, contact.Name)
//	    defer span.End()
//	    // ... run pipeline stages ...
//	}
package tracing
