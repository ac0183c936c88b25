// Package observability groups the dialer's telemetry: slog-based
// structured logging with call ID propagation, the Prometheus metrics
// the batch pipeline and breakers publish, OpenTelemetry spans for call
// stages and guarded invocations, and the per-batch SLO gauges.
//
// Subpackages:
//   - logging: logger construction and call ID context plumbing
//   - metrics: Prometheus registry and recorder interfaces
//   - tracing: span helpers for calls, stages, and guarded invokes
//   - slo: per-batch service level gauges
package observability
