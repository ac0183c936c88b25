package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartCallSpan starts the root span for processing one outbound call.
// The returned context carries the span and must be passed to every
// pipeline stage so stage spans nest under it.
//
// Example usage:
//
//	ctx, span := tracing.StartCallSpan(ctx, callID, contact.Name)
//	defer span.End()
func StartCallSpan(ctx context.Context, callID, contact string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "outbound-call",
		trace.WithAttributes(
			attribute.String("call.id", callID),
			attribute.String("call.contact", contact),
		),
	)
}

// StartStageSpan starts a span for one pipeline stage against a named
// dependency (e.g. stage "speech_synthesis" against service
// "speech-synthesis").
func StartStageSpan(ctx context.Context, stage, service string) (context.Context, trace.Span) {
	return tracer.Start(ctx, stage,
		trace.WithAttributes(
			attribute.String("call.stage", stage),
			attribute.String("service", service),
		),
	)
}

// StartInvokeSpan starts a span for one guarded invocation against a named
// service. The caller records the terminal outcome with RecordOutcome once
// the breaker and retry handler have decided it.
func StartInvokeSpan(ctx context.Context, service string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "guarded-invoke",
		trace.WithAttributes(
			attribute.String("service", service),
		),
	)
}

// RecordOutcome records the terminal outcome of a guarded invocation on the
// given span: the outcome label, the number of attempts used, and the error
// status when the invocation failed.
func RecordOutcome(span trace.Span, outcome string, attempts int, err error) {
	span.SetAttributes(
		attribute.String("outcome", outcome),
		attribute.Int("attempts", attempts),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return
	}
	span.SetStatus(codes.Ok, "")
}
