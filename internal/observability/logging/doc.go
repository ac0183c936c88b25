// Package logging builds the slog loggers the dialer runs with and
// carries the call ID through context so every log line produced while
// handling one outbound call can be correlated.
//
// The worker logs JSON via NewLogger; NewTextLogger exists for local
// runs. The call ID flows alongside the pipeline:
//
//	ctx = logging.ContextWithCallID(ctx, callID)
//	...
//	logger := logging.WithCallID(ctx, slog.Default())
//	logger.Info("synthesis finished")
package logging
