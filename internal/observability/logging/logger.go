package logging

import (
	"context"
	"log/slog"
	"os"
)

type loggerKey struct{}
type callIDKey struct{}

// levelFromEnv maps LOG_LEVEL to a slog level. Unknown and empty values
// mean info.
func levelFromEnv() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the JSON logger the worker runs with. LOG_LEVEL picks
// the level (debug, info, warn, error); source locations are attached at
// debug only.
func NewLogger() *slog.Logger {
	level := levelFromEnv()
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}))
}

// NewTextLogger builds a human-readable logger for local runs. Same
// LOG_LEVEL handling as NewLogger.
func NewTextLogger() *slog.Logger {
	level := levelFromEnv()
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}))
}

// ContextWithCallID stamps the context with the ID of the outbound call
// being processed so downstream stages and providers can correlate their
// log entries.
func ContextWithCallID(ctx context.Context, callID string) context.Context {
	return context.WithValue(ctx, callIDKey{}, callID)
}

// CallIDFromContext returns the call ID carried by the context, or ""
// when none was set.
func CallIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(callIDKey{}).(string)
	return id
}

// WithCallID returns logger extended with the context's call ID, or the
// logger unchanged when the context carries none.
func WithCallID(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if id := CallIDFromContext(ctx); id != "" {
		return logger.With("call_id", id)
	}
	return logger
}

// WithFields returns logger extended with the given key-value fields.
func WithFields(logger *slog.Logger, fields map[string]interface{}) *slog.Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return logger.With(args...)
}

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the context's logger, falling back to
// slog.Default when none was stored.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
