// Package logging provides structured logging configuration using log/slog.
//
// Every pipeline run carries a run ID in its context so that all log entries
// for one run can be correlated. Requests served by the metrics endpoint carry
// chi's request ID instead.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const ctxKeyRunID contextKey = "run_id"

// Setup configures the global slog logger based on level and format.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
//
// Logs go to stderr so that CSV output on stdout stays clean.
func Setup(level, format string) {
	slog.SetDefault(New(os.Stderr, level, format))
}

// New builds a logger writing to w with the given level and format.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRun returns a context carrying runID.
func WithRun(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ctxKeyRunID, runID)
}

// RunID extracts the run ID from ctx, or "" if none is set.
func RunID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRunID).(string); ok {
		return v
	}
	return ""
}

// FromContext returns a logger enriched with run and request identifiers.
//
// Usage:
//
//	logger := logging.FromContext(ctx)
//	logger.Info("table acquired", "table", desc.Name)
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	if runID := RunID(ctx); runID != "" {
		logger = logger.With("run_id", runID)
	}
	// Chi's RequestID middleware stores the ID in context
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}

	return logger
}

// WithFields returns a logger with additional structured fields.
//
// Usage:
//
//	tableLogger := logging.WithFields(ctx, "table", desc.Name)
//	tableLogger.Info("download started")
//	// ... later ...
//	tableLogger.Info("table normalized", "records", n)
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
