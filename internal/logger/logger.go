// Package logger sets up structured JSON logging on slog and carries
// the per-request correlation ID through context.
package logger

import (
	"context"
	"log/slog"
	"os"
)

type requestIDKey struct{}

// New creates a JSON logger tagged with the emitting service
// ("controller" or "runner").
func New(service string) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(h).With("service", service)
}

// WithRequestID stores the correlation ID in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the correlation ID, or "" when the
// request was never tagged.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// FromContext attaches the context's correlation ID to base, so every
// line logged for a request carries the same request_id.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if reqID := RequestIDFromContext(ctx); reqID != "" {
		return base.With("request_id", reqID)
	}
	return base
}
