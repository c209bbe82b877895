package logger

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// correlationIDKey is the context key for the per-operation correlation ID.
type correlationIDKey struct{}

// NewCorrelationID generates a fresh correlation ID.
func NewCorrelationID() string {
	return uuid.NewString()
}

// ContextWithCorrelationID returns a context carrying a correlation ID.
// If the context already carries one, it is kept, so an ID assigned at the
// edge (an HTTP request, a warmup batch) survives through nested cache
// operations.
func ContextWithCorrelationID(ctx context.Context) context.Context {
	if CorrelationID(ctx) != "" {
		return ctx
	}
	return context.WithValue(ctx, correlationIDKey{}, NewCorrelationID())
}

// CorrelationID extracts the correlation ID from the context, or "" when
// none is set.
func CorrelationID(ctx context.Context) string {
	if v, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return v
	}
	return ""
}

// CorrelationIDExtractor returns a ContextExtractor that adds
// "correlation_id" to every log record emitted under a stamped context.
func CorrelationIDExtractor() ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id := CorrelationID(ctx); id != "" {
			return slog.String("correlation_id", id), true
		}
		return slog.Attr{}, false
	}
}
