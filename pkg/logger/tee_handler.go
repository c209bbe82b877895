package logger

import (
	"context"
	"log/slog"
)

// teeHandler fans one record out to several destinations, typically the
// stdout JSON handler plus the Sentry forwarder. Each destination keeps
// its own level gate, so Sentry can receive only warnings and errors
// while stdout logs everything.
type teeHandler struct {
	sinks []slog.Handler
}

func newTeeHandler(sinks ...slog.Handler) slog.Handler {
	return &teeHandler{sinks: sinks}
}

// Enabled reports true when at least one destination wants the level.
func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, sink := range t.sinks {
		if sink.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle delivers the record to every destination that accepts its level.
// Records are cloned per destination since handlers may retain them. The
// first delivery error aborts the fan-out.
func (t *teeHandler) Handle(ctx context.Context, rec slog.Record) error {
	for _, sink := range t.sinks {
		if !sink.Enabled(ctx, rec.Level) {
			continue
		}
		if err := sink.Handle(ctx, rec.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sinks := make([]slog.Handler, len(t.sinks))
	for i, sink := range t.sinks {
		sinks[i] = sink.WithAttrs(attrs)
	}
	return newTeeHandler(sinks...)
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	sinks := make([]slog.Handler, len(t.sinks))
	for i, sink := range t.sinks {
		sinks[i] = sink.WithGroup(name)
	}
	return newTeeHandler(sinks...)
}
