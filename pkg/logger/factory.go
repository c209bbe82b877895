package logger

import (
	"io"
	"log/slog"
	"os"
)

// New creates a JSON-formatted logger (the machine-parseable transport)
// with optional context extractors.
func New(extractors ...ContextExtractor) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(NewLogHandlerDecorator(h, extractors...))
}

// NewText creates a text-formatted logger (the human-readable transport)
// with optional context extractors. Intended for local development.
func NewText(extractors ...ContextExtractor) *slog.Logger {
	h := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	return slog.New(NewLogHandlerDecorator(h, extractors...))
}

// NewNope creates a logger that discards everything. Useful in tests and
// as a safe default for optional logger parameters.
func NewNope() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
