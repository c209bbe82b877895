// Package logger builds the slog loggers used across the cache: a
// machine-parseable JSON transport for production, a human-readable text
// transport for local work, and an optional Sentry fan-out for
// warning/error records.
//
// All factories wrap their handler in a decorator that pulls attributes
// out of the context at log time. The cache manager stamps every
// operation with a correlation ID via [ContextWithCorrelationID]; pass
// [CorrelationIDExtractor] to a factory and every log line emitted under
// that context carries the matching "correlation_id" attribute:
//
//	log := logger.New(logger.CorrelationIDExtractor())
//	ctx := logger.ContextWithCorrelationID(context.Background())
//	log.InfoContext(ctx, "cache get", slog.String("key", key))
//
// Use [NewNope] in tests to silence output entirely.
package logger
