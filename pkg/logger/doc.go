// Package logger builds the service's structured logger on top of log/slog.
//
// Records are written as JSON (or text) to stdout. Request-scoped attributes
// are carried in the context and injected into every record by a decorating
// handler, so components only need to call the *Context logging methods:
//
//	ctx = logger.With(ctx, slog.String("request_id", reqID))
//	log.InfoContext(ctx, "document archived", slog.String("key", key))
//
// When a Sentry DSN is configured, warnings and errors are additionally
// forwarded to Sentry; without one the logger falls back to stdout only.
package logger
