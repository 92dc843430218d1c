package middlewares

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/letterdesk/approvals/pkg/logger"
)

type requestIDKey struct{}

// RequestIDHeader carries the request ID on responses.
const RequestIDHeader = "X-Request-ID"

// upstreamHeaders are checked in order for an ID assigned by a proxy or caller.
var upstreamHeaders = []string{"X-Request-ID", "X-Correlation-ID"}

// RequestIDOption configures the request ID middleware.
type RequestIDOption func(*requestIDConfig)

type requestIDConfig struct {
	generate func() string
	trust    bool
}

// WithRequestIDGenerator replaces uuid.NewString.
func WithRequestIDGenerator(gen func() string) RequestIDOption {
	return func(cfg *requestIDConfig) {
		if gen != nil {
			cfg.generate = gen
		}
	}
}

// WithoutUpstreamID ignores IDs supplied in request headers.
func WithoutUpstreamID() RequestIDOption {
	return func(cfg *requestIDConfig) {
		cfg.trust = false
	}
}

// RequestID stores a request ID in the request context and echoes it in the
// X-Request-ID response header. An upstream ID is reused when present.
func RequestID(opts ...RequestIDOption) func(http.Handler) http.Handler {
	cfg := &requestIDConfig{generate: uuid.NewString, trust: true}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if cfg.trust {
				id = upstreamID(r.Header)
			}
			if id == "" {
				id = cfg.generate()
			}

			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		})
	}
}

func upstreamID(h http.Header) string {
	for _, name := range upstreamHeaders {
		if v := strings.TrimSpace(h.Get(name)); v != "" {
			return v
		}
	}
	return ""
}

// GetRequestID returns the request ID stored in ctx, or "".
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// RequestIDExtractor adds "request_id" to every log record written with a request context.
func RequestIDExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if v := GetRequestID(ctx); v != "" {
			return slog.String("request_id", v), true
		}
		return slog.Attr{}, false
	}
}
