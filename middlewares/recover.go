package middlewares

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime"
)

// DefaultStackSize bounds the stack captured for a recovered panic.
const DefaultStackSize = 4 << 10

// RecoverOption configures the recover middleware.
type RecoverOption func(*int)

// WithStackSize sets how many bytes of stack are logged; zero disables the stack.
func WithStackSize(n int) RecoverOption {
	return func(size *int) {
		if n >= 0 {
			*size = n
		}
	}
}

// Recover turns a handler panic into a logged error and a
// 500 {"status":"error","message":"internal server error"} response.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func Recover(log *slog.Logger, opts ...RecoverOption) func(http.Handler) http.Handler {
	stackSize := DefaultStackSize
	for _, opt := range opts {
		opt(&stackSize)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}

				attrs := []any{
					slog.Any("panic", v),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				}
				if stackSize > 0 {
					buf := make([]byte, stackSize)
					attrs = append(attrs, slog.String("stack", string(buf[:runtime.Stack(buf, false)])))
				}
				log.ErrorContext(r.Context(), "panic recovered", attrs...)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"status":  "error",
					"message": "internal server error",
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
