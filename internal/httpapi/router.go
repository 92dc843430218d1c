package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/letterdesk/approvals/middlewares"
	"github.com/letterdesk/approvals/pkg/health"
)

// RouterConfig collects what the router serves.
type RouterConfig struct {
	Handler     *Handler
	Checks      health.Checks
	CORSOrigins []string
	Logger      *slog.Logger
}

// NewRouter builds the service's HTTP routes.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middlewares.RequestID())
	r.Use(middlewares.Recover(cfg.Logger))
	r.Use(middlewares.CORS(middlewares.WithAllowOrigins(cfg.CORSOrigins...)))

	r.Post("/approve_letters", cfg.Handler.Approve)
	r.Get("/documents/{id}", cfg.Handler.Document)

	r.Get("/health/live", health.LivenessHandler())
	r.Get("/health/ready", health.ReadinessHandler(cfg.Checks, health.WithLogger(cfg.Logger)))
	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}
