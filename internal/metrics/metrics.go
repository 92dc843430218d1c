// Package metrics exposes Prometheus instruments for the approval pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// requestsTotal counts orchestration runs.
	// Labels:
	// - classification: document name, e.g. "Memo"
	// - status: "success" or "error"
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "approvals",
			Subsystem: "pipeline",
			Name:      "requests_total",
			Help:      "Total number of approval requests processed",
		},
		[]string{"classification", "status"},
	)

	// stepFailures counts degraded or failed pipeline steps.
	// Labels:
	// - step: "render_notification", "render_document", "synthesize", "attachment", "notify_primary", "notify_secondary", "archive", "cleanup"
	stepFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "approvals",
			Subsystem: "pipeline",
			Name:      "step_failures_total",
			Help:      "Number of pipeline steps that failed or degraded",
		},
		[]string{"step"},
	)

	// emailsSent counts notification sends.
	// Labels:
	// - recipient: "primary" or "secondary"
	// - status: "success" or "failure"
	emailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "approvals",
			Subsystem: "mail",
			Name:      "sent_total",
			Help:      "Number of notification emails attempted",
		},
		[]string{"recipient", "status"},
	)

	// archiveOps counts archive operations.
	// Labels:
	// - op: "upload" or "download"
	// - status: "success", "not_found" or "failure"
	archiveOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "approvals",
			Subsystem: "archive",
			Name:      "operations_total",
			Help:      "Number of archive uploads and fetches",
		},
		[]string{"op", "status"},
	)

	// pipelineDuration tracks end-to-end run time.
	pipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "approvals",
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Duration of an approval request run",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"status"},
	)
)

// ObserveRequest records a finished run.
func ObserveRequest(classification, status string, d time.Duration) {
	if classification == "" {
		classification = "unknown"
	}
	if status == "" {
		status = "unknown"
	}
	requestsTotal.WithLabelValues(classification, status).Inc()
	pipelineDuration.WithLabelValues(status).Observe(d.Seconds())
}

// IncStepFailure increments the failure counter for a pipeline step.
func IncStepFailure(step string) {
	if step == "" {
		step = "unknown"
	}
	stepFailures.WithLabelValues(step).Inc()
}

// IncEmail records a notification send attempt.
func IncEmail(recipient string, err error) {
	emailsSent.WithLabelValues(recipient, outcome(err)).Inc()
}

// IncArchive records an archive operation.
func IncArchive(op, status string) {
	if status == "" {
		status = "unknown"
	}
	archiveOps.WithLabelValues(op, status).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
