// Package httpapi exposes the approval pipeline over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/letterdesk/approvals/internal/approval"
	"github.com/letterdesk/approvals/internal/archive"
	"github.com/letterdesk/approvals/internal/metrics"
)

// DefaultMaxBodySize bounds a request body; attachments arrive base64 encoded inline.
const DefaultMaxBodySize = 32 << 20

// Processor runs the approval pipeline.
type Processor interface {
	Process(ctx context.Context, req approval.Request) *approval.Result
}

// DocumentReader returns an archived document's name and content by request id.
type DocumentReader interface {
	Read(ctx context.Context, id string) (string, []byte, error)
}

// Handler serves the approval endpoints.
type Handler struct {
	processor   Processor
	documents   DocumentReader
	validate    *validator.Validate
	logger      *slog.Logger
	maxBodySize int64
}

// NewHandler creates a Handler. documents may be nil when no archive is configured.
func NewHandler(p Processor, documents DocumentReader, logger *slog.Logger) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Handler{
		processor:   p,
		documents:   documents,
		validate:    v,
		logger:      logger,
		maxBodySize: DefaultMaxBodySize,
	}
}

// Approve handles POST /approve_letters.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	var body ApproveRequest
	if err := h.decode(w, r, &body); err != nil {
		writeValidationError(w, err)
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeValidationError(w, err)
		return
	}

	res := h.processor.Process(r.Context(), body.toRequest())
	if !res.OK() {
		writeError(w, http.StatusInternalServerError, res.Message)
		return
	}

	writeJSON(w, http.StatusOK, statusBody{
		Status:     approval.StatusSuccess,
		PDFPath:    res.DocumentPath,
		ArchiveKey: res.ArchiveKey,
	})
}

// Document handles GET /documents/{id}.
func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if h.documents == nil {
		writeError(w, http.StatusServiceUnavailable, "document archive not configured")
		return
	}

	name, data, err := h.documents.Read(r.Context(), id)
	switch {
	case err == nil:
		metrics.IncArchive("download", "success")
	case errors.Is(err, archive.ErrNotFound), errors.Is(err, archive.ErrInvalidID):
		metrics.IncArchive("download", "not_found")
		writeError(w, http.StatusNotFound, "document not found")
		return
	case errors.Is(err, archive.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "document archive not configured")
		return
	default:
		metrics.IncArchive("download", "failure")
		h.logger.ErrorContext(r.Context(), "document download failed",
			slog.String("request_id", id),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "document download failed")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, tooLarge.Limit)
		}
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return nil
}
