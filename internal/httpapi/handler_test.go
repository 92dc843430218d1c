package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letterdesk/approvals/internal/approval"
	"github.com/letterdesk/approvals/internal/archive"
	"github.com/letterdesk/approvals/internal/httpapi"
	"github.com/letterdesk/approvals/pkg/health"
	"github.com/letterdesk/approvals/pkg/logger"
)

type fakeProcessor struct {
	mu     sync.Mutex
	got    []approval.Request
	result *approval.Result
}

func (f *fakeProcessor) Process(_ context.Context, req approval.Request) *approval.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, req)
	return f.result
}

type fakeDocuments struct {
	docs map[string][]byte
	err  error
}

func (f *fakeDocuments) Read(_ context.Context, id string) (string, []byte, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	data, ok := f.docs[id]
	if !ok {
		return "", nil, archive.ErrNotFound
	}
	return id + "_Memo.pdf", data, nil
}

func newServer(p httpapi.Processor, docs httpapi.DocumentReader, checks health.Checks) http.Handler {
	log := logger.NewNope()
	return httpapi.NewRouter(httpapi.RouterConfig{
		Handler:     httpapi.NewHandler(p, docs, log),
		Checks:      checks,
		CORSOrigins: []string{"*"},
		Logger:      log,
	})
}

func validBody() map[string]any {
	return map[string]any{
		"employee_name":       "Ada Lovelace",
		"designation":         "Engineer",
		"receiver_email":      "receiver@example.com",
		"sender_email":        "sender@example.com",
		"cc_emails":           []string{"cc@example.com"},
		"request_id":          "100",
		"request_type":        "Leave",
		"department":          "R&D",
		"approval_type":       "Final",
		"transaction_status":  "Approved",
		"book_language":       "EN",
		"transaction_creator": "Clerk",
		"sender":              "Ada",
		"receiver":            "Charles",
		"transaction_date":    "10-16-2026",
		"transaction_type":    "MEMO",
		"confidentiality":     "Internal",
		"subject":             "Engines",
		"notes_on_request":    "<p>ok</p>",
		"file_name":           "scan.png",
		"mime_type":           "image/png",
		"file_data":           "iVBORw0KGgo=",
	}
}

func post(t *testing.T, h http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/approve_letters", &buf))
	return rec
}

func TestApprove(t *testing.T) {
	t.Parallel()

	t.Run("success maps every field", func(t *testing.T) {
		t.Parallel()

		p := &fakeProcessor{result: &approval.Result{
			Status:       approval.StatusSuccess,
			DocumentPath: "Memo.pdf",
			ArchiveKey:   "approval-letters/100_Memo.pdf",
		}}
		rec := post(t, newServer(p, nil, nil), validBody())

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"success","pdf_path":"Memo.pdf","archive_key":"approval-letters/100_Memo.pdf"}`, rec.Body.String())
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

		require.Len(t, p.got, 1)
		req := p.got[0]
		assert.Equal(t, "100", req.ID)
		assert.Equal(t, approval.Memo, req.Classification)
		assert.Equal(t, "receiver@example.com", req.Recipients.Primary)
		assert.Equal(t, "sender@example.com", req.Recipients.Secondary)
		assert.Equal(t, []string{"cc@example.com"}, req.Recipients.CC)
		assert.Equal(t, "<p>ok</p>", req.Document.Notes)
		assert.Equal(t, "MEMO", req.Document.TransactionType)
		assert.Equal(t, "Ada Lovelace", req.Notification.EmployeeName)
		assert.Equal(t, "sender@example.com", req.Notification.SenderEmail)
		assert.Equal(t, "image/png", req.Payload.MediaType)
		assert.Equal(t, "scan.png", req.Payload.Name)
		assert.Equal(t, "iVBORw0KGgo=", req.Payload.Data)
	})

	t.Run("pipeline error is a 500", func(t *testing.T) {
		t.Parallel()

		p := &fakeProcessor{result: &approval.Result{
			Status:  approval.StatusError,
			Message: "notify primary recipient: relay refused",
		}}
		rec := post(t, newServer(p, nil, nil), validBody())

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"status":"error","message":"notify primary recipient: relay refused"}`, rec.Body.String())
	})

	t.Run("validation failure names json fields", func(t *testing.T) {
		t.Parallel()

		body := validBody()
		body["receiver_email"] = "not-an-email"
		body["request_id"] = ""
		body["cc_emails"] = []string{"ok@example.com", "broken"}

		p := &fakeProcessor{}
		rec := post(t, newServer(p, nil, nil), body)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var got struct {
			Status string              `json:"status"`
			Error  string              `json:"error"`
			Fields map[string][]string `json:"fields"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "error", got.Status)
		assert.Equal(t, "validation_failed", got.Error)
		assert.Equal(t, []string{"email"}, got.Fields["receiver_email"])
		assert.Equal(t, []string{"required"}, got.Fields["request_id"])
		assert.Equal(t, []string{"email"}, got.Fields["cc_emails[1]"])
		assert.Empty(t, p.got)
	})

	t.Run("path separators in request id", func(t *testing.T) {
		t.Parallel()

		body := validBody()
		body["request_id"] = "../etc"

		p := &fakeProcessor{}
		rec := post(t, newServer(p, nil, nil), body)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "request_id")
		assert.Empty(t, p.got)
	})

	t.Run("malformed json", func(t *testing.T) {
		t.Parallel()

		rec := post(t, newServer(&fakeProcessor{}, nil, nil), `{"request_id":`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "malformed request body")
	})

	t.Run("wrong method", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		newServer(&fakeProcessor{}, nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/approve_letters", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		assert.JSONEq(t, `{"status":"error","message":"method not allowed"}`, rec.Body.String())
	})
}

func TestDocument(t *testing.T) {
	t.Parallel()

	pdfBytes := []byte("%PDF-1.7 stub")

	get := func(h http.Handler, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	t.Run("found", func(t *testing.T) {
		t.Parallel()

		h := newServer(&fakeProcessor{}, &fakeDocuments{docs: map[string][]byte{"100": pdfBytes}}, nil)
		rec := get(h, "/documents/100")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename=100_Memo.pdf`, rec.Header().Get("Content-Disposition"))
		assert.Equal(t, pdfBytes, rec.Body.Bytes())
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		h := newServer(&fakeProcessor{}, &fakeDocuments{}, nil)
		rec := get(h, "/documents/404")

		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"status":"error","message":"document not found"}`, rec.Body.String())
	})

	t.Run("archive not configured", func(t *testing.T) {
		t.Parallel()

		rec := get(newServer(&fakeProcessor{}, nil, nil), "/documents/100")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		rec = get(newServer(&fakeProcessor{}, &fakeDocuments{err: archive.ErrUnavailable}, nil), "/documents/100")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("storage failure", func(t *testing.T) {
		t.Parallel()

		h := newServer(&fakeProcessor{}, &fakeDocuments{err: errors.New("connection reset")}, nil)
		rec := get(h, "/documents/100")

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "connection reset")
	})
}

func TestOperationalRoutes(t *testing.T) {
	t.Parallel()

	h := newServer(&fakeProcessor{}, nil, health.Checks{
		"storage": func(context.Context) error { return errors.New("down") },
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "go_goroutines"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
