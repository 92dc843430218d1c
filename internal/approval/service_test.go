package approval_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/letterdesk/approvals/assets"
	"github.com/letterdesk/approvals/internal/approval"
	"github.com/letterdesk/approvals/internal/archive"
	"github.com/letterdesk/approvals/pkg/attachment"
	"github.com/letterdesk/approvals/pkg/mailer"
	"github.com/letterdesk/approvals/pkg/pdf"
	"github.com/letterdesk/approvals/pkg/storage"
	"github.com/letterdesk/approvals/pkg/templates"
)

// pngPixel is a 1x1 transparent PNG.
const pngPixel = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

type stubEngine struct{ err error }

func (e stubEngine) Render(_ context.Context, html string, _ pdf.PageSettings) ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []byte("%PDF-1.7\n" + html), nil
}

type mailbox struct {
	mu     sync.Mutex
	emails []*mailer.Email
	fail   map[string]error
}

func (m *mailbox) Send(_ context.Context, e *mailer.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[e.To[0]]; err != nil {
		return err
	}
	m.emails = append(m.emails, e)
	return nil
}

func (m *mailbox) to(addr string) *mailer.Email {
	for _, e := range m.emails {
		if e.To[0] == addr {
			return e
		}
	}
	return nil
}

type bucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (b *bucket) Put(_ context.Context, key string, r io.Reader, size int64, _ ...storage.Option) (*storage.ObjectInfo, error) {
	if b.err != nil {
		return nil, b.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	return &storage.ObjectInfo{Key: key, Size: size}, nil
}

func (b *bucket) Get(_ context.Context, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *bucket) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []storage.ObjectInfo
	for k := range b.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, storage.ObjectInfo{Key: k})
		}
	}
	return out, nil
}

func (b *bucket) Ping(context.Context) error { return nil }

type harness struct {
	svc     *approval.Service
	mail    *mailbox
	bucket  *bucket
	workDir string
}

func setup(t *testing.T, opts ...func(*approval.Deps, *harness)) *harness {
	t.Helper()

	h := &harness{
		mail:    &mailbox{fail: map[string]error{}},
		bucket:  &bucket{objects: map[string][]byte{}},
		workDir: t.TempDir(),
	}
	deps := approval.Deps{
		Renderer:    templates.NewRenderer(assets.Templates()),
		Synthesizer: pdf.New(stubEngine{}, pdf.WithValidator(func([]byte) error { return nil })),
		Notifier:    approval.NewNotifier(h.mail, nil),
		Archive:     archive.New(h.bucket),
		WorkDir:     h.workDir,
		Now:         func() time.Time { return time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC) },
	}
	for _, opt := range opts {
		opt(&deps, h)
	}
	h.svc = approval.NewService(deps)
	return h
}

func memoRequest() approval.Request {
	return approval.Request{
		ID:             "100",
		Classification: approval.ParseClassification("MEMO"),
		Recipients: approval.Recipients{
			Primary:   "receiver@example.com",
			Secondary: "sender@example.com",
			CC:        []string{"cc1@example.com", "cc2@example.com"},
		},
		Document: approval.DocumentFields{
			ApprovalType:       "Memo",
			TransactionStatus:  "Approved",
			BookLanguage:       "English",
			TransactionCreator: "Clerk",
			Sender:             "Finance",
			Receiver:           "HR",
			TransactionDate:    "2026-10-16",
			TransactionType:    "MEMO",
			Confidentiality:    "Normal",
			Subject:            "Budget",
			Notes:              "<p>Approved as requested.</p>",
		},
		Notification: approval.NotificationFields{
			EmployeeName: "Alice",
			Sender:       "Finance",
			SenderEmail:  "sender@example.com",
			Department:   "Accounts",
			Designation:  "Manager",
			RequestType:  "Memo",
		},
		Payload: attachment.Payload{Data: pngPixel, MediaType: "image/png", Name: "scan"},
	}
}

func requireWorkDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries, "ephemeral files must be removed")
}

func TestProcess_EndToEnd(t *testing.T) {
	t.Parallel()

	h := setup(t)
	res := h.svc.Process(context.Background(), memoRequest())

	require.Equal(t, approval.StatusSuccess, res.Status, res.Message)
	require.True(t, res.AttachmentBuilt)
	require.Equal(t, "Memo.pdf", res.DocumentPath)
	require.Equal(t, "approval-letters/100_Memo.pdf", res.ArchiveKey)

	primary := h.mail.to("receiver@example.com")
	require.NotNil(t, primary)
	require.Len(t, primary.Attachments, 1)
	require.Equal(t, "Memo.pdf", primary.Attachments[0].Filename)
	require.Equal(t, "Memo - Request ID - 100 – Approved", primary.Subject)
	require.Equal(t, []string{"cc1@example.com", "cc2@example.com"}, primary.CC)
	require.Contains(t, primary.HTML, "10-16-2026")

	secondary := h.mail.to("sender@example.com")
	require.NotNil(t, secondary)
	require.Len(t, secondary.Attachments, 2)
	require.Equal(t, "scan.png", secondary.Attachments[1].Filename)
	require.Equal(t, "image/png", secondary.Attachments[1].ContentType)
	require.Equal(t, primary.CC, secondary.CC)

	stored, ok := h.bucket.objects["approval-letters/100_Memo.pdf"]
	require.True(t, ok)
	require.Contains(t, string(stored), "Approved as requested.")

	requireWorkDirEmpty(t, h.workDir)
}

func TestProcess_EmptyPayload(t *testing.T) {
	t.Parallel()

	h := setup(t)
	req := memoRequest()
	req.Payload = attachment.Payload{}

	res := h.svc.Process(context.Background(), req)

	require.Equal(t, approval.StatusSuccess, res.Status)
	require.False(t, res.AttachmentBuilt)
	require.NotEmpty(t, res.Warnings)
	require.Equal(t, "approval-letters/100_Memo.pdf", res.ArchiveKey)
	require.Len(t, h.mail.to("sender@example.com").Attachments, 1)
	requireWorkDirEmpty(t, h.workDir)
}

func TestProcess_PrimarySendFails(t *testing.T) {
	t.Parallel()

	h := setup(t)
	h.mail.fail["receiver@example.com"] = errors.New("relay refused")

	res := h.svc.Process(context.Background(), memoRequest())

	require.Equal(t, approval.StatusError, res.Status)
	require.Contains(t, res.Message, "relay refused")
	require.Nil(t, h.mail.to("sender@example.com"), "remaining sends are skipped")
	require.Equal(t, "approval-letters/100_Memo.pdf", res.ArchiveKey, "archive runs regardless")
	requireWorkDirEmpty(t, h.workDir)
}

func TestProcess_SecondarySendFails(t *testing.T) {
	t.Parallel()

	h := setup(t)
	h.mail.fail["sender@example.com"] = errors.New("mailbox full")

	res := h.svc.Process(context.Background(), memoRequest())

	require.Equal(t, approval.StatusError, res.Status)
	require.NotNil(t, h.mail.to("receiver@example.com"), "prior send stands")
	require.NotEmpty(t, res.ArchiveKey)
	requireWorkDirEmpty(t, h.workDir)
}

func TestProcess_SynthesisFails(t *testing.T) {
	t.Parallel()

	h := setup(t, func(d *approval.Deps, _ *harness) {
		d.Synthesizer = pdf.New(stubEngine{err: errors.New("browser crashed")})
	})

	res := h.svc.Process(context.Background(), memoRequest())

	require.Equal(t, approval.StatusError, res.Status)
	require.Empty(t, res.DocumentPath)
	require.Empty(t, res.ArchiveKey)
	require.Empty(t, h.mail.emails)
	requireWorkDirEmpty(t, h.workDir)
}

func TestProcess_MissingTemplate(t *testing.T) {
	t.Parallel()

	h := setup(t, func(d *approval.Deps, _ *harness) {
		d.Renderer = templates.NewRenderer(fstest.MapFS{
			"notification.md": &fstest.MapFile{Data: []byte("Request {request_id}")},
		})
	})

	res := h.svc.Process(context.Background(), memoRequest())

	require.Equal(t, approval.StatusError, res.Status)
	require.Contains(t, strings.Join(res.Warnings, "\n"), "document render failed")
	require.Empty(t, res.ArchiveKey)
	requireWorkDirEmpty(t, h.workDir)
}

func TestProcess_ArchiveFailureIsWarning(t *testing.T) {
	t.Parallel()

	h := setup(t)
	h.bucket.err = storage.ErrAccessDenied

	res := h.svc.Process(context.Background(), memoRequest())

	require.Equal(t, approval.StatusSuccess, res.Status)
	require.Empty(t, res.ArchiveKey)
	require.Len(t, h.mail.emails, 2)
	requireWorkDirEmpty(t, h.workDir)
}

func TestProcess_NoArchiveConfigured(t *testing.T) {
	t.Parallel()

	h := setup(t, func(d *approval.Deps, _ *harness) {
		d.Archive = nil
	})

	res := h.svc.Process(context.Background(), memoRequest())
	require.Equal(t, approval.StatusSuccess, res.Status)
	require.Empty(t, res.ArchiveKey)
}

type panickingRenderer struct{}

func (panickingRenderer) Render(context.Context, string, templates.Fields) (*templates.Result, error) {
	panic("template store exploded")
}

func TestProcess_RecoversPanics(t *testing.T) {
	t.Parallel()

	h := setup(t, func(d *approval.Deps, _ *harness) {
		d.Renderer = panickingRenderer{}
	})

	var res *approval.Result
	require.NotPanics(t, func() {
		res = h.svc.Process(context.Background(), memoRequest())
	})
	require.Equal(t, approval.StatusError, res.Status)
	require.Contains(t, res.Message, "template store exploded")
	requireWorkDirEmpty(t, h.workDir)
}

func TestProcess_ConcurrentRunsDoNotCollide(t *testing.T) {
	t.Parallel()

	h := setup(t)

	var wg sync.WaitGroup
	results := make([]*approval.Result, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = h.svc.Process(context.Background(), memoRequest())
		}()
	}
	wg.Wait()

	for _, res := range results {
		require.Equal(t, approval.StatusSuccess, res.Status, res.Message)
	}
	requireWorkDirEmpty(t, h.workDir)
}

func TestProcess_AttachmentNamedLikeDocument(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"Memo", "Memo.pdf"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			h := setup(t)
			req := memoRequest()
			req.Payload = attachment.Payload{
				Data:      base64.StdEncoding.EncodeToString([]byte("%PDF-1.7 forged approval")),
				MediaType: "application/pdf",
				Name:      name,
			}

			res := h.svc.Process(context.Background(), req)
			require.Equal(t, approval.StatusSuccess, res.Status, res.Message)
			require.True(t, res.AttachmentBuilt)

			stored := string(h.bucket.objects["approval-letters/100_Memo.pdf"])
			require.Contains(t, stored, "Approved as requested.")
			require.NotContains(t, stored, "forged")

			primary := h.mail.to("receiver@example.com")
			require.NotNil(t, primary)
			require.Len(t, primary.Attachments, 1)
			require.Contains(t, string(primary.Attachments[0].Content), "Approved as requested.")

			secondary := h.mail.to("sender@example.com")
			require.NotNil(t, secondary)
			require.Len(t, secondary.Attachments, 2)
			require.Contains(t, string(secondary.Attachments[0].Content), "Approved as requested.")
			require.Equal(t, "%PDF-1.7 forged approval", string(secondary.Attachments[1].Content))

			requireWorkDirEmpty(t, h.workDir)
		})
	}
}

type synthFunc func(ctx context.Context, html, outPath string, page pdf.PageSettings) (string, error)

func (f synthFunc) Synthesize(ctx context.Context, html, outPath string, page pdf.PageSettings) (string, error) {
	return f(ctx, html, outPath, page)
}

func TestProcess_WorkspaceHeldWhileRunning(t *testing.T) {
	t.Parallel()

	var (
		svc       *approval.Service
		workspace string
		held      bool
	)
	h := setup(t, func(d *approval.Deps, _ *harness) {
		inner := d.Synthesizer
		d.Synthesizer = synthFunc(func(ctx context.Context, html, outPath string, page pdf.PageSettings) (string, error) {
			workspace = filepath.Dir(filepath.Dir(outPath))
			held = svc.InUse(workspace)
			return inner.Synthesize(ctx, html, outPath, page)
		})
	})
	svc = h.svc

	res := h.svc.Process(context.Background(), memoRequest())
	require.Equal(t, approval.StatusSuccess, res.Status, res.Message)

	require.Equal(t, filepath.Clean(h.workDir), filepath.Dir(workspace))
	require.True(t, held)
	require.False(t, h.svc.InUse(workspace))
	requireWorkDirEmpty(t, h.workDir)
}
