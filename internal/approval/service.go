// Package approval runs the approval pipeline: render, synthesize, notify, archive.
package approval

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"github.com/letterdesk/approvals/internal/metrics"
	"github.com/letterdesk/approvals/pkg/attachment"
	"github.com/letterdesk/approvals/pkg/logger"
	"github.com/letterdesk/approvals/pkg/mailer"
	"github.com/letterdesk/approvals/pkg/pdf"
	"github.com/letterdesk/approvals/pkg/templates"
)

// Template names in the template store.
const (
	DocumentTemplate     = "document.html"
	NotificationTemplate = "notification.md"
)

// Renderer fills named templates.
type Renderer interface {
	Render(ctx context.Context, name string, fields templates.Fields) (*templates.Result, error)
}

// Synthesizer writes rendered HTML as a PDF.
type Synthesizer interface {
	Synthesize(ctx context.Context, html, outPath string, page pdf.PageSettings) (string, error)
}

// Sender delivers one notification.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// Archiver stores a synthesized document.
type Archiver interface {
	Upload(ctx context.Context, localPath, id, tag string) (string, error)
}

// Deps are the process-wide collaborators of a Service. Build once at startup.
type Deps struct {
	Renderer    Renderer
	Synthesizer Synthesizer
	Notifier    Sender
	Archive     Archiver
	Logger      *slog.Logger

	// WorkDir is the parent of per-run workspaces (default: os.TempDir()).
	// A janitor sweeping it should skip paths reported by Service.InUse.
	WorkDir string
	// Now returns the current time (default: time.Now).
	Now func() time.Time
}

// Service processes approval requests.
type Service struct {
	deps Deps
	live sync.Map // workspace path -> struct{}
}

// NewService creates a Service.
func NewService(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{deps: deps}
}

// InUse reports whether path is the workspace of a run still in progress.
func (s *Service) InUse(path string) bool {
	_, ok := s.live.Load(filepath.Clean(path))
	return ok
}

// Workspace subdirectories. The synthesized document and the caller's
// attachment never share a directory, so neither can replace the other.
const (
	documentDir   = "document"
	attachmentDir = "attachment"
)

// run holds the per-request state of one pipeline execution.
type run struct {
	req     Request
	log     *slog.Logger
	res     *Result
	dir     string
	docPath string
	extra   string
	mailTo  string
	body    string
}

// Process runs the pipeline for req. It never panics and always returns a result.
//
// Steps run once, in order. A failed notification send stops the remaining
// sends and marks the result as an error; attachment and archive failures only
// add warnings. Local files are removed before Process returns.
func (s *Service) Process(ctx context.Context, req Request) (res *Result) {
	started := time.Now()
	ctx = logger.With(ctx,
		slog.String("approval_id", req.ID),
		slog.String("classification", req.Classification.Name()))
	log := s.deps.Logger

	r := &run{
		req: req,
		log: log,
		res: &Result{Status: StatusSuccess},
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.ErrorContext(ctx, "approval pipeline panicked",
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())))
			r.res.Status = StatusError
			r.res.Message = fmt.Sprintf("internal error: %v", rec)
		}
		s.cleanup(ctx, r)
		metrics.ObserveRequest(req.Classification.Name(), r.res.Status, time.Since(started))
		log.InfoContext(ctx, "approval request finished",
			slog.String("status", r.res.Status),
			slog.String("archive_key", r.res.ArchiveKey),
			slog.Bool("attachment", r.res.AttachmentBuilt),
			slog.Int("warnings", len(r.res.Warnings)),
			slog.Duration("duration", time.Since(started)))
		res = r.res
	}()

	s.logSummary(ctx, req)

	dir, err := os.MkdirTemp(s.deps.WorkDir, "approval-"+safeSegment(req.ID)+"-*")
	if err != nil {
		r.res.fail(fmt.Sprintf("create workspace: %v", err))
		return r.res
	}
	r.dir = dir
	s.live.Store(filepath.Clean(dir), struct{}{})
	for _, sub := range []string{documentDir, attachmentDir} {
		if err := os.Mkdir(filepath.Join(dir, sub), 0o700); err != nil {
			r.res.fail(fmt.Sprintf("create workspace: %v", err))
			return r.res
		}
	}

	s.renderNotification(ctx, r)
	html, page := s.renderDocument(ctx, r)
	s.synthesize(ctx, r, html, page)
	s.buildAttachment(ctx, r)
	s.notify(ctx, r)
	s.archive(ctx, r)

	return r.res
}

func (s *Service) renderNotification(ctx context.Context, r *run) {
	out, err := s.deps.Renderer.Render(ctx, NotificationTemplate,
		r.req.Notification.fields(r.req.ID, s.deps.Now()))
	if err != nil {
		r.log.ErrorContext(ctx, "notification render failed", slog.String("error", err.Error()))
		metrics.IncStepFailure("render_notification")
		r.res.warn("notification render failed: " + err.Error())
		return
	}
	r.body = out.HTML
}

func (s *Service) renderDocument(ctx context.Context, r *run) (string, pdf.PageSettings) {
	out, err := s.deps.Renderer.Render(ctx, DocumentTemplate, r.req.Document.fields())
	if err != nil {
		r.log.ErrorContext(ctx, "document render failed", slog.String("error", err.Error()))
		metrics.IncStepFailure("render_document")
		r.res.warn("document render failed: " + err.Error())
		return "", pdf.DefaultPageSettings()
	}
	return out.HTML, pdf.PageSettingsFromMetadata(out.Metadata)
}

func (s *Service) synthesize(ctx context.Context, r *run, html string, page pdf.PageSettings) {
	if html == "" {
		return
	}
	out := filepath.Join(r.dir, documentDir, r.req.Classification.FileName())
	p, err := s.deps.Synthesizer.Synthesize(ctx, html, out, page)
	if err != nil {
		r.log.ErrorContext(ctx, "pdf synthesis failed", slog.String("error", err.Error()))
		metrics.IncStepFailure("synthesize")
		r.res.warn("pdf synthesis failed: " + err.Error())
		return
	}
	r.docPath = p
	r.res.DocumentPath = filepath.Base(p)
}

func (s *Service) buildAttachment(ctx context.Context, r *run) {
	if r.req.Payload.Empty() {
		r.log.InfoContext(ctx, "no attachment supplied")
		r.res.warn("attachment not built: no payload supplied")
		return
	}
	p, err := attachment.Build(filepath.Join(r.dir, attachmentDir), r.req.Payload)
	if err != nil {
		r.log.WarnContext(ctx, "attachment not built", slog.String("error", err.Error()))
		metrics.IncStepFailure("attachment")
		r.res.warn("attachment not built: " + err.Error())
		return
	}
	r.extra = p
	r.res.AttachmentBuilt = true
}

func (s *Service) notify(ctx context.Context, r *run) {
	base := Notification{
		CC:           r.req.Recipients.CC,
		Subject:      r.req.Classification.Subject(r.req.ID),
		HTML:         r.body,
		DocumentPath: r.docPath,
		Tags: mailer.Tags{
			"request_id":     r.req.ID,
			"classification": r.req.Classification.Name(),
		},
	}

	primary := base
	primary.To = r.req.Recipients.Primary
	err := s.deps.Notifier.Send(ctx, primary)
	metrics.IncEmail("primary", err)
	if err != nil {
		s.notifyFailed(ctx, r, "primary", err)
		return
	}

	secondary := base
	secondary.To = r.req.Recipients.Secondary
	if r.extra != "" {
		secondary.ExtraPath = r.extra
	} else {
		r.log.WarnContext(ctx, "secondary notification sent without attachment")
	}
	err = s.deps.Notifier.Send(ctx, secondary)
	metrics.IncEmail("secondary", err)
	if err != nil {
		s.notifyFailed(ctx, r, "secondary", err)
	}
}

func (s *Service) notifyFailed(ctx context.Context, r *run, recipient string, err error) {
	r.log.ErrorContext(ctx, "notification failed",
		slog.String("recipient", recipient),
		slog.String("error", err.Error()))
	metrics.IncStepFailure("notify_" + recipient)
	r.res.fail(err.Error())
}

func (s *Service) archive(ctx context.Context, r *run) {
	if r.docPath == "" {
		r.res.warn("archive skipped: no document")
		metrics.IncArchive("upload", "skipped")
		return
	}
	if s.deps.Archive == nil {
		r.res.warn("archive skipped: storage not configured")
		metrics.IncArchive("upload", "skipped")
		return
	}

	key, err := s.deps.Archive.Upload(ctx, r.docPath, r.req.ID, r.req.Classification.Name())
	if err != nil {
		metrics.IncStepFailure("archive")
		metrics.IncArchive("upload", "failure")
		r.res.warn("archive upload failed: " + err.Error())
		return
	}
	metrics.IncArchive("upload", "success")
	r.res.ArchiveKey = key
}

// cleanup removes the run's workspace and everything in it.
func (s *Service) cleanup(ctx context.Context, r *run) {
	if r.dir == "" {
		return
	}
	defer s.live.Delete(filepath.Clean(r.dir))
	if err := os.RemoveAll(r.dir); err != nil {
		r.log.WarnContext(ctx, "failed to remove workspace",
			slog.String("dir", r.dir),
			slog.String("error", err.Error()))
		metrics.IncStepFailure("cleanup")
	}
}

func (s *Service) logSummary(ctx context.Context, req Request) {
	s.deps.Logger.InfoContext(ctx, "approval request received",
		slog.String("primary", req.Recipients.Primary),
		slog.String("secondary", req.Recipients.Secondary),
		slog.String("employee_name", req.Notification.EmployeeName),
		slog.Int("cc", len(req.Recipients.CC)),
		slog.String("request_type", req.Notification.RequestType),
		slog.String("department", req.Notification.Department),
		slog.String("transaction_type", req.Document.TransactionType),
		slog.String("file_name", req.Payload.Name),
		slog.String("mime_type", req.Payload.MediaType),
		slog.Int("file_data_chars", len(req.Payload.Data)),
		slog.Int("notes_chars", len(req.Document.Notes)))
}

// safeSegment keeps an id usable inside a directory name pattern.
func safeSegment(id string) string {
	out := make([]rune, 0, len(id))
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			out = append(out, c)
		}
		if len(out) == 32 {
			break
		}
	}
	return string(out)
}
