package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/letterdesk/approvals/assets"
	"github.com/letterdesk/approvals/internal/approval"
	"github.com/letterdesk/approvals/internal/archive"
	"github.com/letterdesk/approvals/internal/config"
	"github.com/letterdesk/approvals/pkg/health"
	"github.com/letterdesk/approvals/pkg/inliner"
	"github.com/letterdesk/approvals/pkg/mailer"
	"github.com/letterdesk/approvals/pkg/mailer/resend"
	"github.com/letterdesk/approvals/pkg/mailer/smtp"
	"github.com/letterdesk/approvals/pkg/pdf"
	"github.com/letterdesk/approvals/pkg/storage"
	"github.com/letterdesk/approvals/pkg/templates"
)

func newRenderer(cfg *config.Config, log *slog.Logger) *templates.Renderer {
	var fsys fs.FS = assets.Templates()
	if cfg.TemplateDir != "" {
		fsys = os.DirFS(cfg.TemplateDir)
	}
	in := inliner.New(inliner.WithTimeout(cfg.ImageTimeout), inliner.WithLogger(log))
	return templates.NewRenderer(fsys, templates.WithInliner(in))
}

func newEngine(cfg *config.Config) *pdf.ChromeEngine {
	return pdf.NewChromeEngine(
		pdf.WithControlURL(cfg.Chrome.ControlURL),
		pdf.WithBrowserBin(cfg.Chrome.Bin),
		pdf.WithNoSandbox(cfg.Chrome.NoSandbox),
		pdf.WithRenderTimeout(cfg.Chrome.RenderTimeout),
	)
}

func newSynthesizer(engine pdf.Engine, log *slog.Logger) *pdf.Synthesizer {
	return pdf.New(engine, pdf.WithLogger(log))
}

// newSender picks the mail provider. A provider that cannot be built is
// replaced by one that fails every send, so the API keeps serving.
func newSender(cfg *config.Config, log *slog.Logger) (mailer.Sender, health.CheckFunc) {
	switch cfg.MailProvider {
	case config.MailResend:
		s, err := resend.New(cfg.Resend)
		if err != nil {
			log.Error("mail disabled", slog.String("provider", cfg.MailProvider), slog.String("error", err.Error()))
			return unavailableSender{err: err}, func(context.Context) error { return err }
		}
		return s, nil
	default:
		s := smtp.New(cfg.SMTP)
		if cfg.SMTP.Host == "" {
			log.Error("mail disabled", slog.String("provider", cfg.MailProvider), slog.String("error", smtp.ErrNotConfigured.Error()))
		}
		return s, s.Ping
	}
}

type unavailableSender struct{ err error }

func (u unavailableSender) Send(context.Context, *mailer.Email) error { return u.err }

// newStorage builds the configured backend. On failure archiving is disabled
// and nil is returned.
func newStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.Storage, func(context.Context) error) {
	noop := func(context.Context) error { return nil }

	var (
		store storage.Storage
		err   error
	)
	switch cfg.StorageProvider {
	case config.StorageGCS:
		var gcs *storage.GCSStorage
		gcs, err = storage.NewGCS(ctx, cfg.GCS)
		if err == nil {
			log.Info("archive storage ready", slog.String("backend", gcs.String()))
			return gcs, func(context.Context) error { return gcs.Close() }
		}
	case config.StorageS3:
		var s3 *storage.S3Storage
		if s3, err = storage.New(cfg.Storage); err == nil {
			store = s3
		}
	default:
		var oci *storage.S3Storage
		if oci, err = storage.NewOCI(cfg.Storage); err == nil {
			store = oci
		}
	}
	if err != nil {
		log.Error("archive disabled", slog.String("provider", cfg.StorageProvider), slog.String("error", err.Error()))
		return nil, noop
	}
	log.Info("archive storage ready", slog.String("backend", fmt.Sprint(store)))
	return store, noop
}

func newArchive(store storage.Storage, cfg *config.Config, workDir string, log *slog.Logger) *archive.Gateway {
	if store == nil {
		return nil
	}
	return archive.New(store,
		archive.WithFolder(cfg.StorageFolder),
		archive.WithWorkDir(workDir),
		archive.WithLogger(log))
}

func readinessChecks(r *templates.Renderer, gw *archive.Gateway, mail health.CheckFunc, engine *pdf.ChromeEngine) health.Checks {
	checks := health.Checks{
		"templates": func(context.Context) error {
			if err := r.Exists(approval.DocumentTemplate); err != nil {
				return err
			}
			return r.Exists(approval.NotificationTemplate)
		},
		"browser": engine.Ping,
	}
	if gw != nil {
		checks["storage"] = gw.Ping
	} else {
		checks["storage"] = func(context.Context) error { return archive.ErrUnavailable }
	}
	if mail != nil {
		checks["mail"] = mail
	}
	return checks
}
