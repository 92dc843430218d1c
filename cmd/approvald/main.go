// Command approvald serves the approval letter pipeline over HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/letterdesk/approvals/internal/approval"
	"github.com/letterdesk/approvals/internal/config"
	"github.com/letterdesk/approvals/internal/httpapi"
	"github.com/letterdesk/approvals/internal/janitor"
	"github.com/letterdesk/approvals/internal/server"
	"github.com/letterdesk/approvals/middlewares"
	"github.com/letterdesk/approvals/pkg/logger"
	"github.com/letterdesk/approvals/pkg/mailer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New(cfg.Logger, middlewares.RequestIDExtractor())
	if err := cfg.SecretsError(); err != nil {
		log.Warn("secrets file unusable, using environment credentials",
			slog.String("path", cfg.SecretsFile),
			slog.String("error", err.Error()))
	}

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx := context.Background()

	workDir := cfg.Workspace()
	if err := os.MkdirAll(workDir, 0o700); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}

	renderer := newRenderer(cfg, log)
	engine := newEngine(cfg)
	synth := newSynthesizer(engine, log)

	sender, mailCheck := newSender(cfg, log)
	notifier := approval.NewNotifier(mailer.New(sender, mailer.Config{
		From:         cfg.Sender(),
		FallbackText: cfg.Mailer.FallbackText,
	}), log)

	store, closeStore := newStorage(ctx, cfg, log)
	gateway := newArchive(store, cfg, workDir, log)

	deps := approval.Deps{
		Renderer:    renderer,
		Synthesizer: synth,
		Notifier:    notifier,
		Logger:      log,
		WorkDir:     workDir,
	}
	var documents httpapi.DocumentReader
	if gateway != nil {
		deps.Archive = gateway
		documents = gateway
	}

	svc := approval.NewService(deps)
	router := httpapi.NewRouter(httpapi.RouterConfig{
		Handler:     httpapi.NewHandler(svc, documents, log),
		Checks:      readinessChecks(renderer, gateway, mailCheck, engine),
		CORSOrigins: cfg.CORSOrigins,
		Logger:      log,
	})

	sweepOpts := []janitor.Option{
		janitor.WithMaxAge(cfg.JanitorMaxAge),
		janitor.WithLogger(log),
		janitor.WithInUse(svc.InUse),
	}
	if gateway != nil {
		sweepOpts = append(sweepOpts, janitor.WithInUse(gateway.InUse))
	}
	sweeper, err := janitor.New(cfg.JanitorSchedule, workDir, sweepOpts...)
	if err != nil {
		return err
	}
	if _, err := sweeper.Sweep(ctx); err != nil {
		log.Warn("startup workspace sweep incomplete", slog.String("error", err.Error()))
	}
	sweeper.Start()

	srv := server.New(router,
		server.WithAddress(cfg.HTTPAddr),
		server.WithLogger(log),
		server.WithShutdownTimeout(cfg.ShutdownTimeout),
		server.WithShutdownHook(sweeper.Stop),
		server.WithShutdownHook(func(context.Context) error { return engine.Close() }),
		server.WithShutdownHook(closeStore),
		server.WithShutdownHook(func(context.Context) error {
			sentry.Flush(2 * time.Second)
			return nil
		}),
	)
	return srv.Run()
}
