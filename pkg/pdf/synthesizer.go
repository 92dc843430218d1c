package pdf

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Engine lays out HTML and returns the raw PDF bytes.
type Engine interface {
	Render(ctx context.Context, html string, page PageSettings) ([]byte, error)
}

// Validator checks that data is a usable PDF document.
type Validator func(data []byte) error

// Synthesizer produces PDF files from HTML.
type Synthesizer struct {
	engine   Engine
	validate Validator
	logger   *slog.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithValidator replaces the pdfcpu validator.
func WithValidator(v Validator) Option {
	return func(s *Synthesizer) {
		if v != nil {
			s.validate = v
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Synthesizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Synthesizer backed by engine.
func New(engine Engine, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		engine:   engine,
		validate: Validate,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize renders html into a PDF at outPath and returns outPath.
//
// Bytes are written to a temporary file next to outPath and renamed into place
// only after validation succeeds.
func (s *Synthesizer) Synthesize(ctx context.Context, html, outPath string, page PageSettings) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", ErrEmptyDocument
	}

	data, err := s.engine.Render(ctx, html, page)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}

	if err := s.validate(data); err != nil {
		s.logger.WarnContext(ctx, "rejected generated pdf",
			slog.String("path", outPath),
			slog.Int("bytes", len(data)),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	if err := writeAtomic(outPath, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	s.logger.InfoContext(ctx, "pdf generated",
		slog.String("path", outPath),
		slog.Int("bytes", len(data)))

	return outPath, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

var disableConfigDir sync.Once

// Validate parses data with pdfcpu in relaxed mode and requires at least one page.
func Validate(data []byte) error {
	disableConfigDir.Do(api.DisableConfigDir)

	if len(data) == 0 {
		return ErrEmptyDocument
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	if err := api.Validate(bytes.NewReader(data), conf); err != nil {
		return err
	}

	pages, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return err
	}
	if pages < 1 {
		return ErrEmptyDocument
	}
	return nil
}
