package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/letterdesk/approvals/pkg/mailer"
)

var (
	ErrMissingDocument = errors.New("approval: no document to send")
	ErrEmptyBody       = errors.New("approval: empty notification body")
)

// Mailer delivers prepared emails.
type Mailer interface {
	Send(ctx context.Context, email *mailer.Email) error
}

// Notification is one email about an approved document.
type Notification struct {
	To           string
	CC           []string
	Subject      string
	HTML         string
	DocumentPath string
	ExtraPath    string // optional second attachment
	Tags         mailer.Tags
}

// Notifier composes and sends approval notifications.
type Notifier struct {
	mailer Mailer
	logger *slog.Logger
}

// NewNotifier creates a Notifier.
func NewNotifier(m Mailer, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Notifier{mailer: m, logger: logger}
}

// Send composes the email for n and delivers it in one relay session.
//
// The document is attached as application/pdf under its file name. The extra
// attachment is typed by extension; if it cannot be read the email is sent
// without it and a warning is logged.
func (n *Notifier) Send(ctx context.Context, note Notification) error {
	if strings.TrimSpace(note.HTML) == "" {
		return ErrEmptyBody
	}
	if note.DocumentPath == "" {
		return ErrMissingDocument
	}

	doc, err := mailer.AttachFileAs(note.DocumentPath, "application/pdf")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMissingDocument, err)
	}

	email := &mailer.Email{
		To:          []string{note.To},
		CC:          note.CC,
		Subject:     note.Subject,
		HTML:        note.HTML,
		Text:        mailer.DefaultFallbackText,
		Tags:        note.Tags,
		Attachments: []mailer.Attachment{doc},
	}

	if note.ExtraPath != "" {
		extra, err := mailer.AttachFile(note.ExtraPath)
		if err != nil {
			n.logger.WarnContext(ctx, "sending without extra attachment",
				slog.String("path", note.ExtraPath),
				slog.String("error", err.Error()))
		} else {
			email.Attachments = append(email.Attachments, extra)
		}
	}

	if err := n.mailer.Send(ctx, email); err != nil {
		return err
	}

	n.logger.InfoContext(ctx, "notification sent",
		slog.String("to", note.To),
		slog.Int("cc", len(note.CC)),
		slog.Int("attachments", len(email.Attachments)))
	return nil
}
