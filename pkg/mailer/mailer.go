package mailer

import (
	"context"
	"errors"
	"slices"
)

// Mailer validates emails, applies defaults, and hands them to a Sender.
type Mailer struct {
	sender Sender
	config Config
}

// New creates a new Mailer with the given sender.
func New(sender Sender, cfg Config) *Mailer {
	if cfg.FallbackText == "" {
		cfg.FallbackText = DefaultFallbackText
	}
	return &Mailer{
		sender: sender,
		config: cfg,
	}
}

// Send delivers email. The caller's value is not modified.
// From defaults to the configured sender, Text to the configured fallback.
func (m *Mailer) Send(ctx context.Context, email *Email) error {
	if email == nil || len(email.To) == 0 {
		return ErrNoRecipient
	}
	if email.Subject == "" {
		return ErrNoSubject
	}
	if email.HTML == "" {
		return ErrNoContent
	}

	msg := *email
	msg.To = slices.Clone(email.To)
	msg.CC = slices.Clone(email.CC)
	msg.BCC = slices.Clone(email.BCC)
	msg.Attachments = slices.Clone(email.Attachments)

	if msg.From == "" {
		msg.From = m.config.From
	}
	if msg.From == "" {
		return ErrNoSender
	}
	if msg.Text == "" {
		msg.Text = m.config.FallbackText
	}

	if err := m.sender.Send(ctx, &msg); err != nil {
		return errors.Join(ErrSendFailed, err)
	}

	return nil
}
