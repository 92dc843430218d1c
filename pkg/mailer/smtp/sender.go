// Package smtp implements mailer.Sender over an authenticated SMTP relay.
//
// Every Send opens a session, upgrades it with STARTTLS when the server offers it,
// delivers one message, and closes the session. Connections are not pooled.
package smtp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/go-gomail/gomail"

	"github.com/letterdesk/approvals/pkg/mailer"
)

// ErrNotConfigured indicates the relay host is not set.
var ErrNotConfigured = errors.New("smtp: relay host not configured")

// dialer abstracts gomail.Dialer for tests.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Sender implements mailer.Sender using an SMTP relay.
type Sender struct {
	config Config
	dial   func(Config) dialer
}

// New creates a new SMTP sender.
func New(cfg Config) *Sender {
	return &Sender{
		config: cfg,
		dial: func(c Config) dialer {
			return gomail.NewDialer(c.Host, c.Port, c.Username, c.Password)
		},
	}
}

// Send implements mailer.Sender.
func (s *Sender) Send(ctx context.Context, email *mailer.Email) error {
	if s.config.Host == "" {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildMessage(email)

	done := make(chan error, 1)
	go func() {
		done <- s.dial(s.config).DialAndSend(msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp: failed to send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ping checks that the relay accepts TCP connections.
func (s *Sender) Ping(ctx context.Context) error {
	if s.config.Host == "" {
		return ErrNotConfigured
	}
	timeout := s.config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port)))
	if err != nil {
		return fmt.Errorf("smtp: relay unreachable: %w", err)
	}
	return conn.Close()
}

func buildMessage(email *mailer.Email) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", email.From)
	msg.SetHeader("To", email.To...)
	if len(email.CC) > 0 {
		msg.SetHeader("Cc", email.CC...)
	}
	if len(email.BCC) > 0 {
		msg.SetHeader("Bcc", email.BCC...)
	}
	if email.ReplyTo != "" {
		msg.SetHeader("Reply-To", email.ReplyTo)
	}
	for k, v := range email.Headers {
		msg.SetHeader(k, v)
	}
	msg.SetHeader("Subject", email.Subject)

	if email.Text != "" {
		msg.SetBody("text/plain", email.Text)
		msg.AddAlternative("text/html", email.HTML)
	} else {
		msg.SetBody("text/html", email.HTML)
	}

	for _, a := range email.Attachments {
		content := a.Content
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := io.Copy(w, bytes.NewReader(content))
				return err
			}),
		}
		if a.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{
				"Content-Type": {a.ContentType},
			}))
		}
		msg.Attach(a.Filename, settings...)
	}

	return msg
}
