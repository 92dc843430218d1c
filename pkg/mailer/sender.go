package mailer

import "context"

// Sender is implemented by email providers.
type Sender interface {
	// Send delivers email. To, Subject, HTML and From are set by the caller.
	Send(ctx context.Context, email *Email) error
}
