// Package mailer provides a provider-independent email interface.
//
// A Sender delivers a fully prepared Email. Two providers ship with the module:
// smtp (an authenticated relay session per message, via gomail) and resend (the
// Resend HTTP API). Mailer wraps a Sender with validation and sender defaults:
//
//	sender := smtp.New(smtp.Config{Host: "smtp.example.com", Port: 587, ...})
//	m := mailer.New(sender, mailer.Config{From: "Approvals <noreply@example.com>"})
//
//	doc, err := mailer.AttachFile("/tmp/run/Memo.pdf")
//	if err != nil {
//		return err
//	}
//	err = m.Send(ctx, &mailer.Email{
//		To:          []string{"user@example.com"},
//		Subject:     "Memo - Request ID - 100 – Approved",
//		HTML:        html,
//		Attachments: []mailer.Attachment{doc},
//	})
//
// Errors are sentinel values wrapped with context; use errors.Is to check them.
package mailer
