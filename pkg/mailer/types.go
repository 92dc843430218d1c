package mailer

import "fmt"

// Tags label a message as name/value pairs for providers that support it.
type Tags map[string]string

// Recipient formats "Name <email>", or just email when name is empty.
func Recipient(name, email string) string {
	if name == "" {
		return email
	}
	return fmt.Sprintf("%s <%s>", name, email)
}

// Email is a message ready for delivery.
type Email struct {
	Headers     map[string]string
	Tags        Tags
	Subject     string
	HTML        string
	Text        string // plain-text alternative
	From        string
	ReplyTo     string
	To          []string
	CC          []string
	BCC         []string
	Attachments []Attachment
}

// Attachment is a file sent with an Email.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}
