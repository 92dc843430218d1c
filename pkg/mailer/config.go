package mailer

// DefaultFallbackText is the plain-text part sent with HTML-only messages.
const DefaultFallbackText = "This email contains HTML content. Please view in an HTML-compatible email client."

// Config holds mailer configuration.
// Embed this in your app config for env parsing with caarlos0/env.
type Config struct {
	From         string `env:"MAIL_FROM"`
	FallbackText string `env:"MAIL_FALLBACK_TEXT" envDefault:"This email contains HTML content. Please view in an HTML-compatible email client."`
}
