// Package config loads service configuration from the environment and an
// optional secrets file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/letterdesk/approvals/pkg/logger"
	"github.com/letterdesk/approvals/pkg/mailer"
	"github.com/letterdesk/approvals/pkg/mailer/resend"
	"github.com/letterdesk/approvals/pkg/mailer/smtp"
	"github.com/letterdesk/approvals/pkg/storage"
)

var (
	ErrParse         = errors.New("config: failed to parse environment")
	ErrInvalid       = errors.New("config: invalid value")
	ErrSecretsFile   = errors.New("config: failed to read secrets file")
	ErrSecretsFormat = errors.New("config: malformed secrets file")
)

// Storage providers.
const (
	StorageS3  = "s3"
	StorageOCI = "oci"
	StorageGCS = "gcs"
)

// Mail providers.
const (
	MailSMTP   = "smtp"
	MailResend = "resend"
)

// Chrome configures the headless browser used for PDF rendering.
type Chrome struct {
	ControlURL    string        `env:"CHROME_URL"`
	Bin           string        `env:"CHROME_BIN"`
	NoSandbox     bool          `env:"CHROME_NO_SANDBOX" envDefault:"true"`
	RenderTimeout time.Duration `env:"CHROME_RENDER_TIMEOUT" envDefault:"60s"`
}

// Config is the full service configuration.
type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	TemplateDir  string        `env:"TEMPLATE_DIR"` // embedded templates when empty
	WorkDir      string        `env:"WORK_DIR"`     // see Workspace
	ImageTimeout time.Duration `env:"IMAGE_FETCH_TIMEOUT" envDefault:"20s"`
	SecretsFile  string        `env:"SECRETS_FILE"`

	// Stale workspace sweep.
	JanitorSchedule string        `env:"JANITOR_SCHEDULE" envDefault:"*/30 * * * *"`
	JanitorMaxAge   time.Duration `env:"JANITOR_MAX_AGE" envDefault:"1h"`

	MailProvider    string `env:"MAIL_PROVIDER" envDefault:"smtp"`
	StorageProvider string `env:"STORAGE_PROVIDER" envDefault:"oci"`
	StorageFolder   string `env:"STORAGE_FOLDER" envDefault:"approval-letters"`

	Chrome  Chrome
	Logger  logger.Config
	Mailer  mailer.Config
	SMTP    smtp.Config
	Resend  resend.Config
	Storage storage.Config
	GCS     storage.GCSConfig

	secretsErr error
}

// Load reads an optional .env file, parses the process environment and applies
// the secrets file when SECRETS_FILE is set.
//
// An unreadable or malformed secrets file does not fail Load: credentials stay
// as the environment set them and the failure is reported by SecretsError.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := parse(env.Options{})
	if err != nil {
		return nil, err
	}
	cfg.secretsErr = cfg.loadSecrets()
	return cfg, nil
}

// LoadFrom is Load over an explicit environment, without touching .env files.
func LoadFrom(environ map[string]string) (*Config, error) {
	cfg, err := parse(env.Options{Environment: environ})
	if err != nil {
		return nil, err
	}
	cfg.secretsErr = cfg.loadSecrets()
	return cfg, nil
}

// SecretsError returns the error met reading SECRETS_FILE, if any.
// Capabilities whose credentials are then missing disable themselves.
func (c *Config) SecretsError() error {
	return c.secretsErr
}

// Workspace returns the directory holding per-run workspaces: WORK_DIR, or an
// "approvald" directory under os.TempDir. The janitor sweeps only this directory.
func (c *Config) Workspace() string {
	if c.WorkDir != "" {
		return c.WorkDir
	}
	return filepath.Join(os.TempDir(), "approvald")
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	cfg.MailProvider = strings.ToLower(strings.TrimSpace(cfg.MailProvider))
	cfg.StorageProvider = strings.ToLower(strings.TrimSpace(cfg.StorageProvider))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that no capability can degrade around.
// Missing credentials are not errors here; the affected capability is
// disabled at startup instead.
func (c *Config) Validate() error {
	switch c.MailProvider {
	case MailSMTP, MailResend:
	default:
		return fmt.Errorf("%w: MAIL_PROVIDER %q", ErrInvalid, c.MailProvider)
	}
	switch c.StorageProvider {
	case StorageS3, StorageOCI, StorageGCS:
	default:
		return fmt.Errorf("%w: STORAGE_PROVIDER %q", ErrInvalid, c.StorageProvider)
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("%w: HTTP_ADDR is empty", ErrInvalid)
	}
	return nil
}

func (c *Config) loadSecrets() error {
	if c.SecretsFile == "" {
		return nil
	}
	s, err := ReadSecrets(c.SecretsFile)
	if err != nil {
		return err
	}
	c.ApplySecrets(s)
	return nil
}

// Secrets are credentials kept out of the environment.
type Secrets struct {
	SMTPUsername     string `yaml:"smtp_username"`
	SMTPPassword     string `yaml:"smtp_password"`
	ResendAPIKey     string `yaml:"resend_api_key"`
	StorageAccessKey string `yaml:"storage_access_key"`
	StorageSecretKey string `yaml:"storage_secret_key"`
}

// ReadSecrets parses a YAML secrets file.
func ReadSecrets(path string) (Secrets, error) {
	var s Secrets
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("%w: %v", ErrSecretsFile, err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("%w: %v", ErrSecretsFormat, err)
	}
	return s, nil
}

// ApplySecrets overrides credentials with the non-empty values of s.
// Values already taken from the environment stay when s leaves them empty.
func (c *Config) ApplySecrets(s Secrets) {
	override(&c.SMTP.Username, s.SMTPUsername)
	override(&c.SMTP.Password, s.SMTPPassword)
	override(&c.Resend.APIKey, s.ResendAPIKey)
	override(&c.Storage.AccessKey, s.StorageAccessKey)
	override(&c.Storage.SecretKey, s.StorageSecretKey)
}

func override(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// Sender returns the From address for notifications, falling back to the
// provider-specific sender when MAIL_FROM is unset.
func (c *Config) Sender() string {
	if c.Mailer.From != "" {
		return c.Mailer.From
	}
	if c.MailProvider == MailResend && c.Resend.SenderEmail != "" {
		return mailer.Recipient(c.Resend.SenderName, c.Resend.SenderEmail)
	}
	return c.SMTP.Username
}
