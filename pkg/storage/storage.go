package storage

import (
	"context"
	"io"
	"time"
)

// Storage defines the object storage operations used by the service.
type Storage interface {
	// Put uploads size bytes from r under key, replacing any existing object.
	Put(ctx context.Context, key string, r io.Reader, size int64, opts ...Option) (*ObjectInfo, error)

	// Get opens an object for reading. The caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// List returns the objects whose keys start with prefix, in listing order.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Ping checks that the bucket is reachable with the configured credentials.
	Ping(ctx context.Context) error
}

// Config holds S3-compatible storage configuration.
type Config struct {
	// Bucket is the bucket name (required).
	Bucket string `env:"STORAGE_BUCKET"`

	// AccessKey is the access key ID (required).
	AccessKey string `env:"STORAGE_ACCESS_KEY"`

	// SecretKey is the secret access key (required).
	SecretKey string `env:"STORAGE_SECRET_KEY"`

	// Endpoint is a custom endpoint URL (MinIO and other S3-compatible services).
	Endpoint string `env:"STORAGE_ENDPOINT"`

	// Region is the region (default: us-east-1).
	Region string `env:"STORAGE_REGION"`

	// Namespace is the Oracle Cloud tenancy namespace, used by NewOCI.
	Namespace string `env:"STORAGE_NAMESPACE"`

	// DefaultACL is sent with every upload when set.
	DefaultACL ACL `env:"STORAGE_DEFAULT_ACL"`

	// PathStyle enables path-style addressing (required for MinIO and OCI).
	PathStyle bool `env:"STORAGE_PATH_STYLE"`
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	ContentType  string
	Size         int64
	LastModified time.Time
}

// ACL represents access control levels for stored objects.
type ACL string

const (
	// ACLPrivate makes the object accessible only with credentials.
	ACLPrivate ACL = "private"

	// ACLPublicRead makes the object publicly readable.
	ACLPublicRead ACL = "public-read"
)

// DefaultRegion is used when Config.Region is empty.
const DefaultRegion = "us-east-1"

// applyDefaults fills in default values for empty config fields.
func (c *Config) applyDefaults() {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
}

// validate checks that required configuration fields are set.
func (c *Config) validate() error {
	if c.Bucket == "" || c.AccessKey == "" || c.SecretKey == "" {
		return ErrInvalidConfig
	}
	return nil
}
