package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSConfig holds Google Cloud Storage configuration.
type GCSConfig struct {
	// Bucket is the bucket name (required).
	Bucket string `env:"GCS_BUCKET"`

	// CredentialsFile is a service account key file. Application default
	// credentials are used when empty.
	CredentialsFile string `env:"GCS_CREDENTIALS_FILE"`

	// Endpoint overrides the API endpoint (emulators).
	Endpoint string `env:"GCS_ENDPOINT"`
}

// GCSStorage implements Storage using Google Cloud Storage.
type GCSStorage struct {
	client *gcs.Client
	bucket *gcs.BucketHandle
	cfg    GCSConfig
}

// NewGCS creates a Cloud Storage client for cfg.Bucket.
func NewGCS(ctx context.Context, cfg GCSConfig) (*GCSStorage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: gcs bucket is required", ErrInvalidConfig)
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &GCSStorage{
		client: client,
		bucket: client.Bucket(cfg.Bucket),
		cfg:    cfg,
	}, nil
}

// Put uploads data to Cloud Storage.
func (s *GCSStorage) Put(ctx context.Context, key string, r io.Reader, size int64, opts ...Option) (*ObjectInfo, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: empty key", ErrUploadFailed)
	}

	o := &putOptions{}
	for _, opt := range opts {
		opt(o)
	}

	body, contentType, err := bufferBody(r, o.contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: read input: %v", ErrUploadFailed, err)
	}

	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = o.metadata

	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return nil, wrapGCSError(err, ErrUploadFailed)
	}
	if err := w.Close(); err != nil {
		return nil, wrapGCSError(err, ErrUploadFailed)
	}

	return &ObjectInfo{Key: key, Size: size, ContentType: contentType}, nil
}

// Get opens an object for reading.
func (s *GCSStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := s.bucket.Object(key).NewReader(ctx)
	if err != nil {
		return nil, wrapGCSError(err, ErrNotFound)
	}
	return rc, nil
}

// List returns objects whose names start with prefix.
func (s *GCSStorage) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	it := s.bucket.Objects(ctx, &gcs.Query{Prefix: prefix})

	var objects []ObjectInfo
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, wrapGCSError(err, ErrListFailed)
		}
		objects = append(objects, ObjectInfo{
			Key:          attrs.Name,
			ContentType:  attrs.ContentType,
			Size:         attrs.Size,
			LastModified: attrs.Updated,
		})
	}
	return objects, nil
}

// Ping reads the bucket attributes.
func (s *GCSStorage) Ping(ctx context.Context) error {
	if _, err := s.bucket.Attrs(ctx); err != nil {
		return wrapGCSError(err, ErrUnavailable)
	}
	return nil
}

// Close releases the underlying client.
func (s *GCSStorage) Close() error {
	return s.client.Close()
}

// String describes the backend for logs.
func (s *GCSStorage) String() string {
	return "gcs:" + s.cfg.Bucket
}

var _ Storage = (*GCSStorage)(nil)
