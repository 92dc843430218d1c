package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Storage implements Storage using S3-compatible object storage.
type S3Storage struct {
	client *s3.Client
	cfg    Config
}

// New creates a new S3Storage with the given configuration.
func New(cfg Config) (*S3Storage, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opts := []func(*s3.Options){
		func(o *s3.Options) {
			o.Region = cfg.Region
			o.Credentials = credentials.NewStaticCredentialsProvider(
				cfg.AccessKey,
				cfg.SecretKey,
				"",
			)
			// S3-compatible services reject the SDK's default trailing checksums.
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		},
	}

	if cfg.Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.PathStyle
		})
	}

	return &S3Storage{
		client: s3.New(s3.Options{}, opts...),
		cfg:    cfg,
	}, nil
}

// NewOCI creates storage for Oracle Cloud Object Storage via its S3 compatibility API.
// Namespace and Region are required; the endpoint is derived from them.
func NewOCI(cfg Config) (*S3Storage, error) {
	if cfg.Namespace == "" || cfg.Region == "" {
		return nil, fmt.Errorf("%w: oci namespace and region are required", ErrInvalidConfig)
	}
	cfg.Endpoint = OCIEndpoint(cfg.Namespace, cfg.Region)
	cfg.PathStyle = true
	return New(cfg)
}

// OCIEndpoint returns the S3 compatibility endpoint for a tenancy namespace and region.
func OCIEndpoint(namespace, region string) string {
	return fmt.Sprintf("https://%s.compat.objectstorage.%s.oraclecloud.com", namespace, region)
}

// Put uploads data from a reader to S3.
func (s *S3Storage) Put(ctx context.Context, key string, r io.Reader, size int64, opts ...Option) (*ObjectInfo, error) {
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

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		Metadata:      o.metadata,
	}
	switch s.cfg.DefaultACL {
	case ACLPublicRead:
		input.ACL = types.ObjectCannedACLPublicRead
	case ACLPrivate:
		input.ACL = types.ObjectCannedACLPrivate
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return nil, wrapS3Error(err, ErrUploadFailed)
	}

	return &ObjectInfo{
		Key:         key,
		Size:        size,
		ContentType: contentType,
	}, nil
}

// Get retrieves an object from S3.
func (s *S3Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, wrapS3Error(err, ErrNotFound)
	}

	return output.Body, nil
}

// List returns all objects under prefix, following continuation tokens.
func (s *S3Storage) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.cfg.Bucket),
		Prefix: aws.String(prefix),
	})

	var objects []ObjectInfo
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, wrapS3Error(err, ErrListFailed)
		}
		for _, obj := range page.Contents {
			info := ObjectInfo{Key: aws.ToString(obj.Key), Size: aws.ToInt64(obj.Size)}
			if obj.LastModified != nil {
				info.LastModified = *obj.LastModified
			}
			objects = append(objects, info)
		}
	}

	return objects, nil
}

// Ping checks bucket access with HeadBucket.
func (s *S3Storage) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.cfg.Bucket)})
	if err != nil {
		return wrapS3Error(err, ErrUnavailable)
	}
	return nil
}

// Bucket returns the configured bucket name.
func (s *S3Storage) Bucket() string {
	return s.cfg.Bucket
}

// String describes the backend for logs.
func (s *S3Storage) String() string {
	endpoint := s.cfg.Endpoint
	if endpoint == "" {
		endpoint = "aws"
	}
	return "s3:" + strings.TrimPrefix(endpoint, "https://") + "/" + s.cfg.Bucket
}

// Ensure S3Storage implements Storage.
var _ Storage = (*S3Storage)(nil)
