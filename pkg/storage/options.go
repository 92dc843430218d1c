package storage

// Option configures Put operations.
type Option func(*putOptions)

type putOptions struct {
	contentType string
	metadata    map[string]string
}

// WithContentType sets the object's content type.
// Without it the type is detected from the first bytes of the body.
func WithContentType(ct string) Option {
	return func(o *putOptions) {
		o.contentType = ct
	}
}

// WithMetadata attaches user metadata to the object.
func WithMetadata(md map[string]string) Option {
	return func(o *putOptions) {
		o.metadata = md
	}
}
