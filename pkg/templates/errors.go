package templates

import "errors"

var (
	// ErrTemplateNotFound indicates the template file was not found.
	ErrTemplateNotFound = errors.New("templates: template not found")

	// ErrLayoutNotFound indicates the layout named in front matter was not found.
	ErrLayoutNotFound = errors.New("templates: layout not found")

	// ErrMissingPlaceholder indicates the template references a field with no value.
	ErrMissingPlaceholder = errors.New("templates: missing placeholder value")

	// ErrRenderFailed indicates template rendering failed.
	ErrRenderFailed = errors.New("templates: failed to render template")

	// ErrInvalidFrontmatter indicates invalid YAML front matter.
	ErrInvalidFrontmatter = errors.New("templates: invalid frontmatter")
)
