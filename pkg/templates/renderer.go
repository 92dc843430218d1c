// Package templates renders named document and message templates by filling
// {placeholder} markers with caller-supplied values.
package templates

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Fields maps placeholder names to values.
type Fields map[string]string

// Inliner embeds remote images found in a markup fragment.
type Inliner interface {
	Inline(ctx context.Context, fragment string) string
}

// Renderer loads templates from a filesystem and fills their placeholders.
// Parsed templates are cached; rendered output never is.
type Renderer struct {
	fs      fs.FS
	md      goldmark.Markdown
	inliner Inliner

	cache map[string]*cachedTemplate
	dir   string

	mu sync.RWMutex
}

type cachedTemplate struct {
	meta *Template
	body *compiled
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithInliner sets the image inliner applied to fields containing <img tags.
func WithInliner(in Inliner) Option {
	return func(r *Renderer) {
		r.inliner = in
	}
}

// WithDir sets the directory inside the filesystem that holds templates.
func WithDir(dir string) Option {
	return func(r *Renderer) {
		if dir != "" {
			r.dir = dir
		}
	}
}

// NewRenderer creates a renderer reading templates from filesystem.
func NewRenderer(filesystem fs.FS, opts ...Option) *Renderer {
	r := &Renderer{
		fs:    filesystem,
		md:    goldmark.New(goldmark.WithExtensions(extension.Table)),
		cache: make(map[string]*cachedTemplate),
		dir:   ".",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Result is a rendered template.
type Result struct {
	Metadata map[string]any
	HTML     string
	Text     string // substituted template text, before markdown conversion
}

// Render fills the named template with fields.
//
// Fields whose value contains an <img tag are passed through the inliner first.
// Markdown templates (.md) are converted to HTML and, when their front matter
// names a layout, wrapped in that layout's {content} placeholder.
func (r *Renderer) Render(ctx context.Context, name string, fields Fields) (*Result, error) {
	tmpl, err := r.load(name)
	if err != nil {
		return nil, err
	}

	values := r.prepare(ctx, fields)

	text, err := tmpl.body.execute(values)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	if !isMarkdown(name) {
		return &Result{HTML: text, Text: text, Metadata: tmpl.meta.Metadata}, nil
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(text), &buf); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRenderFailed, name, err)
	}
	content := buf.String()

	if layoutName, ok := tmpl.meta.String("layout"); ok && layoutName != "" {
		layout, err := r.load(layoutName)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLayoutNotFound, layoutName, err)
		}
		layoutValues := make(map[string]string, len(values)+1)
		for k, v := range values {
			layoutValues[k] = v
		}
		layoutValues["content"] = content
		if content, err = layout.body.execute(layoutValues); err != nil {
			return nil, fmt.Errorf("%s: %w", layoutName, err)
		}
	}

	return &Result{HTML: content, Text: text, Metadata: tmpl.meta.Metadata}, nil
}

// Exists reports whether the named template can be loaded.
func (r *Renderer) Exists(name string) error {
	_, err := r.load(name)
	return err
}

func (r *Renderer) prepare(ctx context.Context, fields Fields) map[string]string {
	values := make(map[string]string, len(fields))
	for k, v := range fields {
		if r.inliner != nil && strings.Contains(strings.ToLower(v), "<img") {
			v = r.inliner.Inline(ctx, v)
		}
		values[k] = v
	}
	return values
}

// load returns a cached template or reads, parses, and caches it.
func (r *Renderer) load(name string) (*cachedTemplate, error) {
	r.mu.RLock()
	if cached, ok := r.cache[name]; ok {
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.cache[name]; ok {
		return cached, nil
	}

	content, err := fs.ReadFile(r.fs, path.Join(r.dir, name))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateNotFound, name, err)
	}

	parsed, err := ParseTemplate(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	cached := &cachedTemplate{meta: parsed, body: compile(parsed.Body)}
	r.cache[name] = cached
	return cached, nil
}

func isMarkdown(name string) bool {
	return strings.EqualFold(path.Ext(name), ".md")
}
