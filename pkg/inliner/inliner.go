// Package inliner replaces remote image references in HTML fragments with
// self-contained data URIs so rendered documents do not depend on the network.
package inliner

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/letterdesk/approvals/pkg/logger"
)

// Defaults for remote image fetching.
const (
	DefaultTimeout     = 20 * time.Second
	DefaultMaxSize     = 10 << 20 // 10MB
	DefaultContentType = "image/png"
	DefaultUserAgent   = "Mozilla/5.0"
)

var (
	// ErrFetchFailed indicates the image could not be downloaded.
	ErrFetchFailed = errors.New("inliner: image fetch failed")

	// ErrTooLarge indicates the image exceeded the configured size limit.
	ErrTooLarge = errors.New("inliner: image exceeds size limit")
)

// srcAttr matches the src attribute inside a raw img tag. The leading
// whitespace keeps data-src and similar attributes from matching.
var srcAttr = regexp.MustCompile(`(?is)(\ssrc\s*=\s*)("[^"]*"|'[^']*'|[^\s"'>]+)`)

// Inliner fetches remote images and embeds them as data URIs.
// It is safe for concurrent use.
type Inliner struct {
	client    *http.Client
	logger    *slog.Logger
	userAgent string
	timeout   time.Duration
	maxSize   int64
}

// Option configures an Inliner.
type Option func(*Inliner)

// WithTimeout sets the per-image fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(i *Inliner) {
		if d > 0 {
			i.timeout = d
		}
	}
}

// WithMaxSize limits the size of a single downloaded image.
func WithMaxSize(n int64) Option {
	return func(i *Inliner) {
		if n > 0 {
			i.maxSize = n
		}
	}
}

// WithHTTPClient sets the HTTP client used for fetching.
func WithHTTPClient(c *http.Client) Option {
	return func(i *Inliner) {
		if c != nil {
			i.client = c
		}
	}
}

// WithLogger sets the logger used to report fetch failures.
func WithLogger(l *slog.Logger) Option {
	return func(i *Inliner) {
		if l != nil {
			i.logger = l
		}
	}
}

// New creates an Inliner with defaults modified by opts.
func New(opts ...Option) *Inliner {
	i := &Inliner{
		client:    &http.Client{},
		logger:    logger.NewNope(),
		userAgent: DefaultUserAgent,
		timeout:   DefaultTimeout,
		maxSize:   DefaultMaxSize,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// ContainsImage reports whether s contains an img open tag (case-insensitive).
func ContainsImage(s string) bool {
	return strings.Contains(strings.ToLower(s), "<img")
}

// Inline returns fragment with every http(s) image source replaced by a data URI.
// Failed fetches keep the original URL and are logged; Inline never fails.
// Bytes outside the rewritten src attribute values are preserved verbatim.
func (i *Inliner) Inline(ctx context.Context, fragment string) string {
	if !ContainsImage(fragment) {
		return fragment
	}

	var out strings.Builder
	out.Grow(len(fragment))

	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// io.EOF: Raw holds any trailing unparsed bytes.
			out.Write(z.Raw())
			break
		}

		raw := string(z.Raw())
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			out.WriteString(raw)
			continue
		}

		tok := z.Token()
		if tok.DataAtom != atom.Img {
			out.WriteString(raw)
			continue
		}

		out.WriteString(i.rewrite(ctx, raw, tok))
	}

	return out.String()
}

// rewrite swaps the src value of a single raw img tag.
func (i *Inliner) rewrite(ctx context.Context, raw string, tok html.Token) string {
	src := ""
	for _, a := range tok.Attr {
		if a.Key == "src" {
			src = strings.TrimSpace(a.Val)
			break
		}
	}
	if !isRemote(src) {
		return raw
	}

	dataURI, err := i.fetch(ctx, src)
	if err != nil {
		i.logger.WarnContext(ctx, "image inlining failed, keeping original URL",
			slog.String("url", src),
			slog.String("error", err.Error()),
		)
		return raw
	}

	// loc[4]:loc[5] is the quoted (or bare) attribute value. The first match whose
	// value decodes to src wins, so text such as alt="a src=b" is skipped.
	for _, loc := range srcAttr.FindAllStringSubmatchIndex(raw, -1) {
		val := strings.Trim(raw[loc[4]:loc[5]], `"'`)
		if strings.TrimSpace(html.UnescapeString(val)) != src {
			continue
		}
		return raw[:loc[4]] + `"` + dataURI + `"` + raw[loc[5]:]
	}
	return raw
}

// fetch downloads url and encodes it as a data URI.
func (i *Inliner) fetch(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", i.userAgent)

	resp, err := i.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)
	}
	if resp.ContentLength > i.maxSize {
		return "", ErrTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, i.maxSize+1))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if int64(len(data)) > i.maxSize {
		return "", ErrTooLarge
	}

	contentType := strings.TrimSpace(resp.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = DefaultContentType
	}

	var b bytes.Buffer
	b.Grow(len("data:;base64,") + len(contentType) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(contentType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String(), nil
}

func isRemote(src string) bool {
	lower := strings.ToLower(src)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
