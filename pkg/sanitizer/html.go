// Package sanitizer cleans user-supplied HTML before it is rendered into documents.
package sanitizer

import (
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy *bluemonday.Policy
	notesPolicy  *bluemonday.Policy
	initOnce     sync.Once
)

func initPolicies() {
	initOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()

		// Rich-text notes: UGC formatting, tables, remote and data URI images,
		// and the handful of inline styles editors emit for alignment.
		notesPolicy = bluemonday.UGCPolicy()
		notesPolicy.AllowDataURIImages()
		notesPolicy.AllowStyles("text-align", "font-weight", "font-style", "text-decoration", "color").Globally()
	})
}

// StripHTML removes all markup and returns escaped plain text.
func StripHTML(s string) string {
	initPolicies()
	return strictPolicy.Sanitize(s)
}

// SanitizeNotes keeps safe rich-text formatting and images, and removes scripts,
// event handlers, and javascript: URLs.
func SanitizeNotes(s string) string {
	initPolicies()
	return notesPolicy.Sanitize(s)
}

var (
	paragraphOpen  = regexp.MustCompile(`(?i)<p\b[^>]*>`)
	paragraphClose = regexp.MustCompile(`(?i)</p\s*>`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
)

// StripParagraphs removes every <p> and </p> tag, keeping all other markup,
// then collapses whitespace runs to a single space and trims the result.
func StripParagraphs(s string) string {
	if s == "" {
		return s
	}
	s = paragraphOpen.ReplaceAllString(s, "")
	s = paragraphClose.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Notes prepares a rich-text notes field for the document body:
// sanitize first, then flatten paragraphs.
func Notes(s string) string {
	return StripParagraphs(SanitizeNotes(s))
}
