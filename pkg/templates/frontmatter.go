package templates

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

var fence = []byte("---")

// Template is a template file split into front matter and body.
type Template struct {
	Metadata map[string]any
	Body     string
}

// ParseTemplate splits optional YAML front matter from the body. Front matter
// starts on the first line with "---" and ends at the next line that is
// exactly "---". Files without an opening fence are all body.
func ParseTemplate(content []byte) (*Template, error) {
	tmpl := &Template{Metadata: make(map[string]any)}

	first, rest, _ := cutLine(content)
	if !bytes.Equal(first, fence) {
		tmpl.Body = string(content)
		return tmpl, nil
	}

	var header [][]byte
	for {
		var line []byte
		var ok bool
		line, rest, ok = cutLine(rest)
		if bytes.Equal(line, fence) {
			break
		}
		if !ok {
			return nil, fmt.Errorf("%w: closing delimiter not found", ErrInvalidFrontmatter)
		}
		header = append(header, line)
	}

	if raw := bytes.Join(header, []byte("\n")); len(bytes.TrimSpace(raw)) > 0 {
		if err := yaml.Unmarshal(raw, &tmpl.Metadata); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFrontmatter, err)
		}
	}
	tmpl.Body = string(rest)
	return tmpl, nil
}

// cutLine returns the first line of b without its terminator (LF or CRLF)
// and the remainder. ok is false when b held no line terminator.
func cutLine(b []byte) (line, rest []byte, ok bool) {
	line, rest, ok = bytes.Cut(b, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r")), rest, ok
}

// String returns the metadata value for key when it is a string.
func (t *Template) String(key string) (string, bool) {
	v, ok := t.Metadata[key].(string)
	return v, ok
}
