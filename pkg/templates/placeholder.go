package templates

import (
	"fmt"
	"strings"
)

// segment is either literal text or a placeholder name.
type segment struct {
	text        string
	placeholder bool
}

// compiled is a template body split into literal and placeholder segments.
type compiled struct {
	segments []segment
	names    []string // unique placeholder names, in order of first use
}

// compile parses {name} placeholders. "{{" and "}}" are literal braces, and a
// brace that does not open a valid name is kept as text.
func compile(body string) *compiled {
	c := &compiled{}
	seen := make(map[string]struct{})

	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			c.segments = append(c.segments, segment{text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(body); i++ {
		ch := body[i]
		switch {
		case ch == '{' && i+1 < len(body) && body[i+1] == '{':
			lit.WriteByte('{')
			i++
		case ch == '}' && i+1 < len(body) && body[i+1] == '}':
			lit.WriteByte('}')
			i++
		case ch == '{':
			end := strings.IndexByte(body[i+1:], '}')
			if end < 0 || !isName(body[i+1:i+1+end]) {
				lit.WriteByte(ch)
				continue
			}
			name := body[i+1 : i+1+end]
			flush()
			c.segments = append(c.segments, segment{text: name, placeholder: true})
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				c.names = append(c.names, name)
			}
			i += end + 1
		default:
			lit.WriteByte(ch)
		}
	}
	flush()

	return c
}

// execute substitutes fields. Every referenced placeholder must be present.
func (c *compiled) execute(fields map[string]string) (string, error) {
	var missing []string
	for _, name := range c.names {
		if _, ok := fields[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingPlaceholder, strings.Join(missing, ", "))
	}

	var b strings.Builder
	for _, s := range c.segments {
		if s.placeholder {
			b.WriteString(fields[s.text])
		} else {
			b.WriteString(s.text)
		}
	}
	return b.String(), nil
}

func isName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '_', ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z':
		case ch >= '0' && ch <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
