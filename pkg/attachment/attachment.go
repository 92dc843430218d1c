// Package attachment materialises a base64 payload from a request as a file.
package attachment

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var (
	ErrMissingData      = errors.New("attachment: missing data")
	ErrMissingName      = errors.New("attachment: missing name")
	ErrMissingMediaType = errors.New("attachment: missing media type")
	ErrDecode           = errors.New("attachment: invalid base64 data")
	ErrWrite            = errors.New("attachment: failed to write file")
	ErrExists           = errors.New("attachment: file already exists")
)

// fallbackExtension is used when a media type has no subtype.
const fallbackExtension = "bin"

// Payload is an encoded file supplied by the caller.
type Payload struct {
	Data      string // base64, standard alphabet
	MediaType string // type/subtype, parameters allowed
	Name      string // base name, with or without extension
}

// Empty reports whether no part of the payload was supplied.
func (p Payload) Empty() bool {
	return p.Data == "" && p.MediaType == "" && p.Name == ""
}

// Build decodes p and writes it under dir. It returns the written path.
func Build(dir string, p Payload) (string, error) {
	if strings.TrimSpace(p.Data) == "" {
		return "", ErrMissingData
	}
	if strings.TrimSpace(p.MediaType) == "" {
		return "", ErrMissingMediaType
	}

	name := FileName(p.Name, p.MediaType)
	if name == "" {
		return "", ErrMissingName
	}

	data, err := decode(p.Data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}

	out := filepath.Join(dir, name)
	if err := writeNew(out, data); err != nil {
		return "", err
	}
	return out, nil
}

// writeNew creates path and fails with ErrExists instead of replacing a file.
func writeNew(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrExists, filepath.Base(path))
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

// ExtensionFor returns the lowercased subtype of mediaType, without parameters.
// A media type without a slash yields "bin".
func ExtensionFor(mediaType string) string {
	mt, _, _ := strings.Cut(mediaType, ";")
	_, sub, ok := strings.Cut(strings.TrimSpace(mt), "/")
	sub = strings.ToLower(strings.TrimSpace(sub))
	if !ok || sub == "" {
		return fallbackExtension
	}
	return sub
}

// FileName returns the base name of name with the media type extension appended,
// unless name already ends with it. It returns "" when no usable name remains.
func FileName(name, mediaType string) string {
	base := baseName(name)
	if base == "" {
		return ""
	}
	ext := "." + ExtensionFor(mediaType)
	if strings.HasSuffix(strings.ToLower(base), ext) {
		return base
	}
	return base + ext
}

func baseName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	if name == "" {
		return ""
	}
	base := path.Base(name)
	if base == "." || base == "/" || base == ".." {
		return ""
	}
	return base
}

// decode accepts standard base64 with or without padding and ignores line breaks.
func decode(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, s)
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
