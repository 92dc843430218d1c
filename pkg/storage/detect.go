package storage

import (
	"bytes"
	"io"
	"net/http"
)

// sniffLen is the number of bytes http.DetectContentType inspects.
const sniffLen = 512

// bufferBody reads r fully and returns a seekable body with its content type.
// An explicit content type wins over detection.
func bufferBody(r io.Reader, contentType string) (*bytes.Reader, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", err
	}
	if contentType == "" {
		contentType = http.DetectContentType(data[:min(len(data), sniffLen)])
	}
	return bytes.NewReader(data), contentType, nil
}
