package mailer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".doc":  "application/msword",
	".docx": "application/msword",
}

// ContentTypeByExtension returns the MIME type for a file name's extension.
// Unknown extensions map to application/octet-stream.
func ContentTypeByExtension(name string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// AttachFile reads path into an Attachment named after its base name.
func AttachFile(path string) (Attachment, error) {
	return AttachFileAs(path, ContentTypeByExtension(path))
}

// AttachFileAs reads path into an Attachment with an explicit content type.
func AttachFileAs(path, contentType string) (Attachment, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("%w: %v", ErrAttachment, err)
	}
	return Attachment{
		Filename:    filepath.Base(path),
		ContentType: contentType,
		Content:     content,
	}, nil
}
