package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
)

var (
	ErrMalformedBody = errors.New("httpapi: malformed request body")
	ErrBodyTooLarge  = errors.New("httpapi: request body too large")
)

// statusBody is the envelope of every non-validation JSON response.
type statusBody struct {
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	PDFPath    string `json:"pdf_path,omitempty"`
	ArchiveKey string `json:"archive_key,omitempty"`
}

// validationBody reports rejected fields by their JSON names.
type validationBody struct {
	Status string              `json:"status"`
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, statusBody{Status: "error", Message: msg})
}

func writeValidationError(w http.ResponseWriter, err error) {
	body := validationBody{Status: "error", Error: err.Error()}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		body.Error = "validation_failed"
		body.Fields = make(map[string][]string, len(verrs))
		for _, fe := range verrs {
			body.Fields[fe.Field()] = append(body.Fields[fe.Field()], fe.Tag())
		}
	}
	writeJSON(w, http.StatusBadRequest, body)
}
