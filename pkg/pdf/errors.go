package pdf

import "errors"

var (
	ErrEmptyDocument = errors.New("pdf: empty document")
	ErrRenderFailed  = errors.New("pdf: failed to render document")
	ErrInvalidPDF    = errors.New("pdf: produced document is not a valid pdf")
	ErrWriteFailed   = errors.New("pdf: failed to write document")
	ErrEngineClosed  = errors.New("pdf: engine closed")
)
