package documents

import "errors"

var (
	ErrNoFile          = errors.New("file is required")
	ErrTooLarge        = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrNoText          = errors.New("no text could be extracted from the document")
	ErrNotFound        = errors.New("document not found")
	ErrInvalidInput    = errors.New("invalid input")
	// ErrAnalysisFailed wraps generation-service faults; the record is left unchanged.
	ErrAnalysisFailed   = errors.New("analysis failed")
	ErrQueueUnavailable = errors.New("analysis queue not configured")
)
