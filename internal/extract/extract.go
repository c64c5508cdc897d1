package extract

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned when Extract is called with a format outside the closed set.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ExtractionError wraps a parser failure for a specific format.
type ExtractionError struct {
	Format Format
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("extract %s text", e.Format)
	}
	return fmt.Sprintf("extract %s text: %s", e.Format, e.Err.Error())
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Extract turns raw document bytes into plain text. Empty output is not an
// error here; callers decide whether an empty document is acceptable.
func Extract(ctx context.Context, data []byte, format Format) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var (
		text string
		err  error
	)
	switch format {
	case FormatPDF:
		text, err = extractPDF(data)
	case FormatDOCX:
		text, err = extractDOCX(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return "", &ExtractionError{Format: format, Err: err}
	}
	return text, nil
}

// ExtractMime is Extract keyed by a declared MIME type.
func ExtractMime(ctx context.Context, data []byte, mimeType string) (string, error) {
	format, ok := ParseFormat(mimeType)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
	}
	return Extract(ctx, data, format)
}
