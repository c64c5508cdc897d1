package extract

import (
	"path/filepath"
	"strings"
)

// Format is the closed set of document formats the extractor understands.
type Format int

const (
	FormatUnknown Format = iota
	FormatPDF
	FormatDOCX
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Formats lists every supported format.
var Formats = []Format{FormatPDF, FormatDOCX}

func (f Format) String() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatDOCX:
		return "docx"
	default:
		return "unknown"
	}
}

// MimeType returns the canonical MIME type for the format.
func (f Format) MimeType() string {
	switch f {
	case FormatPDF:
		return MimePDF
	case FormatDOCX:
		return MimeDOCX
	default:
		return ""
	}
}

// ParseFormat maps a declared MIME type onto a Format. Parameters such as
// "; charset=..." are ignored.
func ParseFormat(mimeType string) (Format, bool) {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	switch clean {
	case MimePDF:
		return FormatPDF, true
	case MimeDOCX:
		return FormatDOCX, true
	default:
		return FormatUnknown, false
	}
}

// MimeTypeFromFileName guesses a supported MIME type from the file extension.
// It returns "" for anything else.
func MimeTypeFromFileName(name string) string {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(name))) {
	case ".pdf":
		return MimePDF
	case ".docx":
		return MimeDOCX
	default:
		return ""
	}
}
