package documents

import "time"

// Document is the persisted record of one uploaded file and its latest analysis.
type Document struct {
	ID            string
	StorageKey    string
	OriginalName  string
	MimeType      string
	SizeBytes     int64
	Checksum      string
	ExtractedText string
	// Summary, DocumentType and Metadata stay nil until the first analysis.
	Summary      *string
	DocumentType *string
	Metadata     map[string]any
	Analyzed     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AnalysisResult is returned by Service.Analyze.
type AnalysisResult struct {
	DocumentID   string
	Summary      string
	DocumentType string
	Metadata     map[string]any
	Fallback     bool
	AnalyzedAt   time.Time
}

// DownloadLink is a time-limited URL for the stored file.
type DownloadLink struct {
	DocumentID string
	URL        string
	ExpiresAt  time.Time
}

// clone returns a copy that shares no mutable state with doc.
func (doc Document) clone() Document {
	out := doc
	if doc.Summary != nil {
		s := *doc.Summary
		out.Summary = &s
	}
	if doc.DocumentType != nil {
		t := *doc.DocumentType
		out.DocumentType = &t
	}
	if doc.Metadata != nil {
		out.Metadata = make(map[string]any, len(doc.Metadata))
		for k, v := range doc.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
