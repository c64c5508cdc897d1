package documents

import "time"

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	ID            string         `json:"id"`
	OriginalName  string         `json:"originalName"`
	MimeType      string         `json:"mimeType"`
	Size          int64          `json:"size"`
	ExtractedText string         `json:"extractedText"`
	Summary       *string        `json:"summary"`
	DocumentType  *string        `json:"documentType"`
	Metadata      map[string]any `json:"metadata"`
	Analyzed      bool           `json:"analyzed"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// AnalysisResponse is returned by the synchronous analyze endpoint.
type AnalysisResponse struct {
	Summary      string         `json:"summary"`
	DocumentType string         `json:"documentType"`
	Metadata     map[string]any `json:"metadata"`
	DocumentID   string         `json:"documentId"`
	AnalyzedAt   time.Time      `json:"analyzedAt"`
}

type ListResponse struct {
	Documents []DocumentResponse `json:"documents"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

type DownloadURLResponse struct {
	DocumentID string    `json:"documentId"`
	URL        string    `json:"url"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

type QueuedResponse struct {
	DocumentID string `json:"documentId"`
	Status     string `json:"status"`
}

func toResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		ID:            doc.ID,
		OriginalName:  doc.OriginalName,
		MimeType:      doc.MimeType,
		Size:          doc.SizeBytes,
		ExtractedText: doc.ExtractedText,
		Summary:       doc.Summary,
		DocumentType:  doc.DocumentType,
		Metadata:      doc.Metadata,
		Analyzed:      doc.Analyzed,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
}

func toAnalysisResponse(res AnalysisResult) AnalysisResponse {
	return AnalysisResponse{
		Summary:      res.Summary,
		DocumentType: res.DocumentType,
		Metadata:     res.Metadata,
		DocumentID:   res.DocumentID,
		AnalyzedAt:   res.AnalyzedAt,
	}
}
