package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"docsum-backend/internal/analysis"
	"docsum-backend/internal/extract"
	"docsum-backend/internal/queue"
	"docsum-backend/internal/shared/metrics"
	"docsum-backend/internal/shared/storage/object"
	"docsum-backend/internal/shared/telemetry"
	"docsum-backend/internal/shared/util"
)

const (
	DefaultMaxUploadBytes = 5 << 20
	DefaultListLimit      = 20
	MaxListLimit          = 100
)

// Analyzer produces an analysis outcome for extracted text.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (analysis.Outcome, error)
}

// UploadInput describes one submitted file.
type UploadInput struct {
	Data     []byte
	MimeType string
	FileName string
	// Size is the client-declared size; len(Data) is used when it is zero.
	Size int64
}

// Service runs the document pipeline: validate, extract, store, persist, analyze.
type Service struct {
	Store          object.ObjectStore
	Repo           DocumentsRepo
	Analyzer       Analyzer
	Queue          queue.Client
	MaxUploadBytes int64
	PresignTTL     time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC().Truncate(time.Microsecond)
	}
	return time.Now().UTC().Truncate(time.Microsecond)
}

func (s *Service) maxUploadBytes() int64 {
	if s.MaxUploadBytes > 0 {
		return s.MaxUploadBytes
	}
	return DefaultMaxUploadBytes
}

// Upload validates and extracts the file, stores the blob and creates the record.
// Validation failures happen before any side effect.
func (s *Service) Upload(ctx context.Context, in UploadInput) (Document, error) {
	doc, err := s.upload(ctx, in)
	if err != nil {
		if isRejection(err) {
			metrics.IncDocumentsUploadRejected()
		}
		return Document{}, err
	}
	metrics.IncDocumentsUploaded()
	telemetry.Info("document.uploaded", map[string]any{
		"document_id": doc.ID,
		"mime_type":   doc.MimeType,
		"size_bytes":  doc.SizeBytes,
		"text_chars":  len(doc.ExtractedText),
	})
	return doc, nil
}

func (s *Service) upload(ctx context.Context, in UploadInput) (Document, error) {
	if len(in.Data) == 0 {
		return Document{}, ErrNoFile
	}
	size := in.Size
	if size <= 0 {
		size = int64(len(in.Data))
	}
	limit := s.maxUploadBytes()
	if size > limit || int64(len(in.Data)) > limit {
		return Document{}, fmt.Errorf("%w: maximum size is %d bytes", ErrTooLarge, limit)
	}
	format, ok := extract.ParseFormat(in.MimeType)
	if !ok {
		return Document{}, fmt.Errorf("%w: %q, only PDF and DOCX are supported", ErrUnsupportedType, in.MimeType)
	}

	text, err := extract.Extract(ctx, in.Data, format)
	if err != nil {
		return Document{}, err
	}
	if strings.TrimSpace(text) == "" {
		return Document{}, ErrNoText
	}

	name := strings.TrimSpace(in.FileName)
	if name == "" {
		name = "document"
	}
	now := s.now()
	key, err := s.Store.Put(ctx, object.NewKey(name, now), in.Data, format.MimeType())
	if err != nil {
		return Document{}, fmt.Errorf("store document: %w", err)
	}

	doc := Document{
		ID:            uuid.NewString(),
		StorageKey:    key,
		OriginalName:  name,
		MimeType:      format.MimeType(),
		SizeBytes:     size,
		Checksum:      util.SHA256Hex(in.Data),
		ExtractedText: text,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		// the blob stays behind; orphan cleanup is not attempted
		return Document{}, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}

func isRejection(err error) bool {
	var extractErr *extract.ExtractionError
	return errors.Is(err, ErrNoFile) ||
		errors.Is(err, ErrTooLarge) ||
		errors.Is(err, ErrUnsupportedType) ||
		errors.Is(err, ErrNoText) ||
		errors.As(err, &extractErr)
}

// Get returns the current record.
func (s *Service) Get(ctx context.Context, id string) (Document, error) {
	if !validID(id) {
		return Document{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, id)
}

// List returns records newest-first. limit is clamped to [1, MaxListLimit].
func (s *Service) List(ctx context.Context, limit, offset int) ([]Document, error) {
	limit, offset = NormalizePage(limit, offset)
	return s.Repo.List(ctx, limit, offset)
}

// NormalizePage applies the listing defaults.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Analyze runs the analysis engine over the record's text and merges the result.
// Concurrent calls for one id are not serialized; the last Save wins.
func (s *Service) Analyze(ctx context.Context, id string) (AnalysisResult, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return AnalysisResult{}, err
	}
	if s.Analyzer == nil {
		return AnalysisResult{}, fmt.Errorf("%w: no analyzer configured", ErrAnalysisFailed)
	}

	metrics.IncAnalysisStarted()
	started := time.Now()
	outcome, err := s.Analyzer.Analyze(ctx, doc.ExtractedText)
	if err != nil {
		metrics.IncAnalysisFailed()
		telemetry.Error("document.analysis_failed", map[string]any{
			"document_id": doc.ID,
			"error":       err,
		})
		return AnalysisResult{}, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	analyzedAt := s.now()
	if !analyzedAt.After(doc.UpdatedAt) {
		analyzedAt = doc.UpdatedAt.Add(time.Microsecond)
	}
	summary := outcome.Result.Summary
	docType := outcome.Result.DocumentType
	metadata := outcome.Result.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	doc.Summary = &summary
	doc.DocumentType = &docType
	doc.Metadata = metadata
	doc.Analyzed = true
	doc.UpdatedAt = analyzedAt
	if err := s.Repo.Save(ctx, doc); err != nil {
		return AnalysisResult{}, fmt.Errorf("save analysis: %w", err)
	}

	metrics.IncAnalysisCompleted()
	if outcome.Fallback {
		metrics.IncAnalysisFallback()
	}
	metrics.ObserveAnalysisDuration(time.Since(started))
	telemetry.Info("document.analyzed", map[string]any{
		"document_id":   doc.ID,
		"document_type": docType,
		"fallback":      outcome.Fallback,
		"duration_ms":   time.Since(started).Milliseconds(),
	})

	return AnalysisResult{
		DocumentID:   doc.ID,
		Summary:      summary,
		DocumentType: docType,
		Metadata:     metadata,
		Fallback:     outcome.Fallback,
		AnalyzedAt:   analyzedAt,
	}, nil
}

// EnqueueAnalysis checks the record exists and queues an analysis job for it.
func (s *Service) EnqueueAnalysis(ctx context.Context, id, requestID string) error {
	if s.Queue == nil {
		return ErrQueueUnavailable
	}
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	msg := queue.Message{
		DocumentID: doc.ID,
		RequestID:  requestID,
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Version:    queue.MessageVersion,
	}
	if err := s.Queue.Send(ctx, msg); err != nil {
		return fmt.Errorf("enqueue analysis: %w", err)
	}
	metrics.IncAnalysisJobsEnqueued()
	telemetry.Info("document.analysis_enqueued", map[string]any{
		"document_id": doc.ID,
		"request_id":  requestID,
	})
	return nil
}

// DownloadURL returns a presigned URL for the stored file.
func (s *Service) DownloadURL(ctx context.Context, id string) (DownloadLink, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return DownloadLink{}, err
	}
	ttl := s.PresignTTL
	if ttl <= 0 {
		ttl = object.DefaultPresignTTL
	}
	url, err := s.Store.PresignedURL(ctx, doc.StorageKey, ttl)
	if err != nil {
		return DownloadLink{}, fmt.Errorf("presign %s: %w", doc.ID, err)
	}
	return DownloadLink{
		DocumentID: doc.ID,
		URL:        url,
		ExpiresAt:  time.Now().UTC().Add(ttl),
	}, nil
}

// Delete removes the record, then its blob. Blob failures are logged only.
func (s *Service) Delete(ctx context.Context, id string) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, doc.ID); err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, doc.StorageKey); err != nil && !errors.Is(err, object.ErrNotFound) {
		telemetry.Warn("document.blob_delete_failed", map[string]any{
			"document_id": doc.ID,
			"storage_key": doc.StorageKey,
			"error":       err,
		})
	}
	telemetry.Info("document.deleted", map[string]any{"document_id": doc.ID})
	return nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
