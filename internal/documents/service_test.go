package documents

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsum-backend/internal/analysis"
	"docsum-backend/internal/extract"
	"docsum-backend/internal/extract/extracttest"
	"docsum-backend/internal/llm"
	localstore "docsum-backend/internal/shared/storage/object/local"
)

type testDeps struct {
	svc      *Service
	store    *memStore
	repo     *MemoryRepo
	analyzer *stubAnalyzer
	queue    *recordingQueue
}

func newTestService(t *testing.T) testDeps {
	t.Helper()
	deps := testDeps{
		store:    newMemStore(),
		repo:     NewMemoryRepo(),
		analyzer: &stubAnalyzer{},
		queue:    &recordingQueue{},
	}
	deps.svc = &Service{
		Store:          deps.store,
		Repo:           deps.repo,
		Analyzer:       deps.analyzer,
		Queue:          deps.queue,
		MaxUploadBytes: DefaultMaxUploadBytes,
	}
	return deps
}

func uploadPDF(t *testing.T, svc *Service, text string) Document {
	t.Helper()
	data := extracttest.PDF(text)
	doc, err := svc.Upload(context.Background(), UploadInput{
		Data:     data,
		MimeType: extract.MimePDF,
		FileName: "hello.pdf",
		Size:     int64(len(data)),
	})
	require.NoError(t, err)
	return doc
}

func TestUploadPDFCreatesUnanalyzedRecord(t *testing.T) {
	deps := newTestService(t)
	doc := uploadPDF(t, deps.svc, "Hello World")

	assert.Contains(t, doc.ExtractedText, "Hello World")
	assert.False(t, doc.Analyzed)
	assert.Nil(t, doc.Summary)
	assert.Nil(t, doc.DocumentType)
	assert.Nil(t, doc.Metadata)
	assert.Equal(t, extract.MimePDF, doc.MimeType)
	assert.Equal(t, "hello.pdf", doc.OriginalName)
	assert.Len(t, doc.Checksum, 64)
	assert.True(t, strings.HasSuffix(doc.StorageKey, "_hello.pdf"))
	assert.Equal(t, 1, deps.store.count())

	got, err := deps.svc.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ExtractedText, got.ExtractedText)
	assert.Equal(t, doc.OriginalName, got.OriginalName)
	assert.Equal(t, doc.MimeType, got.MimeType)
	assert.Equal(t, doc.SizeBytes, got.SizeBytes)
}

func TestUploadDOCX(t *testing.T) {
	deps := newTestService(t)
	data := extracttest.DOCX("Invoice 42", "Total: 100 EUR")

	doc, err := deps.svc.Upload(context.Background(), UploadInput{
		Data:     data,
		MimeType: extract.MimeDOCX,
		FileName: "invoice.docx",
	})
	require.NoError(t, err)
	assert.Equal(t, "Invoice 42\n\nTotal: 100 EUR", doc.ExtractedText)
	assert.Equal(t, int64(len(data)), doc.SizeBytes)
}

func TestUploadValidationOrderAndNoSideEffects(t *testing.T) {
	pdf := extracttest.PDF("Hello World")
	tests := []struct {
		name  string
		in    UploadInput
		limit int64
		want  error
	}{
		{name: "no file", in: UploadInput{MimeType: "text/plain"}, want: ErrNoFile},
		{name: "too large wins over type", in: UploadInput{Data: []byte("0123456789"), MimeType: "text/plain", Size: 11}, limit: 10, want: ErrTooLarge},
		{name: "declared size over limit", in: UploadInput{Data: pdf, MimeType: extract.MimePDF, Size: DefaultMaxUploadBytes + 1}, want: ErrTooLarge},
		{name: "unsupported type", in: UploadInput{Data: []byte("plain text"), MimeType: "text/plain"}, want: ErrUnsupportedType},
		{name: "no text", in: UploadInput{Data: extracttest.PDF("   "), MimeType: extract.MimePDF}, want: ErrNoText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestService(t)
			if tt.limit > 0 {
				deps.svc.MaxUploadBytes = tt.limit
			}
			_, err := deps.svc.Upload(context.Background(), tt.in)
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, 0, deps.store.count())

			docs, err := deps.repo.List(context.Background(), 0, 0)
			require.NoError(t, err)
			assert.Empty(t, docs)
		})
	}
}

func TestUploadCorruptPDFIsExtractionError(t *testing.T) {
	deps := newTestService(t)
	_, err := deps.svc.Upload(context.Background(), UploadInput{
		Data:     []byte("not a pdf!"),
		MimeType: extract.MimePDF,
		FileName: "fake.pdf",
	})

	var extractErr *extract.ExtractionError
	require.ErrorAs(t, err, &extractErr)
	assert.Equal(t, extract.FormatPDF, extractErr.Format)
	assert.Equal(t, 0, deps.store.count())
}

func TestUploadLongFileNameIsStored(t *testing.T) {
	deps := newTestService(t)
	store := localstore.New(t.TempDir())
	deps.svc.Store = store

	name := strings.Repeat("a", 260) + ".pdf"
	data := extracttest.PDF("Hello World")
	doc, err := deps.svc.Upload(context.Background(), UploadInput{Data: data, MimeType: extract.MimePDF, FileName: name, Size: int64(len(data))})
	require.NoError(t, err)

	assert.Equal(t, name, doc.OriginalName)
	assert.True(t, strings.HasSuffix(doc.StorageKey, ".pdf"))
	assert.Less(t, len(doc.StorageKey), 255)

	stored, err := store.Get(context.Background(), doc.StorageKey)
	require.NoError(t, err)
	assert.Equal(t, data, stored)
}

func TestUploadStoreFailureCreatesNoRecord(t *testing.T) {
	deps := newTestService(t)
	deps.store.putErr = errBoom

	data := extracttest.PDF("Hello World")
	_, err := deps.svc.Upload(context.Background(), UploadInput{Data: data, MimeType: extract.MimePDF, FileName: "a.pdf"})
	require.ErrorIs(t, err, errBoom)

	docs, err := deps.repo.List(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestAnalyzeMergesResult(t *testing.T) {
	deps := newTestService(t)
	doc := uploadPDF(t, deps.svc, "Hello World")
	deps.analyzer.outcome = analysis.Outcome{Result: analysis.Result{
		Summary:      "S",
		DocumentType: "report",
		Metadata:     map[string]any{"title": "T"},
	}}

	res, err := deps.svc.Analyze(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, res.DocumentID)
	assert.Equal(t, "report", res.DocumentType)
	assert.Equal(t, map[string]any{"title": "T"}, res.Metadata)
	assert.Equal(t, []string{doc.ExtractedText}, deps.analyzer.texts)

	stored, err := deps.svc.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.True(t, stored.Analyzed)
	require.NotNil(t, stored.Summary)
	assert.Equal(t, "S", *stored.Summary)
	require.NotNil(t, stored.DocumentType)
	assert.Equal(t, "report", *stored.DocumentType)
	assert.Equal(t, res.AnalyzedAt, stored.UpdatedAt)
	assert.True(t, stored.UpdatedAt.After(doc.CreatedAt))
}

func TestAnalyzeWithFencedModelAnswer(t *testing.T) {
	deps := newTestService(t)
	client := llmFunc(func(ctx context.Context, req llm.Request) (string, error) {
		return "```json\n{\"summary\":\"S\",\"documentType\":\"Report\",\"metadata\":{\"title\":\"T\"}}\n```", nil
	})
	deps.svc.Analyzer = analysis.NewEngine(client)
	doc := uploadPDF(t, deps.svc, "Hello World")

	res, err := deps.svc.Analyze(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "report", res.DocumentType)
	assert.Equal(t, map[string]any{"title": "T"}, res.Metadata)
	assert.False(t, res.Fallback)

	stored, err := deps.svc.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.True(t, stored.Analyzed)
}

func TestAnalyzeFallbackStillSucceeds(t *testing.T) {
	deps := newTestService(t)
	deps.svc.Analyzer = analysis.NewEngine(llmFunc(func(ctx context.Context, req llm.Request) (string, error) {
		return "Sorry, I cannot help with that.", nil
	}))
	doc := uploadPDF(t, deps.svc, "Hello World")

	res, err := deps.svc.Analyze(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Equal(t, "Unable to generate summary", res.Summary)
	assert.Equal(t, "other", res.DocumentType)
	assert.Equal(t, map[string]any{"error": "Failed to parse LLM response"}, res.Metadata)

	stored, err := deps.svc.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.True(t, stored.Analyzed)
}

func TestAnalyzeInfrastructureFailureLeavesRecord(t *testing.T) {
	deps := newTestService(t)
	doc := uploadPDF(t, deps.svc, "Hello World")
	deps.analyzer.err = llm.ErrEmptyResponse

	_, err := deps.svc.Analyze(context.Background(), doc.ID)
	require.ErrorIs(t, err, ErrAnalysisFailed)
	require.ErrorIs(t, err, llm.ErrEmptyResponse)

	stored, err := deps.svc.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.False(t, stored.Analyzed)
	assert.Nil(t, stored.Summary)
	assert.Equal(t, doc.UpdatedAt, stored.UpdatedAt)
}

func TestAnalyzeUnknownID(t *testing.T) {
	deps := newTestService(t)
	for _, id := range []string{"00000000-0000-0000-0000-000000000000", "not-a-uuid"} {
		_, err := deps.svc.Analyze(context.Background(), id)
		require.ErrorIs(t, err, ErrNotFound)
	}
	assert.Empty(t, deps.analyzer.texts)
}

func TestAnalyzeTimestampsStrictlyIncrease(t *testing.T) {
	deps := newTestService(t)
	frozen := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	deps.svc.Now = func() time.Time { return frozen }
	deps.analyzer.outcome = analysis.Outcome{Result: analysis.Result{Summary: "S", DocumentType: "memo"}}
	doc := uploadPDF(t, deps.svc, "Hello World")

	var last time.Time = doc.UpdatedAt
	for i := 0; i < 3; i++ {
		res, err := deps.svc.Analyze(context.Background(), doc.ID)
		require.NoError(t, err)
		assert.True(t, res.AnalyzedAt.After(last), "analyzedAt must increase on call %d", i+1)
		last = res.AnalyzedAt
	}

	stored, err := deps.svc.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, last, stored.UpdatedAt)
	assert.NotNil(t, stored.Metadata)
}

func TestEnqueueAnalysis(t *testing.T) {
	deps := newTestService(t)
	doc := uploadPDF(t, deps.svc, "Hello World")

	require.NoError(t, deps.svc.EnqueueAnalysis(context.Background(), doc.ID, "req-1"))
	require.Len(t, deps.queue.msgs, 1)
	msg := deps.queue.msgs[0]
	assert.Equal(t, doc.ID, msg.DocumentID)
	assert.Equal(t, "req-1", msg.RequestID)
	assert.Equal(t, 1, msg.Version)
	assert.NotEmpty(t, msg.EnqueuedAt)

	err := deps.svc.EnqueueAnalysis(context.Background(), "00000000-0000-0000-0000-000000000000", "req-2")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, deps.queue.msgs, 1)

	deps.svc.Queue = nil
	require.ErrorIs(t, deps.svc.EnqueueAnalysis(context.Background(), doc.ID, "req-3"), ErrQueueUnavailable)
}

func TestListNewestFirst(t *testing.T) {
	deps := newTestService(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	deps.svc.Now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	first := uploadPDF(t, deps.svc, "first")
	second := uploadPDF(t, deps.svc, "second")

	docs, err := deps.svc.List(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, second.ID, docs[0].ID)
	assert.Equal(t, first.ID, docs[1].ID)

	docs, err = deps.svc.List(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, first.ID, docs[0].ID)
}

func TestNormalizePage(t *testing.T) {
	limit, offset := NormalizePage(0, -5)
	assert.Equal(t, DefaultListLimit, limit)
	assert.Equal(t, 0, offset)

	limit, offset = NormalizePage(1000, 7)
	assert.Equal(t, MaxListLimit, limit)
	assert.Equal(t, 7, offset)
}

func TestDownloadURL(t *testing.T) {
	deps := newTestService(t)
	deps.svc.PresignTTL = 10 * time.Minute
	doc := uploadPDF(t, deps.svc, "Hello World")

	before := time.Now().UTC()
	link, err := deps.svc.DownloadURL(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, link.DocumentID)
	assert.Contains(t, link.URL, doc.StorageKey)
	assert.Contains(t, link.URL, "ttl=10m0s")
	assert.WithinDuration(t, before.Add(10*time.Minute), link.ExpiresAt, 5*time.Second)
}

func TestDeleteRemovesRecordAndBlob(t *testing.T) {
	deps := newTestService(t)
	doc := uploadPDF(t, deps.svc, "Hello World")

	require.NoError(t, deps.svc.Delete(context.Background(), doc.ID))
	assert.Equal(t, 0, deps.store.count())

	_, err := deps.svc.Get(context.Background(), doc.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, deps.svc.Delete(context.Background(), doc.ID), ErrNotFound)
}

func TestDeleteIgnoresBlobFailure(t *testing.T) {
	deps := newTestService(t)
	doc := uploadPDF(t, deps.svc, "Hello World")
	deps.store.delErr = errors.New("bucket unavailable")

	require.NoError(t, deps.svc.Delete(context.Background(), doc.ID))
	_, err := deps.svc.Get(context.Background(), doc.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

type llmFunc func(ctx context.Context, req llm.Request) (string, error)

func (f llmFunc) Complete(ctx context.Context, req llm.Request) (string, error) {
	return f(ctx, req)
}
