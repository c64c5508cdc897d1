package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

type counter struct {
	name string
	help string
	v    atomic.Uint64
}

var (
	documentsUploaded       = &counter{name: "documents_uploaded_total", help: "Total documents stored"}
	documentsUploadRejected = &counter{name: "documents_upload_rejected_total", help: "Total uploads rejected before storage"}
	analysisStarted         = &counter{name: "analysis_started_total", help: "Total analyses started"}
	analysisCompleted       = &counter{name: "analysis_completed_total", help: "Total analyses merged into a document"}
	analysisFallback        = &counter{name: "analysis_fallback_total", help: "Total analyses that used the fallback result"}
	analysisFailed          = &counter{name: "analysis_failed_total", help: "Total analyses failed"}
	jobsEnqueued            = &counter{name: "analysis_jobs_enqueued_total", help: "Total analysis jobs enqueued"}
	jobsReceived            = &counter{name: "analysis_jobs_received_total", help: "Total analysis jobs received by workers"}
	jobsCompleted           = &counter{name: "analysis_jobs_completed_total", help: "Total analysis jobs completed"}
	jobsFailed              = &counter{name: "analysis_jobs_failed_total", help: "Total analysis jobs failed"}
	jobsDeletedUnrecover    = &counter{name: "analysis_jobs_deleted_unrecoverable_total", help: "Total malformed analysis jobs dropped"}

	counters = []*counter{
		documentsUploaded,
		documentsUploadRejected,
		analysisStarted,
		analysisCompleted,
		analysisFallback,
		analysisFailed,
		jobsEnqueued,
		jobsReceived,
		jobsCompleted,
		jobsFailed,
		jobsDeletedUnrecover,
	}

	analysisDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncDocumentsUploaded increments the stored documents counter.
func IncDocumentsUploaded() {
	documentsUploaded.v.Add(1)
}

func IncDocumentsUploadRejected() {
	documentsUploadRejected.v.Add(1)
}

func IncAnalysisStarted() {
	analysisStarted.v.Add(1)
}

func IncAnalysisCompleted() {
	analysisCompleted.v.Add(1)
}

// IncAnalysisFallback counts analyses that degraded to the fallback result.
func IncAnalysisFallback() {
	analysisFallback.v.Add(1)
}

func IncAnalysisFailed() {
	analysisFailed.v.Add(1)
}

func IncAnalysisJobsEnqueued() {
	jobsEnqueued.v.Add(1)
}

func IncAnalysisJobsReceived() {
	jobsReceived.v.Add(1)
}

func IncAnalysisJobsCompleted() {
	jobsCompleted.v.Add(1)
}

func IncAnalysisJobsFailed() {
	jobsFailed.v.Add(1)
}

// IncAnalysisJobsDeletedUnrecoverable counts malformed jobs dropped from the queue.
func IncAnalysisJobsDeletedUnrecoverable() {
	jobsDeletedUnrecover.v.Add(1)
}

// ObserveAnalysisDuration records how long an analysis took.
func ObserveAnalysisDuration(d time.Duration) {
	ms := float64(d) / float64(time.Millisecond)
	if ms < 0 {
		ms = 0
	}
	analysisDuration.Observe(ms)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	for _, c := range counters {
		writeCounter(&buf, c.name, c.help, c.v.Load())
	}
	writeHistogram(&buf, "analysis_duration_ms", "Analysis duration in milliseconds", analysisDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe counts value in the first bucket whose bound it does not exceed.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
