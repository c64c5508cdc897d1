package workerproc

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"docsum-backend/internal/queue"
	"docsum-backend/internal/shared/metrics"
	"docsum-backend/internal/shared/telemetry"
)

// NewServeMux routes analysis tasks to analyzer.
func NewServeMux(analyzer Analyzer) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(queue.TaskTypeAnalyze, TaskHandler(analyzer))
	return mux
}

// TaskHandler adapts HandleMessage to asynq. Permanent failures skip retry.
func TaskHandler(analyzer Analyzer) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		metrics.IncAnalysisJobsReceived()
		body := string(task.Payload())
		msg, meta, err := ParseMessage(body)
		if err == nil {
			telemetry.Info("worker.analysis.received", map[string]any{
				"document_id": msg.DocumentID,
				"request_id":  msg.RequestID,
				"task_type":   task.Type(),
			})
			err = HandleMessage(WithParsedMessage(ctx, msg), analyzer, body)
		}
		if err == nil {
			telemetry.Info("worker.analysis.completed", map[string]any{
				"document_id": msg.DocumentID,
				"request_id":  msg.RequestID,
			})
			metrics.IncAnalysisJobsCompleted()
			return nil
		}

		fields := map[string]any{
			"document_id": msg.DocumentID,
			"request_id":  msg.RequestID,
			"body_len":    meta.BodyLen,
			"error":       err.Error(),
		}
		if IsPermanent(err) {
			telemetry.Error("worker.analysis.dropped", fields)
			metrics.IncAnalysisJobsDeletedUnrecoverable()
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		telemetry.Error("worker.analysis.failed", fields)
		metrics.IncAnalysisJobsFailed()
		return err
	}
}
