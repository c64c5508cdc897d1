package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"docsum-backend/internal/bootstrap"
	"docsum-backend/internal/shared/config"
	"docsum-backend/internal/shared/metrics"
	"docsum-backend/internal/shared/telemetry"
	"docsum-backend/internal/workerproc"
)

var (
	initOnce sync.Once
	initErr  error
	app      *bootstrap.App
)

func initApp() {
	cfg := config.Load()
	built, err := bootstrap.BuildWorker(cfg)
	if err != nil {
		initErr = err
		return
	}
	app = built
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		log.Printf("bootstrap error: %v", initErr)
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}

	return events.SQSEventResponse{BatchItemFailures: processRecords(ctx, app.DocumentsService, event.Records)}, nil
}

// processRecords reports transient failures for redelivery. Permanent failures
// are logged and dropped.
func processRecords(ctx context.Context, analyzer workerproc.Analyzer, records []events.SQSMessage) []events.SQSBatchItemFailure {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range records {
		metrics.IncAnalysisJobsReceived()
		err := workerproc.HandleMessage(ctx, analyzer, record.Body)
		if err == nil {
			metrics.IncAnalysisJobsCompleted()
			continue
		}
		fields := map[string]any{
			"sqs_message_id": record.MessageId,
			"error":          err.Error(),
		}
		var procErr workerproc.ErrProcess
		if errors.As(err, &procErr) {
			fields["document_id"] = procErr.DocumentID
			fields["request_id"] = procErr.RequestID
		}
		if workerproc.IsPermanent(err) {
			telemetry.Error("worker.analysis.dropped", fields)
			metrics.IncAnalysisJobsDeletedUnrecoverable()
			continue
		}
		telemetry.Error("worker.analysis.failed", fields)
		metrics.IncAnalysisJobsFailed()
		failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
	}
	return failures
}

func main() {
	lambda.Start(handler)
}
