package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/paperless-bot/internal/core/domain"
	"github.com/kirillkom/paperless-bot/internal/core/ports"
)

const DefaultTaskTimeout = 60 * time.Second

// UploadUseCase sends a file to the backend, waits for its ingestion task and
// resolves the outcome. It never retries an upload.
type UploadUseCase struct {
	backend     ports.DocumentBackend
	publisher   ports.EventPublisher
	recorder    ports.UploadRecorder
	taskTimeout time.Duration
	now         func() time.Time
}

func NewUploadUseCase(
	backend ports.DocumentBackend,
	publisher ports.EventPublisher,
	recorder ports.UploadRecorder,
	taskTimeout time.Duration,
) *UploadUseCase {
	if taskTimeout <= 0 {
		taskTimeout = DefaultTaskTimeout
	}
	return &UploadUseCase{
		backend:     backend,
		publisher:   publisher,
		recorder:    recorder,
		taskTimeout: taskTimeout,
		now:         time.Now,
	}
}

func (uc *UploadUseCase) Process(
	ctx context.Context,
	input domain.UploadInput,
	onQueued func(taskID string),
) (domain.UploadOutcome, error) {
	taskID, err := uc.backend.UploadDocument(ctx, domain.UploadRequest{
		Filename: input.Filename,
		Content:  input.Content,
	})
	if err != nil {
		uc.record("")
		return domain.UploadOutcome{}, fmt.Errorf("upload document: %w", err)
	}
	if onQueued != nil {
		onQueued(taskID)
	}

	result, err := uc.backend.WaitForTask(ctx, taskID, uc.taskTimeout)
	if err != nil {
		uc.record("")
		return domain.UploadOutcome{TaskID: taskID, Result: result}, fmt.Errorf("wait for task %s: %w", taskID, err)
	}

	outcome := domain.UploadOutcome{TaskID: taskID, Result: result}
	switch {
	case result.Status == domain.TaskSuccess && result.HasDocument:
		doc, err := uc.backend.GetDocument(ctx, result.DocumentID)
		if err != nil {
			uc.record("")
			return outcome, fmt.Errorf("fetch ingested document %d: %w", result.DocumentID, err)
		}
		outcome.Document = &doc
	case result.Status == domain.TaskDuplicate && result.HasDocument:
		doc, err := uc.backend.GetDocument(ctx, result.DocumentID)
		if err != nil {
			slog.Warn("duplicate_lookup_failed",
				"task_id", taskID,
				"document_id", result.DocumentID,
				"error", err,
			)
		} else {
			outcome.Document = &doc
		}
	}

	uc.record(result.Status)
	uc.publish(ctx, domain.Event{
		Type:       "upload." + string(result.Status),
		ChatID:     input.ChatID,
		DocumentID: result.DocumentID,
		TaskID:     taskID,
		Status:     result.Status,
		Message:    result.Message,
		OccurredAt: uc.now().UTC(),
	})
	return outcome, nil
}

func (uc *UploadUseCase) record(status domain.TaskStatus) {
	if uc.recorder != nil {
		uc.recorder.RecordUploadOutcome(status)
	}
}

func (uc *UploadUseCase) publish(ctx context.Context, event domain.Event) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.Publish(ctx, event); err != nil {
		slog.Warn("event_publish_failed", "type", event.Type, "error", err)
	}
}
