package ports

import (
	"context"

	"github.com/kirillkom/paperless-bot/internal/core/domain"
)

// UploadProcessor is the inbound contract for the upload pipeline.
type UploadProcessor interface {
	Process(ctx context.Context, input domain.UploadInput, onQueued func(taskID string)) (domain.UploadOutcome, error)
}

// UpdateHandler consumes messaging gateway events.
type UpdateHandler interface {
	HandleMessage(ctx context.Context, msg domain.IncomingMessage)
	HandleCallback(ctx context.Context, cb domain.CallbackEvent)
}
