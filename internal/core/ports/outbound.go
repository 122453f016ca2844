package ports

import (
	"context"
	"time"

	"github.com/kirillkom/paperless-bot/internal/core/domain"
)

// DocumentBackend is the document-management REST service.
type DocumentBackend interface {
	EnsureCache(ctx context.Context) error
	RefreshCache(ctx context.Context) error

	SearchDocuments(ctx context.Context, query string, page, pageSize int) ([]domain.Document, int, error)
	RecentDocuments(ctx context.Context, pageSize int) ([]domain.Document, int, error)
	InboxDocuments(ctx context.Context, pageSize int) ([]domain.Document, int, error)
	GetDocument(ctx context.Context, id int64) (domain.Document, error)
	UploadDocument(ctx context.Context, req domain.UploadRequest) (string, error)
	WaitForTask(ctx context.Context, taskID string, timeout time.Duration) (domain.TaskResult, error)
	DownloadDocument(ctx context.Context, id int64) (domain.DownloadedFile, error)
	UpdateDocument(ctx context.Context, id int64, update domain.DocumentUpdate) (domain.Document, error)
	RemoveInboxTag(ctx context.Context, id int64) error

	// Items returns the cached items of a taxonomy sorted by name.
	Items(ctx context.Context, kind domain.ItemKind) ([]domain.Item, error)
	ItemName(kind domain.ItemKind, id int64) string
	CreateItem(ctx context.Context, kind domain.ItemKind, name string) (domain.Item, error)

	Statistics(ctx context.Context) (domain.Statistics, error)
}

// ConversationStore holds per-chat interaction state.
type ConversationStore interface {
	StartUpload(chatID, documentID int64)
	PendingUpload(chatID int64) (domain.PendingUpload, bool)
	ToggleTag(chatID, tagID int64) (domain.PendingUpload, bool)
	SelectTag(chatID, tagID int64) (domain.PendingUpload, bool)
	FinishUpload(chatID int64)

	AwaitName(chatID int64, pending domain.PendingCreate)
	TakePendingCreate(chatID int64) (domain.PendingCreate, bool)
	CancelPendingCreate(chatID int64)

	RememberQuery(chatID int64, query string)
	LastQuery(chatID int64) (string, bool)

	Stats() domain.ConversationStats
}

// MessagingGateway delivers text, keyboards and files to a chat.
type MessagingGateway interface {
	Send(ctx context.Context, chatID int64, msg domain.OutgoingMessage) (domain.MessageRef, error)
	Edit(ctx context.Context, ref domain.MessageRef, msg domain.OutgoingMessage) error
	EditKeyboard(ctx context.Context, ref domain.MessageRef, keyboard domain.Keyboard) error
	SendFile(ctx context.Context, chatID int64, file domain.DownloadedFile) error
	AnswerCallback(ctx context.Context, callbackID string) error
	DownloadAttachment(ctx context.Context, attachment domain.Attachment) ([]byte, error)
}

// EventPublisher emits integration events about bot activity.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// AttachmentInspector describes an attachment before it is uploaded.
type AttachmentInspector interface {
	Describe(filename string, content []byte) string
}

// UploadRecorder counts upload pipeline outcomes.
type UploadRecorder interface {
	RecordUploadOutcome(status domain.TaskStatus)
}
