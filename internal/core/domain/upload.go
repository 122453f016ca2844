package domain

import "time"

type UploadInput struct {
	ChatID   int64
	Filename string
	Content  []byte
}

// UploadOutcome is the result of the upload pipeline. Document is set for a
// successful ingestion and, when it could be fetched, for the existing copy of
// a duplicate.
type UploadOutcome struct {
	TaskID   string
	Result   TaskResult
	Document *Document
}

type Event struct {
	Type       string     `json:"type"`
	ChatID     int64      `json:"chat_id"`
	DocumentID int64      `json:"document_id,omitempty"`
	TaskID     string     `json:"task_id,omitempty"`
	Status     TaskStatus `json:"status,omitempty"`
	Message    string     `json:"message,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}
