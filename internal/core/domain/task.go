package domain

type TaskStatus string

const (
	TaskSuccess   TaskStatus = "success"
	TaskDuplicate TaskStatus = "duplicate"
	TaskFailed    TaskStatus = "failed"
	TaskTimeout   TaskStatus = "timeout"
)

// TaskResult is the resolved outcome of an asynchronous ingestion task.
// DocumentID is meaningful only when HasDocument is set: a duplicate whose
// message did not name the existing document has no id.
type TaskResult struct {
	Status      TaskStatus `json:"status"`
	DocumentID  int64      `json:"document_id,omitempty"`
	HasDocument bool       `json:"has_document"`
	Message     string     `json:"message,omitempty"`
}

func TaskSucceeded(documentID int64, known bool) TaskResult {
	return TaskResult{Status: TaskSuccess, DocumentID: documentID, HasDocument: known}
}

func TaskDuplicated(documentID int64, known bool, message string) TaskResult {
	return TaskResult{Status: TaskDuplicate, DocumentID: documentID, HasDocument: known, Message: message}
}

func TaskFailedWith(message string) TaskResult {
	return TaskResult{Status: TaskFailed, Message: message}
}

func TaskTimedOut() TaskResult {
	return TaskResult{Status: TaskTimeout}
}
