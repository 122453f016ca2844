package paperless

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/paperless-bot/internal/core/domain"
)

var duplicateDocumentIDPattern = regexp.MustCompile(`#(\d+)`)

type rawTask struct {
	Status          string          `json:"status"`
	Result          json.RawMessage `json:"result"`
	RelatedDocument json.RawMessage `json:"related_document"`
}

// WaitForTask polls the task endpoint every poll interval until the task
// reaches a terminal state or timeout/interval polls were spent. A poll that
// fails is logged and counted but never ends the wait. Only ctx cancellation
// stops early, returning a timeout result with ctx.Err().
func (c *Client) WaitForTask(ctx context.Context, taskID string, timeout time.Duration) (domain.TaskResult, error) {
	attempts := int(timeout / c.pollInterval)
	polls := 0
	defer func() { c.metrics.ObserveTaskPolls(polls) }()

	for i := 0; i < attempts; i++ {
		timer := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return domain.TaskTimedOut(), ctx.Err()
		case <-timer.C:
		}

		polls++
		task, found, err := c.fetchTask(ctx, taskID)
		if err != nil {
			if ctx.Err() != nil {
				return domain.TaskTimedOut(), ctx.Err()
			}
			slog.Warn("task_poll_error", "task_id", taskID, "attempt", polls, "error", err)
			continue
		}
		if !found {
			continue
		}
		if result, done := resolveTask(task); done {
			if result.Status == domain.TaskFailed {
				slog.Error("task_failed", "task_id", taskID, "message", result.Message)
			}
			return result, nil
		}
	}
	return domain.TaskTimedOut(), nil
}

func (c *Client) fetchTask(ctx context.Context, taskID string) (rawTask, bool, error) {
	query := url.Values{}
	query.Set("task_id", taskID)

	var body json.RawMessage
	if err := c.getJSON(ctx, "get_task", "/api/tasks/", query, &body); err != nil {
		return rawTask{}, false, err
	}
	return decodeTask(body)
}

// decodeTask accepts either a list of tasks or a single task object.
func decodeTask(body json.RawMessage) (rawTask, bool, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return rawTask{}, false, nil
	}
	if trimmed[0] == '[' {
		var tasks []rawTask
		if err := json.Unmarshal(trimmed, &tasks); err != nil {
			return rawTask{}, false, fmt.Errorf("decode task list: %w", err)
		}
		if len(tasks) == 0 {
			return rawTask{}, false, nil
		}
		return tasks[0], true, nil
	}
	var task rawTask
	if err := json.Unmarshal(trimmed, &task); err != nil {
		return rawTask{}, false, fmt.Errorf("decode task: %w", err)
	}
	return task, true, nil
}

func resolveTask(task rawTask) (domain.TaskResult, bool) {
	switch task.Status {
	case "SUCCESS":
		id, ok := parseDocumentID(task.RelatedDocument)
		return domain.TaskSucceeded(id, ok), true
	case "FAILURE", "REVOKED":
		message := rawString(task.Result)
		if strings.Contains(strings.ToLower(message), "duplicate") {
			id, ok := ExtractDuplicateID(message)
			return domain.TaskDuplicated(id, ok, message), true
		}
		return domain.TaskFailedWith(message), true
	default:
		return domain.TaskResult{}, false
	}
}

// ExtractDuplicateID finds the first "#<digits>" reference in a duplicate
// failure message such as "It is a duplicate of Invoice April (#42)."
func ExtractDuplicateID(message string) (int64, bool) {
	match := duplicateDocumentIDPattern.FindStringSubmatch(message)
	if len(match) < 2 {
		return 0, false
	}
	id, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// parseDocumentID accepts a JSON number or a numeric string.
func parseDocumentID(raw json.RawMessage) (int64, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0, false
	}
	var number int64
	if err := json.Unmarshal(trimmed, &number); err == nil {
		return number, true
	}
	var text string
	if err := json.Unmarshal(trimmed, &text); err == nil {
		if id, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64); err == nil {
			return id, true
		}
	}
	return 0, false
}

// rawString renders the task result field as text whatever its JSON type.
func rawString(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var text string
	if err := json.Unmarshal(trimmed, &text); err == nil {
		return text
	}
	return string(trimmed)
}
