package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kirillkom/paperless-bot/internal/core/domain"
)

type backendFake struct {
	taskID    string
	uploadErr error
	result    domain.TaskResult
	waitErr   error
	docs      map[int64]domain.Document
	getErr    error

	uploaded    []domain.UploadRequest
	waitTimeout time.Duration
	gets        []int64
}

func (f *backendFake) EnsureCache(context.Context) error  { return nil }
func (f *backendFake) RefreshCache(context.Context) error { return nil }
func (f *backendFake) SearchDocuments(context.Context, string, int, int) ([]domain.Document, int, error) {
	return nil, 0, nil
}
func (f *backendFake) RecentDocuments(context.Context, int) ([]domain.Document, int, error) {
	return nil, 0, nil
}
func (f *backendFake) InboxDocuments(context.Context, int) ([]domain.Document, int, error) {
	return nil, 0, nil
}

func (f *backendFake) GetDocument(_ context.Context, id int64) (domain.Document, error) {
	f.gets = append(f.gets, id)
	if f.getErr != nil {
		return domain.Document{}, f.getErr
	}
	doc, ok := f.docs[id]
	if !ok {
		return domain.Document{}, domain.WrapError(domain.ErrNotFound, "get_document", errors.New("404"))
	}
	return doc, nil
}

func (f *backendFake) UploadDocument(_ context.Context, req domain.UploadRequest) (string, error) {
	f.uploaded = append(f.uploaded, req)
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return f.taskID, nil
}

func (f *backendFake) WaitForTask(_ context.Context, _ string, timeout time.Duration) (domain.TaskResult, error) {
	f.waitTimeout = timeout
	return f.result, f.waitErr
}

func (f *backendFake) DownloadDocument(context.Context, int64) (domain.DownloadedFile, error) {
	return domain.DownloadedFile{}, nil
}
func (f *backendFake) UpdateDocument(context.Context, int64, domain.DocumentUpdate) (domain.Document, error) {
	return domain.Document{}, nil
}
func (f *backendFake) RemoveInboxTag(context.Context, int64) error { return nil }
func (f *backendFake) Items(context.Context, domain.ItemKind) ([]domain.Item, error) {
	return nil, nil
}
func (f *backendFake) ItemName(_ domain.ItemKind, id int64) string { return domain.FallbackName(id) }
func (f *backendFake) CreateItem(context.Context, domain.ItemKind, string) (domain.Item, error) {
	return domain.Item{}, nil
}
func (f *backendFake) Statistics(context.Context) (domain.Statistics, error) {
	return domain.Statistics{}, nil
}

type publisherFake struct {
	events []domain.Event
	err    error
}

func (f *publisherFake) Publish(_ context.Context, event domain.Event) error {
	f.events = append(f.events, event)
	return f.err
}

type recorderFake struct {
	statuses []domain.TaskStatus
}

func (f *recorderFake) RecordUploadOutcome(status domain.TaskStatus) {
	f.statuses = append(f.statuses, status)
}

func TestProcessSuccessFetchesDocument(t *testing.T) {
	backend := &backendFake{
		taskID: "abcdef123456",
		result: domain.TaskSucceeded(42, true),
		docs:   map[int64]domain.Document{42: {ID: 42, Title: "Invoice"}},
	}
	publisher := &publisherFake{}
	recorder := &recorderFake{}
	uc := NewUploadUseCase(backend, publisher, recorder, 0)

	var queued string
	outcome, err := uc.Process(context.Background(), domain.UploadInput{
		ChatID:   7,
		Filename: "invoice.pdf",
		Content:  []byte("%PDF"),
	}, func(taskID string) { queued = taskID })
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if queued != "abcdef123456" {
		t.Fatalf("expected onQueued with task id, got %q", queued)
	}
	if backend.waitTimeout != DefaultTaskTimeout {
		t.Fatalf("expected default task timeout, got %v", backend.waitTimeout)
	}
	if outcome.Document == nil || outcome.Document.ID != 42 {
		t.Fatalf("expected document 42, got %+v", outcome.Document)
	}
	if len(backend.uploaded) != 1 || backend.uploaded[0].Filename != "invoice.pdf" {
		t.Fatalf("expected exactly one upload, got %+v", backend.uploaded)
	}
	if len(publisher.events) != 1 || publisher.events[0].Type != "upload.success" || publisher.events[0].ChatID != 7 {
		t.Fatalf("unexpected events %+v", publisher.events)
	}
	if len(recorder.statuses) != 1 || recorder.statuses[0] != domain.TaskSuccess {
		t.Fatalf("unexpected recorded outcomes %v", recorder.statuses)
	}
}

func TestProcessSuccessWithoutDocumentID(t *testing.T) {
	backend := &backendFake{taskID: "t", result: domain.TaskSucceeded(0, false)}
	uc := NewUploadUseCase(backend, nil, nil, time.Second)

	outcome, err := uc.Process(context.Background(), domain.UploadInput{Filename: "a.pdf"}, nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if outcome.Document != nil || len(backend.gets) != 0 {
		t.Fatalf("expected no document lookup, got %+v / %v", outcome.Document, backend.gets)
	}
}

func TestProcessDuplicateLookupIsBestEffort(t *testing.T) {
	backend := &backendFake{
		taskID: "t",
		result: domain.TaskDuplicated(42, true, "duplicate of (#42)"),
		getErr: domain.WrapError(domain.ErrTransport, "get_document", errors.New("reset")),
	}
	uc := NewUploadUseCase(backend, &publisherFake{}, nil, time.Second)

	outcome, err := uc.Process(context.Background(), domain.UploadInput{Filename: "a.pdf"}, nil)
	if err != nil {
		t.Fatalf("duplicate lookup failure must not fail the upload: %v", err)
	}
	if outcome.Result.Status != domain.TaskDuplicate || outcome.Document != nil {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
}

func TestProcessDuplicateWithoutID(t *testing.T) {
	backend := &backendFake{taskID: "t", result: domain.TaskDuplicated(0, false, "duplicate")}
	uc := NewUploadUseCase(backend, nil, nil, time.Second)

	outcome, err := uc.Process(context.Background(), domain.UploadInput{Filename: "a.pdf"}, nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(backend.gets) != 0 || outcome.Result.HasDocument {
		t.Fatalf("expected no lookup for unknown duplicate, got %v", backend.gets)
	}
}

func TestProcessUploadFailureDoesNotPoll(t *testing.T) {
	backend := &backendFake{uploadErr: domain.WrapError(domain.ErrBackend, "upload_document", errors.New("413"))}
	recorder := &recorderFake{}
	uc := NewUploadUseCase(backend, nil, recorder, time.Second)

	called := false
	_, err := uc.Process(context.Background(), domain.UploadInput{Filename: "a.pdf"}, func(string) { called = true })
	if !domain.IsKind(err, domain.ErrBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if called {
		t.Fatalf("onQueued must not run when the upload failed")
	}
	if backend.waitTimeout != 0 {
		t.Fatalf("expected no polling")
	}
	if len(recorder.statuses) != 1 || recorder.statuses[0] != "" {
		t.Fatalf("expected one error outcome, got %v", recorder.statuses)
	}
}

func TestProcessPublishErrorIsIgnored(t *testing.T) {
	backend := &backendFake{taskID: "t", result: domain.TaskFailedWith("OCR crashed")}
	publisher := &publisherFake{err: errors.New("nats down")}
	uc := NewUploadUseCase(backend, publisher, nil, time.Second)

	outcome, err := uc.Process(context.Background(), domain.UploadInput{Filename: "a.pdf"}, nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if outcome.Result.Status != domain.TaskFailed || outcome.Result.Message != "OCR crashed" {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
}
