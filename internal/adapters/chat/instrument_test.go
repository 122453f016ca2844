package chat

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/kirillkom/paperless-bot/internal/core/domain"
	"github.com/kirillkom/paperless-bot/internal/infrastructure/state/memory"
)

type recorderFake struct {
	started  int
	finished []string
	stats    []domain.ConversationStats
}

func (r *recorderFake) StartUpdate() { r.started++ }

func (r *recorderFake) FinishUpdate(kind string, _ time.Duration, failed bool) {
	if failed {
		kind += ":failed"
	}
	r.finished = append(r.finished, kind)
}

func (r *recorderFake) SetConversationStats(stats domain.ConversationStats) {
	r.stats = append(r.stats, stats)
}

type handlerFake struct{}

func (handlerFake) HandleMessage(context.Context, domain.IncomingMessage) {}
func (handlerFake) HandleCallback(context.Context, domain.CallbackEvent)  {}

func TestInstrumentedRecordsKinds(t *testing.T) {
	store := memory.NewStore()
	store.RememberQuery(1, "tax")
	recorder := &recorderFake{}
	handler := NewInstrumented(handlerFake{}, store, recorder)

	handler.HandleMessage(context.Background(), domain.IncomingMessage{Command: "help"})
	handler.HandleMessage(context.Background(), domain.IncomingMessage{Attachment: &domain.Attachment{}})
	handler.HandleMessage(context.Background(), domain.IncomingMessage{Text: "hi"})
	handler.HandleCallback(context.Background(), domain.CallbackEvent{})

	want := []string{"command", "attachment", "text", "callback"}
	if recorder.started != len(want) || len(recorder.finished) != len(want) {
		t.Fatalf("unexpected counts: started=%d finished=%v", recorder.started, recorder.finished)
	}
	for i := range want {
		if recorder.finished[i] != want[i] {
			t.Fatalf("update %d: expected %q, got %q", i, want[i], recorder.finished[i])
		}
	}
	if last := recorder.stats[len(recorder.stats)-1]; last.SearchQueries != 1 {
		t.Fatalf("unexpected stats: %+v", last)
	}
}

func TestInstrumentedWithoutRecorder(t *testing.T) {
	handler := NewInstrumented(handlerFake{}, nil, nil)
	handler.HandleCallback(context.Background(), domain.CallbackEvent{})
}

func TestInstrumentedRecordsHandlerFailures(t *testing.T) {
	h := newHarness()
	h.store.StartUpload(7, 42)
	recorder := &recorderFake{}
	handler := NewInstrumented(h.controller, h.store, recorder)
	cb := domain.CallbackEvent{ID: "cb", ChatID: 7, UserID: 1, Message: domain.MessageRef{ChatID: 7, MessageID: 1}}

	cb.Data = "tagp:0:42"
	handler.HandleCallback(context.Background(), cb)
	h.backend.itemsErr = errors.New("backend down")
	handler.HandleCallback(context.Background(), cb)
	handler.HandleMessage(context.Background(), domain.IncomingMessage{ChatID: 7, UserID: 1, Command: "help"})

	want := []string{"callback", "callback:failed", "command"}
	if !reflect.DeepEqual(recorder.finished, want) {
		t.Fatalf("expected %v, got %v", want, recorder.finished)
	}
}
