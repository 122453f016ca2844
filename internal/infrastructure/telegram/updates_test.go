package telegram

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kirillkom/paperless-bot/internal/core/domain"
)

type handlerRecorder struct {
	mu        sync.Mutex
	messages  []domain.IncomingMessage
	callbacks []domain.CallbackEvent

	block   chan struct{}
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (h *handlerRecorder) enter() {
	n := h.active.Add(1)
	for {
		seen := h.maxSeen.Load()
		if n <= seen || h.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	if h.block != nil {
		<-h.block
	}
	h.active.Add(-1)
}

func (h *handlerRecorder) HandleMessage(_ context.Context, msg domain.IncomingMessage) {
	h.enter()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
}

func (h *handlerRecorder) HandleCallback(_ context.Context, cb domain.CallbackEvent) {
	h.enter()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.callbacks = append(h.callbacks, cb)
}

func commandMessage(text string) *tgbotapi.Message {
	length := len(text)
	if i := strings.IndexByte(text, ' '); i >= 0 {
		length = i
	}
	return &tgbotapi.Message{
		MessageID: 3,
		Date:      1714550400,
		Chat:      &tgbotapi.Chat{ID: 7},
		From:      &tgbotapi.User{ID: 11},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}},
	}
}

func TestIncomingMessageConversion(t *testing.T) {
	msg := incomingMessage(9, commandMessage("/search tax 2023"))
	if msg.UpdateID != 9 || msg.ChatID != 7 || msg.UserID != 11 || msg.MessageID != 3 {
		t.Fatalf("unexpected ids: %+v", msg)
	}
	if msg.Command != "search" || msg.CommandArgs != "tax 2023" {
		t.Fatalf("unexpected command: %q %q", msg.Command, msg.CommandArgs)
	}
	if !msg.SentAt.Equal(time.Unix(1714550400, 0)) {
		t.Fatalf("unexpected time: %v", msg.SentAt)
	}

	document := incomingMessage(1, &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: 7},
		Document: &tgbotapi.Document{FileID: "d1", FileName: "bill.pdf", MimeType: "application/pdf", FileSize: 2048},
	})
	if document.Attachment == nil || document.Attachment.FileName != "bill.pdf" || document.Attachment.Size != 2048 {
		t.Fatalf("unexpected document attachment: %+v", document.Attachment)
	}

	photo := incomingMessage(1, &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: 7},
		Photo: []tgbotapi.PhotoSize{
			{FileID: "small", FileSize: 100},
			{FileID: "large", FileSize: 900},
		},
	})
	if photo.Attachment == nil || !photo.Attachment.IsPhoto || photo.Attachment.FileID != "large" {
		t.Fatalf("expected largest photo, got %+v", photo.Attachment)
	}
}

func TestCallbackEventConversion(t *testing.T) {
	cb, ok := callbackEvent(4, &tgbotapi.CallbackQuery{
		ID:      "q1",
		From:    &tgbotapi.User{ID: 11},
		Message: &tgbotapi.Message{MessageID: 55, Chat: &tgbotapi.Chat{ID: 7}},
		Data:    "tagok:42",
	})
	if !ok {
		t.Fatalf("expected conversion")
	}
	want := domain.CallbackEvent{
		UpdateID: 4,
		ID:       "q1",
		ChatID:   7,
		UserID:   11,
		Message:  domain.MessageRef{ChatID: 7, MessageID: 55},
		Data:     "tagok:42",
	}
	if cb != want {
		t.Fatalf("expected %+v, got %+v", want, cb)
	}

	if _, ok := callbackEvent(5, &tgbotapi.CallbackQuery{ID: "inline"}); ok {
		t.Fatalf("inline callbacks without a message must be skipped")
	}
}

func TestDispatchUpdatesHandlesAllAndWaits(t *testing.T) {
	handler := &handlerRecorder{}
	updates := make(chan tgbotapi.Update, 4)
	updates <- tgbotapi.Update{UpdateID: 1, Message: commandMessage("/help")}
	updates <- tgbotapi.Update{UpdateID: 2, CallbackQuery: &tgbotapi.CallbackQuery{
		ID: "q", Message: &tgbotapi.Message{MessageID: 1, Chat: &tgbotapi.Chat{ID: 7}}, Data: "dl:1",
	}}
	updates <- tgbotapi.Update{UpdateID: 3}
	updates <- tgbotapi.Update{UpdateID: 4, CallbackQuery: &tgbotapi.CallbackQuery{ID: "inline"}}
	close(updates)

	if err := dispatchUpdates(context.Background(), updates, handler, 2); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if len(handler.messages) != 1 || len(handler.callbacks) != 1 {
		t.Fatalf("unexpected dispatch: messages=%d callbacks=%d", len(handler.messages), len(handler.callbacks))
	}
}

func TestDispatchUpdatesBoundsConcurrency(t *testing.T) {
	handler := &handlerRecorder{block: make(chan struct{})}
	updates := make(chan tgbotapi.Update)
	done := make(chan error, 1)
	go func() {
		done <- dispatchUpdates(context.Background(), updates, handler, 2)
	}()

	go func() {
		for i := 1; i <= 3; i++ {
			updates <- tgbotapi.Update{UpdateID: i, Message: commandMessage("/help")}
		}
		close(updates)
	}()

	time.Sleep(50 * time.Millisecond)
	if got := handler.active.Load(); got != 2 {
		t.Fatalf("expected 2 busy handlers while blocked, got %d", got)
	}

	close(handler.block)
	if err := <-done; err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got := handler.maxSeen.Load(); got > 2 {
		t.Fatalf("expected at most 2 concurrent handlers, saw %d", got)
	}
	if len(handler.messages) != 3 {
		t.Fatalf("expected 3 handled messages, got %d", len(handler.messages))
	}
}

func TestDispatchUpdatesStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := dispatchUpdates(ctx, make(chan tgbotapi.Update), &handlerRecorder{}, 1); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
}
