package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/paperless-bot/internal/core/domain"
	"github.com/kirillkom/paperless-bot/internal/infrastructure/resilience"
)

type connFake struct {
	errs []error
	msgs []*nats.Msg
}

func (c *connFake) PublishMsg(msg *nats.Msg) error {
	c.msgs = append(c.msgs, msg)
	if len(c.errs) == 0 {
		return nil
	}
	err := c.errs[0]
	c.errs = c.errs[1:]
	return err
}

func TestPublishEncodesEvent(t *testing.T) {
	conn := &connFake{}
	publisher := newPublisher(conn, "paperless.bot.events", nil)
	occurred := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	err := publisher.Publish(context.Background(), domain.Event{
		Type:       "upload.success",
		ChatID:     7,
		DocumentID: 42,
		Status:     domain.TaskSuccess,
		OccurredAt: occurred,
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(conn.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(conn.msgs))
	}
	msg := conn.msgs[0]
	if msg.Subject != "paperless.bot.events.upload.success" {
		t.Fatalf("unexpected subject: %s", msg.Subject)
	}
	if msg.Header.Get("Event-Type") != "upload.success" || msg.Header.Get(nats.MsgIdHdr) == "" {
		t.Fatalf("unexpected headers: %v", msg.Header)
	}
	var decoded domain.Event
	if err := json.Unmarshal(msg.Data, &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.DocumentID != 42 || decoded.ChatID != 7 || !decoded.OccurredAt.Equal(occurred) {
		t.Fatalf("unexpected payload: %+v", decoded)
	}
}

func TestPublishRetriesTransientErrors(t *testing.T) {
	conn := &connFake{errs: []error{nats.ErrTimeout}}
	cfg := resilience.DefaultConfig()
	cfg.RetryInitialBackoff = time.Millisecond
	cfg.BreakerEnabled = false
	publisher := newPublisher(conn, "events", resilience.NewExecutor("nats", cfg))

	if err := publisher.Publish(context.Background(), domain.Event{Type: "inbox.reviewed"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(conn.msgs) != 2 {
		t.Fatalf("expected retry, got %d attempts", len(conn.msgs))
	}
}

func TestPublishWrapsConnectionFailures(t *testing.T) {
	conn := &connFake{errs: []error{nats.ErrConnectionClosed}}
	publisher := newPublisher(conn, "events", nil)

	err := publisher.Publish(context.Background(), domain.Event{Type: "upload.failed"})
	if !domain.IsKind(err, domain.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}

	conn.errs = []error{errors.New("permissions violation")}
	err = publisher.Publish(context.Background(), domain.Event{Type: "upload.failed"})
	if err == nil || domain.IsKind(err, domain.ErrTransport) {
		t.Fatalf("expected plain error, got %v", err)
	}
}

func TestSubjectWithoutType(t *testing.T) {
	publisher := newPublisher(&connFake{}, "events", nil)
	if got := publisher.Subject(""); got != "events" {
		t.Fatalf("unexpected subject: %s", got)
	}
}

func TestNoopPublisher(t *testing.T) {
	if err := (Noop{}).Publish(context.Background(), domain.Event{Type: "x"}); err != nil {
		t.Fatalf("noop publish: %v", err)
	}
}
