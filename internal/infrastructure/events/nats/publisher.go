package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/kirillkom/paperless-bot/internal/core/domain"
	"github.com/kirillkom/paperless-bot/internal/infrastructure/resilience"
)

type msgPublisher interface {
	PublishMsg(msg *nats.Msg) error
}

// Publisher emits bot events as JSON on "<subject>.<event type>".
type Publisher struct {
	conn     *nats.Conn
	out      msgPublisher
	subject  string
	executor *resilience.Executor
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func New(url, subject string, options Options) (*Publisher, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("paperless-bot"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	publisher := newPublisher(conn, subject, options.ResilienceExecutor)
	publisher.conn = conn
	return publisher, nil
}

func newPublisher(out msgPublisher, subject string, executor *resilience.Executor) *Publisher {
	return &Publisher{out: out, subject: subject, executor: executor}
}

func (p *Publisher) Close() {
	if p.conn == nil {
		return
	}
	if err := p.conn.FlushTimeout(5 * time.Second); err != nil {
		slog.Warn("nats_flush_failed", "error", err)
	}
	p.conn.Close()
}

func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.Type, err)
	}

	msg := nats.NewMsg(p.Subject(event.Type))
	msg.Data = payload
	msg.Header.Set(nats.MsgIdHdr, uuid.NewString())
	msg.Header.Set("Event-Type", event.Type)

	err = p.executor.Execute(ctx, "nats.publish", func(_ context.Context) error {
		if err := p.out.PublishMsg(msg); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}, classifyNATSError)
	if err != nil {
		return wrapTransportIfNeeded(err)
	}
	return nil
}

func (p *Publisher) Subject(eventType string) string {
	if eventType == "" {
		return p.subject
	}
	return p.subject + "." + eventType
}

// Noop discards events when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, domain.Event) error { return nil }
