package chat

import (
	"context"
	"time"

	"github.com/kirillkom/paperless-bot/internal/core/domain"
	"github.com/kirillkom/paperless-bot/internal/core/ports"
)

// UpdateRecorder receives per-update telemetry.
type UpdateRecorder interface {
	StartUpdate()
	FinishUpdate(kind string, duration time.Duration, failed bool)
	SetConversationStats(stats domain.ConversationStats)
}

// Instrumented wraps an update handler with timing and conversation gauges.
type Instrumented struct {
	next     ports.UpdateHandler
	store    ports.ConversationStore
	recorder UpdateRecorder
}

func NewInstrumented(next ports.UpdateHandler, store ports.ConversationStore, recorder UpdateRecorder) *Instrumented {
	return &Instrumented{next: next, store: store, recorder: recorder}
}

func (h *Instrumented) HandleMessage(ctx context.Context, msg domain.IncomingMessage) {
	kind := "text"
	switch {
	case msg.Command != "":
		kind = "command"
	case msg.Attachment != nil:
		kind = "attachment"
	}
	h.observe(ctx, kind, func(ctx context.Context) { h.next.HandleMessage(ctx, msg) })
}

func (h *Instrumented) HandleCallback(ctx context.Context, cb domain.CallbackEvent) {
	h.observe(ctx, "callback", func(ctx context.Context) { h.next.HandleCallback(ctx, cb) })
}

func (h *Instrumented) observe(ctx context.Context, kind string, handle func(context.Context)) {
	if h.recorder == nil {
		handle(ctx)
		return
	}
	ctx, outcome := withOutcome(ctx)
	h.recorder.StartUpdate()
	started := time.Now()
	failed := true
	defer func() {
		h.recorder.FinishUpdate(kind, time.Since(started), failed)
		if h.store != nil {
			h.recorder.SetConversationStats(h.store.Stats())
		}
	}()
	handle(ctx)
	failed = outcome.failed
}

// updateOutcome tracks what happened while one update was handled.
type updateOutcome struct {
	replied bool
	failed  bool
}

type outcomeKey struct{}

// withOutcome returns the outcome already attached to ctx or attaches a new one.
func withOutcome(ctx context.Context) (context.Context, *updateOutcome) {
	if outcome, ok := ctx.Value(outcomeKey{}).(*updateOutcome); ok {
		return ctx, outcome
	}
	outcome := &updateOutcome{}
	return context.WithValue(ctx, outcomeKey{}, outcome), outcome
}

func outcomeFrom(ctx context.Context) *updateOutcome {
	if outcome, ok := ctx.Value(outcomeKey{}).(*updateOutcome); ok {
		return outcome
	}
	return &updateOutcome{}
}

func markReplied(ctx context.Context) { outcomeFrom(ctx).replied = true }

func markFailed(ctx context.Context) { outcomeFrom(ctx).failed = true }
