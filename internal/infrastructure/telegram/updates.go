package telegram

import (
	"context"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kirillkom/paperless-bot/internal/core/domain"
	"github.com/kirillkom/paperless-bot/internal/core/ports"
)

const defaultMaxConcurrentUpdates = 16

// Run long-polls for updates and dispatches them until ctx is cancelled. At
// most maxConcurrent handlers run at once; Run returns after in-flight
// handlers finish.
func (g *Gateway) Run(ctx context.Context, handler ports.UpdateHandler, maxConcurrent int) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = g.pollTimeout
	cfg.AllowedUpdates = []string{"message", "callback_query"}
	updates := g.bot.GetUpdatesChan(cfg)

	slog.Info("telegram_polling_started", "bot", g.bot.Self.UserName)
	err := dispatchUpdates(ctx, updates, handler, maxConcurrent)
	g.bot.StopReceivingUpdates()
	slog.Info("telegram_polling_stopped")
	return err
}

func dispatchUpdates(ctx context.Context, updates <-chan tgbotapi.Update, handler ports.UpdateHandler, maxConcurrent int) error {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrentUpdates
	}
	slots := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup
	defer wg.Wait()

	// Handlers outlive the polling context so a shutdown lets them finish.
	handlerCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			select {
			case slots <- struct{}{}:
			case <-ctx.Done():
				return nil
			}
			wg.Add(1)
			go func() {
				defer func() {
					<-slots
					wg.Done()
				}()
				dispatch(handlerCtx, handler, update)
			}()
		}
	}
}

func dispatch(ctx context.Context, handler ports.UpdateHandler, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		handler.HandleMessage(ctx, incomingMessage(update.UpdateID, update.Message))
	case update.CallbackQuery != nil:
		cb, ok := callbackEvent(update.UpdateID, update.CallbackQuery)
		if !ok {
			slog.Debug("callback_without_message", "update_id", update.UpdateID)
			return
		}
		handler.HandleCallback(ctx, cb)
	default:
		slog.Debug("update_ignored", "update_id", update.UpdateID)
	}
}

func incomingMessage(updateID int, msg *tgbotapi.Message) domain.IncomingMessage {
	out := domain.IncomingMessage{
		UpdateID:  updateID,
		MessageID: msg.MessageID,
		SentAt:    msg.Time(),
		Text:      msg.Text,
	}
	if msg.Chat != nil {
		out.ChatID = msg.Chat.ID
	}
	if msg.From != nil {
		out.UserID = msg.From.ID
	}
	if msg.IsCommand() {
		out.Command = msg.Command()
		out.CommandArgs = msg.CommandArguments()
	}

	switch {
	case msg.Document != nil:
		out.Attachment = &domain.Attachment{
			FileID:   msg.Document.FileID,
			FileName: msg.Document.FileName,
			MimeType: msg.Document.MimeType,
			Size:     int64(msg.Document.FileSize),
		}
	case len(msg.Photo) > 0:
		// Sizes are listed smallest first.
		photo := msg.Photo[len(msg.Photo)-1]
		out.Attachment = &domain.Attachment{
			FileID:   photo.FileID,
			MimeType: "image/jpeg",
			Size:     int64(photo.FileSize),
			IsPhoto:  true,
		}
	}
	return out
}

func callbackEvent(updateID int, query *tgbotapi.CallbackQuery) (domain.CallbackEvent, bool) {
	if query.Message == nil || query.Message.Chat == nil {
		return domain.CallbackEvent{}, false
	}
	out := domain.CallbackEvent{
		UpdateID: updateID,
		ID:       query.ID,
		ChatID:   query.Message.Chat.ID,
		Message: domain.MessageRef{
			ChatID:    query.Message.Chat.ID,
			MessageID: query.Message.MessageID,
		},
		Data: query.Data,
	}
	if query.From != nil {
		out.UserID = query.From.ID
	}
	return out, true
}
