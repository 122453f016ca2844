package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/paperless-bot/internal/core/domain"
	"github.com/kirillkom/paperless-bot/internal/observability/logging"
)

func (c *Controller) handleCommand(ctx context.Context, msg domain.IncomingMessage) error {
	switch strings.ToLower(msg.Command) {
	case "start", "help":
		c.reply(ctx, msg.ChatID, htmlMessage(helpText, nil))
		return nil
	case "search":
		query := strings.TrimSpace(msg.CommandArgs)
		if query == "" {
			c.reply(ctx, msg.ChatID, plainMessage("Usage: /search <query>", nil))
			return nil
		}
		return c.search(ctx, msg.ChatID, query)
	case "recent":
		return c.handleRecent(ctx, msg.ChatID)
	case "inbox":
		return c.handleInbox(ctx, msg.ChatID)
	case "stats":
		return c.handleStats(ctx, msg.ChatID)
	default:
		logging.FromContext(ctx).Debug("unknown_command", "command", msg.Command)
		return nil
	}
}

// handleText consumes a pending item name first; any other text is a search.
func (c *Controller) handleText(ctx context.Context, msg domain.IncomingMessage) error {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}
	if pending, ok := c.store.TakePendingCreate(msg.ChatID); ok {
		return c.createItem(ctx, msg.ChatID, text, pending)
	}
	return c.search(ctx, msg.ChatID, text)
}

func (c *Controller) handleRecent(ctx context.Context, chatID int64) error {
	docs, _, err := c.backend.RecentDocuments(ctx, c.pageSize)
	if err != nil {
		c.reply(ctx, chatID, plainMessage("Failed to fetch recent documents.", nil))
		return fmt.Errorf("recent documents: %w", err)
	}
	if len(docs) == 0 {
		c.reply(ctx, chatID, plainMessage("No documents found.", nil))
		return nil
	}
	text := bold("Recent Documents") + "\n\n" + FormatDocumentList(docs)
	c.reply(ctx, chatID, htmlMessage(text, DocumentListKeyboard(docs, false)))
	return nil
}

func (c *Controller) handleInbox(ctx context.Context, chatID int64) error {
	docs, total, err := c.backend.InboxDocuments(ctx, c.pageSize)
	if err != nil {
		c.reply(ctx, chatID, plainMessage("Failed to fetch inbox documents.", nil))
		return fmt.Errorf("inbox documents: %w", err)
	}
	if len(docs) == 0 {
		c.reply(ctx, chatID, plainMessage("Inbox is empty.", nil))
		return nil
	}
	text := fmt.Sprintf("%s (%d documents)\n\n%s", bold("Inbox"), total, FormatDocumentList(docs))
	c.reply(ctx, chatID, htmlMessage(text, DocumentListKeyboard(docs, true)))
	return nil
}

func (c *Controller) handleReviewInbox(ctx context.Context, chatID, documentID int64) error {
	if err := c.backend.RemoveInboxTag(ctx, documentID); err != nil {
		c.reply(ctx, chatID, plainMessage("Failed to update document.", nil))
		return fmt.Errorf("remove inbox tag from %d: %w", documentID, err)
	}
	c.reply(ctx, chatID, plainMessage(fmt.Sprintf("Document #%d marked as reviewed.", documentID), nil))
	c.publish(ctx, domain.Event{Type: "inbox.reviewed", ChatID: chatID, DocumentID: documentID})
	return nil
}

func (c *Controller) handleStats(ctx context.Context, chatID int64) error {
	stats, err := c.backend.Statistics(ctx)
	if err != nil {
		c.reply(ctx, chatID, plainMessage("Failed to fetch statistics.", nil))
		return fmt.Errorf("statistics: %w", err)
	}
	c.reply(ctx, chatID, htmlMessage(formatStatistics(stats), nil))
	return nil
}
