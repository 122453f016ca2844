package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirillkom/paperless-bot/internal/core/domain"
	"github.com/kirillkom/paperless-bot/internal/observability/logging"
)

// search remembers the query for pagination and renders its first page into
// a fresh status message.
func (c *Controller) search(ctx context.Context, chatID int64, query string) error {
	c.store.RememberQuery(chatID, query)

	status, ok := c.reply(ctx, chatID, htmlMessage("Searching: "+code(query)+"...", nil))
	if !ok {
		return nil
	}

	docs, total, err := c.backend.SearchDocuments(ctx, query, 1, c.pageSize)
	if err != nil {
		c.edit(ctx, status, plainMessage("Search failed. Check logs.", nil))
		return fmt.Errorf("search %q: %w", query, err)
	}
	if len(docs) == 0 {
		c.edit(ctx, status, htmlMessage("No documents found for: "+code(query), nil))
		return nil
	}
	c.edit(ctx, status, c.searchResults(query, docs, 1, total))
	return nil
}

func (c *Controller) handleSearchPage(ctx context.Context, cb domain.CallbackEvent, page int) error {
	query, ok := c.store.LastQuery(cb.ChatID)
	if !ok {
		logging.FromContext(ctx).Info("search_page_rejected",
			"error", domain.WrapError(domain.ErrStateExpired, "search_page", errors.New("no stored query")))
		c.edit(ctx, cb.Message, plainMessage("Search expired. Send a new query.", nil))
		return nil
	}

	docs, total, err := c.backend.SearchDocuments(ctx, query, page, c.pageSize)
	if err != nil {
		c.edit(ctx, cb.Message, plainMessage("Search failed.", nil))
		return fmt.Errorf("search %q page %d: %w", query, page, err)
	}
	c.edit(ctx, cb.Message, c.searchResults(query, docs, page, total))
	return nil
}

func (c *Controller) searchResults(query string, docs []domain.Document, page, total int) domain.OutgoingMessage {
	text := fmt.Sprintf("%s (%d results)\n\n%s", bold("Search: "+query), total, FormatDocumentList(docs))
	return htmlMessage(text, SearchResultsKeyboard(docs, page, total, c.pageSize))
}
