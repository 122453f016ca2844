package chat

import (
	"context"
	"fmt"

	"github.com/kirillkom/paperless-bot/internal/core/domain"
)

func (c *Controller) handleDownload(ctx context.Context, chatID, documentID int64) error {
	file, err := c.backend.DownloadDocument(ctx, documentID)
	if err != nil {
		c.reply(ctx, chatID, plainMessage("Download failed.", nil))
		return fmt.Errorf("download document %d: %w", documentID, err)
	}

	size := int64(len(file.Content))
	if size > domain.MaxTransferSize {
		c.reply(ctx, chatID, plainMessage(
			fmt.Sprintf("File too large for Telegram (%s > 50MB limit).", formatMegabytes(size)), nil))
		return nil
	}

	if err := c.gateway.SendFile(ctx, chatID, file); err != nil {
		c.reply(ctx, chatID, plainMessage("Download failed.", nil))
		return fmt.Errorf("send document %d: %w", documentID, err)
	}
	return nil
}
