package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/paperless-bot/internal/core/domain"
	"github.com/kirillkom/paperless-bot/internal/observability/logging"
)

const uploadFailedText = "Upload failed. Check logs."

func (c *Controller) handleAttachment(ctx context.Context, msg domain.IncomingMessage) error {
	attachment := *msg.Attachment
	filename := c.attachmentFilename(msg)

	if attachment.Size > domain.MaxTransferSize {
		c.reply(ctx, msg.ChatID, plainMessage(
			fmt.Sprintf("File too large for Telegram (%s > 50MB limit).", formatMegabytes(attachment.Size)), nil))
		return nil
	}

	statusText := "Uploading " + code(filename) + " to Paperless-NGX..."
	if attachment.IsPhoto {
		statusText = "Uploading photo to Paperless-NGX..."
	}
	status, ok := c.reply(ctx, msg.ChatID, htmlMessage(statusText, nil))
	if !ok {
		return nil
	}

	content, err := c.gateway.DownloadAttachment(ctx, attachment)
	if err != nil {
		c.edit(ctx, status, plainMessage(uploadFailedText, nil))
		return fmt.Errorf("download attachment: %w", err)
	}

	description := ""
	if c.inspector != nil {
		description = c.inspector.Describe(filename, content)
	}

	outcome, err := c.uploads.Process(ctx, domain.UploadInput{
		ChatID:   msg.ChatID,
		Filename: filename,
		Content:  content,
	}, func(taskID string) {
		text := "Uploaded! Processing... (task: " + code(firstRunes(taskID, 8)) + ")"
		if description != "" {
			text += "\n" + description
		}
		c.edit(ctx, status, htmlMessage(text, nil))
	})
	if err != nil {
		c.edit(ctx, status, plainMessage(uploadFailedText, nil))
		return fmt.Errorf("upload %s: %w", filename, err)
	}

	c.edit(ctx, status, c.renderOutcome(ctx, msg.ChatID, outcome))
	return nil
}

// attachmentFilename names photos after the message time since they arrive
// without one.
func (c *Controller) attachmentFilename(msg domain.IncomingMessage) string {
	attachment := msg.Attachment
	if attachment.IsPhoto {
		sentAt := msg.SentAt
		if sentAt.IsZero() {
			sentAt = c.now()
		}
		return "photo_" + sentAt.Format("20060102_150405") + ".jpg"
	}
	if name := strings.TrimSpace(attachment.FileName); name != "" {
		return name
	}
	return "document"
}

// renderOutcome maps the upload result onto the final status message and
// opens the metadata menu for a freshly ingested document.
func (c *Controller) renderOutcome(ctx context.Context, chatID int64, outcome domain.UploadOutcome) domain.OutgoingMessage {
	result := outcome.Result
	switch result.Status {
	case domain.TaskSuccess:
		if outcome.Document == nil {
			return plainMessage("Document processed.", nil)
		}
		c.store.StartUpload(chatID, outcome.Document.ID)
		text := "Document processed: " + bold(outcome.Document.Title) + "\n\nSet metadata?"
		return htmlMessage(text, MetadataKeyboard(outcome.Document.ID))

	case domain.TaskDuplicate:
		if outcome.Document != nil {
			existing := outcome.Document
			text := fmt.Sprintf("Duplicate detected. This file already exists as %s (#%d).\nAdded: %s",
				bold(existing.Title), existing.ID, escape(existing.Added))
			return htmlMessage(text, DocumentListKeyboard([]domain.Document{*existing}, false))
		}
		if result.HasDocument {
			logging.FromContext(ctx).Warn("duplicate_document_unavailable", "document_id", result.DocumentID)
			return plainMessage(fmt.Sprintf("Duplicate detected. Existing document: #%d", result.DocumentID), nil)
		}
		return plainMessage("Duplicate detected. This file already exists in Paperless.", nil)

	case domain.TaskFailed:
		message := result.Message
		if message == "" {
			message = "Unknown error"
		}
		return plainMessage("Processing failed: "+message, nil)

	default:
		return plainMessage("Processing timed out. The document may still appear in Paperless shortly.", nil)
	}
}
