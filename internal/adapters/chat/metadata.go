package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/paperless-bot/internal/core/domain"
)

const continueText = "\n\nContinue setting metadata?"

func selectPrompt(kind domain.ItemKind) string {
	switch kind {
	case domain.KindTag:
		return "Select tags:"
	case domain.KindCorrespondent:
		return "Select correspondent:"
	default:
		return "Select document type:"
	}
}

func (c *Controller) handleMeta(ctx context.Context, cb domain.CallbackEvent, a MetaAction) error {
	switch a.Step {
	case MetaTags:
		return c.showSelection(ctx, cb, domain.KindTag, a.DocumentID)
	case MetaCorrespondent:
		return c.showSelection(ctx, cb, domain.KindCorrespondent, a.DocumentID)
	case MetaDocumentType:
		return c.showSelection(ctx, cb, domain.KindDocumentType, a.DocumentID)
	default:
		c.store.FinishUpload(cb.ChatID)
		text := "Metadata saved.\n\n" + link("Open in Paperless", c.documentURL(a.DocumentID))
		c.edit(ctx, cb.Message, htmlMessage(text, nil))
		c.publish(ctx, domain.Event{Type: "metadata.saved", ChatID: cb.ChatID, DocumentID: a.DocumentID})
		return nil
	}
}

// showSelection replaces the message with the first page of a taxonomy picker.
func (c *Controller) showSelection(ctx context.Context, cb domain.CallbackEvent, kind domain.ItemKind, documentID int64) error {
	keyboard, err := c.selectionKeyboard(ctx, cb.ChatID, kind, documentID, 0)
	if err != nil {
		c.selectionFailed(ctx, cb.Message, kind, documentID)
		return err
	}
	c.edit(ctx, cb.Message, plainMessage(selectPrompt(kind), keyboard))
	return nil
}

// selectionFailed swaps a picker that could not be drawn for the metadata menu.
func (c *Controller) selectionFailed(ctx context.Context, ref domain.MessageRef, kind domain.ItemKind, documentID int64) {
	c.edit(ctx, ref, plainMessage(fmt.Sprintf("Failed to load %ss.", kind.Label()), MetadataKeyboard(documentID)))
}

func (c *Controller) selectionKeyboard(ctx context.Context, chatID int64, kind domain.ItemKind, documentID int64, page int) (domain.Keyboard, error) {
	items, err := c.backend.Items(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("load %s items: %w", kind, err)
	}
	if kind == domain.KindTag {
		return TagSelectionKeyboard(items, c.selectedTags(chatID), documentID, page), nil
	}
	return SingleSelectKeyboard(kind, items, documentID, page), nil
}

func (c *Controller) selectedTags(chatID int64) map[int64]struct{} {
	pending, ok := c.store.PendingUpload(chatID)
	if !ok {
		return map[int64]struct{}{}
	}
	return pending.Selected
}

// handleToggleTag flips the tag in the pending selection and redraws the page
// that holds it. The flip is undone when the page cannot be drawn.
func (c *Controller) handleToggleTag(ctx context.Context, cb domain.CallbackEvent, a ToggleTagAction) error {
	pending, ok := c.store.ToggleTag(cb.ChatID, a.TagID)
	if !ok {
		return nil
	}

	tags, err := c.backend.Items(ctx, domain.KindTag)
	if err != nil {
		c.store.ToggleTag(cb.ChatID, a.TagID)
		c.selectionFailed(ctx, cb.Message, domain.KindTag, a.DocumentID)
		return fmt.Errorf("load tags: %w", err)
	}
	page := 0
	for i, tag := range tags {
		if tag.ID == a.TagID {
			page = PageOf(i)
			break
		}
	}
	c.editKeyboard(ctx, cb.Message, TagSelectionKeyboard(tags, pending.Selected, a.DocumentID, page))
	return nil
}

func (c *Controller) handleTagPage(ctx context.Context, cb domain.CallbackEvent, a TagPageAction) error {
	keyboard, err := c.selectionKeyboard(ctx, cb.ChatID, domain.KindTag, a.DocumentID, a.Page)
	if err != nil {
		c.selectionFailed(ctx, cb.Message, domain.KindTag, a.DocumentID)
		return err
	}
	c.editKeyboard(ctx, cb.Message, keyboard)
	return nil
}

// handleConfirmTags applies the whole selection in one update. An empty
// selection sends nothing to the backend.
func (c *Controller) handleConfirmTags(ctx context.Context, cb domain.CallbackEvent, a ConfirmTagsAction) error {
	pending, ok := c.store.PendingUpload(cb.ChatID)
	if !ok || len(pending.Selected) == 0 {
		c.edit(ctx, cb.Message, plainMessage("No tags selected."+continueText, MetadataKeyboard(a.DocumentID)))
		return nil
	}

	ids := pending.SelectedIDs()
	if _, err := c.backend.UpdateDocument(ctx, a.DocumentID, domain.DocumentUpdate{Tags: &ids}); err != nil {
		c.edit(ctx, cb.Message, plainMessage("Failed to update tags.", MetadataKeyboard(a.DocumentID)))
		return fmt.Errorf("update tags of %d: %w", a.DocumentID, err)
	}

	names := make([]string, 0, len(ids))
	for _, tagID := range ids {
		names = append(names, c.backend.ItemName(domain.KindTag, tagID))
	}
	text := "Tags set: " + strings.Join(names, ", ") + continueText
	c.edit(ctx, cb.Message, plainMessage(text, MetadataKeyboard(a.DocumentID)))
	return nil
}

func (c *Controller) handleNewItem(ctx context.Context, cb domain.CallbackEvent, a NewItemAction) error {
	c.store.AwaitName(cb.ChatID, domain.PendingCreate{Kind: a.Kind, DocumentID: a.DocumentID})
	text := fmt.Sprintf("Type the name for the new %s as a text message:", a.Kind.Label())
	c.edit(ctx, cb.Message, plainMessage(text, CancelCreateKeyboard(a.Kind, a.DocumentID)))
	return nil
}

func (c *Controller) handleCancelCreate(ctx context.Context, cb domain.CallbackEvent, a CancelCreateAction) error {
	c.store.CancelPendingCreate(cb.ChatID)
	return c.showSelection(ctx, cb, a.Kind, a.DocumentID)
}

func (c *Controller) handleSelectItem(ctx context.Context, cb domain.CallbackEvent, a SelectItemAction) error {
	field := fieldTitle(a.Kind)
	if a.Skip {
		c.edit(ctx, cb.Message, plainMessage(field+" skipped."+continueText, MetadataKeyboard(a.DocumentID)))
		return nil
	}

	if _, err := c.backend.UpdateDocument(ctx, a.DocumentID, assignment(a.Kind, a.ItemID)); err != nil {
		c.edit(ctx, cb.Message, plainMessage(fmt.Sprintf("Failed to update %s.", a.Kind.Label()), MetadataKeyboard(a.DocumentID)))
		return fmt.Errorf("assign %s %d to %d: %w", a.Kind, a.ItemID, a.DocumentID, err)
	}
	text := field + " set: " + c.backend.ItemName(a.Kind, a.ItemID) + continueText
	c.edit(ctx, cb.Message, plainMessage(text, MetadataKeyboard(a.DocumentID)))
	return nil
}

func (c *Controller) handleItemPage(ctx context.Context, cb domain.CallbackEvent, a ItemPageAction) error {
	keyboard, err := c.selectionKeyboard(ctx, cb.ChatID, a.Kind, a.DocumentID, a.Page)
	if err != nil {
		c.selectionFailed(ctx, cb.Message, a.Kind, a.DocumentID)
		return err
	}
	c.editKeyboard(ctx, cb.Message, keyboard)
	return nil
}

// createItem turns captured text into a new taxonomy item. A new tag joins
// the pending selection; a correspondent or type is assigned immediately.
func (c *Controller) createItem(ctx context.Context, chatID int64, name string, pending domain.PendingCreate) error {
	item, err := c.backend.CreateItem(ctx, pending.Kind, name)
	if err != nil {
		c.reply(ctx, chatID, plainMessage(
			fmt.Sprintf("Failed to create %s. Check logs.", pending.Kind.Label()), MetadataKeyboard(pending.DocumentID)))
		return fmt.Errorf("create %s %q: %w", pending.Kind, name, err)
	}

	if pending.Kind == domain.KindTag {
		c.store.SelectTag(chatID, item.ID)
		keyboard, err := c.selectionKeyboard(ctx, chatID, domain.KindTag, pending.DocumentID, 0)
		if err != nil {
			text := "Tag " + bold(item.Name) + " created and selected, but tags could not be loaded." + continueText
			c.reply(ctx, chatID, htmlMessage(text, MetadataKeyboard(pending.DocumentID)))
			return err
		}
		text := "Tag " + bold(item.Name) + " created and selected.\n\nSelect tags:"
		c.reply(ctx, chatID, htmlMessage(text, keyboard))
		return nil
	}

	if _, err := c.backend.UpdateDocument(ctx, pending.DocumentID, assignment(pending.Kind, item.ID)); err != nil {
		c.reply(ctx, chatID, plainMessage(
			fmt.Sprintf("Failed to create %s. Check logs.", pending.Kind.Label()), MetadataKeyboard(pending.DocumentID)))
		return fmt.Errorf("assign new %s %d: %w", pending.Kind, item.ID, err)
	}
	label := fieldTitle(pending.Kind)
	if pending.Kind == domain.KindDocumentType {
		label = "Document type"
	}
	text := label + " " + bold(item.Name) + " created and assigned." + continueText
	c.reply(ctx, chatID, htmlMessage(text, MetadataKeyboard(pending.DocumentID)))
	return nil
}

func assignment(kind domain.ItemKind, itemID int64) domain.DocumentUpdate {
	id := itemID
	if kind == domain.KindCorrespondent {
		return domain.DocumentUpdate{Correspondent: &id}
	}
	return domain.DocumentUpdate{DocumentType: &id}
}
