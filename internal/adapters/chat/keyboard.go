package chat

import (
	"github.com/kirillkom/paperless-bot/internal/core/domain"
)

const (
	SelectionPageSize = 8

	maxLabelRunes    = 60
	downloadTitleLen = 40
)

func MetadataKeyboard(documentID int64) domain.Keyboard {
	return domain.Keyboard{
		{
			callbackButton("Set Tags", MetaAction{Step: MetaTags, DocumentID: documentID}),
			callbackButton("Set Correspondent", MetaAction{Step: MetaCorrespondent, DocumentID: documentID}),
		},
		{
			callbackButton("Set Document Type", MetaAction{Step: MetaDocumentType, DocumentID: documentID}),
			callbackButton("Done", MetaAction{Step: MetaDone, DocumentID: documentID}),
		},
	}
}

// TagSelectionKeyboard renders one page of tags with their selection marker,
// page navigation and the new/confirm row.
func TagSelectionKeyboard(tags []domain.Item, selected map[int64]struct{}, documentID int64, page int) domain.Keyboard {
	start, end := pageBounds(len(tags), page)

	keyboard := make(domain.Keyboard, 0, end-start+2)
	for _, tag := range tags[start:end] {
		_, checked := selected[tag.ID]
		icon := "[ ]"
		if checked {
			icon = "[x]"
		}
		keyboard = append(keyboard, []domain.Button{
			callbackButton(truncateLabel(icon+" "+tag.Name), ToggleTagAction{Selected: checked, TagID: tag.ID, DocumentID: documentID}),
		})
	}

	var nav []domain.Button
	if page > 0 {
		nav = append(nav, callbackButton("< Prev", TagPageAction{Page: page - 1, DocumentID: documentID}))
	}
	if end < len(tags) {
		nav = append(nav, callbackButton("Next >", TagPageAction{Page: page + 1, DocumentID: documentID}))
	}
	if len(nav) > 0 {
		keyboard = append(keyboard, nav)
	}

	return append(keyboard, []domain.Button{
		callbackButton("+ New Tag", NewItemAction{Kind: domain.KindTag, DocumentID: documentID}),
		callbackButton("Confirm Tags", ConfirmTagsAction{DocumentID: documentID}),
	})
}

// SingleSelectKeyboard renders one page of correspondents or document types.
func SingleSelectKeyboard(kind domain.ItemKind, items []domain.Item, documentID int64, page int) domain.Keyboard {
	start, end := pageBounds(len(items), page)

	keyboard := make(domain.Keyboard, 0, end-start+2)
	for _, item := range items[start:end] {
		keyboard = append(keyboard, []domain.Button{
			callbackButton(truncateLabel(item.Name), SelectItemAction{Kind: kind, ItemID: item.ID, DocumentID: documentID}),
		})
	}

	var nav []domain.Button
	if page > 0 {
		nav = append(nav, callbackButton("< Prev", ItemPageAction{Kind: kind, Page: page - 1, DocumentID: documentID}))
	}
	if end < len(items) {
		nav = append(nav, callbackButton("Next >", ItemPageAction{Kind: kind, Page: page + 1, DocumentID: documentID}))
	}
	if len(nav) > 0 {
		keyboard = append(keyboard, nav)
	}

	newLabel := "+ New Type"
	if kind == domain.KindCorrespondent {
		newLabel = "+ New Correspondent"
	}
	return append(keyboard, []domain.Button{
		callbackButton(newLabel, NewItemAction{Kind: kind, DocumentID: documentID}),
		callbackButton("Skip", SelectItemAction{Kind: kind, Skip: true, DocumentID: documentID}),
	})
}

// SearchResultsKeyboard lists download buttons and 1-based page navigation.
func SearchResultsKeyboard(docs []domain.Document, page, total, pageSize int) domain.Keyboard {
	keyboard := DocumentListKeyboard(docs, false)

	totalPages := TotalPages(total, pageSize)
	var nav []domain.Button
	if page > 1 {
		nav = append(nav, callbackButton("< Prev", SearchPageAction{Page: page - 1}))
	}
	if page < totalPages {
		nav = append(nav, callbackButton("Next >", SearchPageAction{Page: page + 1}))
	}
	if len(nav) > 0 {
		keyboard = append(keyboard, nav)
	}
	return keyboard
}

// DocumentListKeyboard adds a download button per document; withReview adds
// a button that removes the inbox tag.
func DocumentListKeyboard(docs []domain.Document, withReview bool) domain.Keyboard {
	keyboard := make(domain.Keyboard, 0, len(docs))
	for _, doc := range docs {
		row := []domain.Button{
			callbackButton("Download: "+firstRunes(doc.Title, downloadTitleLen), DownloadAction{DocumentID: doc.ID}),
		}
		if withReview {
			row = append(row, callbackButton("Reviewed", ReviewInboxAction{DocumentID: doc.ID}))
		}
		keyboard = append(keyboard, row)
	}
	return keyboard
}

func CancelCreateKeyboard(kind domain.ItemKind, documentID int64) domain.Keyboard {
	return domain.Keyboard{
		{callbackButton("Cancel", CancelCreateAction{Kind: kind, DocumentID: documentID})},
	}
}

func TotalPages(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// PageOf is the selection page holding the item at index.
func PageOf(index int) int {
	if index < 0 {
		return 0
	}
	return index / SelectionPageSize
}

func pageBounds(n, page int) (int, int) {
	if page < 0 {
		page = 0
	}
	start := page * SelectionPageSize
	if start > n {
		start = n
	}
	end := start + SelectionPageSize
	if end > n {
		end = n
	}
	return start, end
}

func callbackButton(label string, action Action) domain.Button {
	return domain.Button{Text: label, Data: action.Encode()}
}

func truncateLabel(label string) string {
	runes := []rune(label)
	if len(runes) <= maxLabelRunes {
		return label
	}
	return string(runes[:maxLabelRunes-3]) + "..."
}

func firstRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
