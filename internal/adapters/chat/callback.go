package chat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kirillkom/paperless-bot/internal/core/domain"
)

// MaxCallbackDataBytes is the gateway limit for button payloads.
const MaxCallbackDataBytes = 64

// Action is a decoded button payload. Every implementation encodes back to the
// exact wire form it was parsed from.
type Action interface {
	Encode() string
	isAction()
}

type MetaStep string

const (
	MetaTags          MetaStep = "tags"
	MetaCorrespondent MetaStep = "corr"
	MetaDocumentType  MetaStep = "dtype"
	MetaDone          MetaStep = "done"
)

// MetaAction opens a screen of the metadata menu, or closes it.
type MetaAction struct {
	Step       MetaStep
	DocumentID int64
}

// ToggleTagAction flips one tag; Selected records the state shown on the button.
type ToggleTagAction struct {
	Selected   bool
	TagID      int64
	DocumentID int64
}

type TagPageAction struct {
	Page       int
	DocumentID int64
}

type ConfirmTagsAction struct {
	DocumentID int64
}

// NewItemAction asks for the name of a new tag, correspondent or document type.
type NewItemAction struct {
	Kind       domain.ItemKind
	DocumentID int64
}

type CancelCreateAction struct {
	Kind       domain.ItemKind
	DocumentID int64
}

// SelectItemAction assigns a correspondent or document type. Skip leaves the
// field untouched.
type SelectItemAction struct {
	Kind       domain.ItemKind
	ItemID     int64
	Skip       bool
	DocumentID int64
}

type ItemPageAction struct {
	Kind       domain.ItemKind
	Page       int
	DocumentID int64
}

type DownloadAction struct {
	DocumentID int64
}

type SearchPageAction struct {
	Page int
}

// ReviewInboxAction removes the inbox tag from a document.
type ReviewInboxAction struct {
	DocumentID int64
}

func (MetaAction) isAction()         {}
func (ToggleTagAction) isAction()    {}
func (TagPageAction) isAction()      {}
func (ConfirmTagsAction) isAction()  {}
func (NewItemAction) isAction()      {}
func (CancelCreateAction) isAction() {}
func (SelectItemAction) isAction()   {}
func (ItemPageAction) isAction()     {}
func (DownloadAction) isAction()     {}
func (SearchPageAction) isAction()   {}
func (ReviewInboxAction) isAction()  {}

func (a MetaAction) Encode() string {
	return join("meta", string(a.Step), formatID(a.DocumentID))
}

func (a ToggleTagAction) Encode() string {
	marker := "o"
	if a.Selected {
		marker = "x"
	}
	return join("tag", marker, formatID(a.TagID), formatID(a.DocumentID))
}

func (a TagPageAction) Encode() string {
	return join("tagp", strconv.Itoa(a.Page), formatID(a.DocumentID))
}

func (a ConfirmTagsAction) Encode() string {
	return join("tagok", formatID(a.DocumentID))
}

func (a NewItemAction) Encode() string {
	return join("new"+string(a.Kind), formatID(a.DocumentID))
}

func (a CancelCreateAction) Encode() string {
	return join("ccr", string(a.Kind), formatID(a.DocumentID))
}

func (a SelectItemAction) Encode() string {
	value := "skip"
	if !a.Skip {
		value = formatID(a.ItemID)
	}
	return join(string(a.Kind), value, formatID(a.DocumentID))
}

func (a ItemPageAction) Encode() string {
	return join(string(a.Kind)+"p", strconv.Itoa(a.Page), formatID(a.DocumentID))
}

func (a DownloadAction) Encode() string {
	return join("dl", formatID(a.DocumentID))
}

func (a SearchPageAction) Encode() string {
	return join("sp", strconv.Itoa(a.Page))
}

func (a ReviewInboxAction) Encode() string {
	return join("ibx", formatID(a.DocumentID))
}

// ParseAction decodes a button payload. Unknown or malformed payloads yield a
// domain.ErrValidation error.
func ParseAction(data string) (Action, error) {
	parts := strings.Split(data, ":")
	prefix, args := parts[0], parts[1:]

	switch prefix {
	case "meta":
		if len(args) != 2 {
			return nil, malformed(data)
		}
		step := MetaStep(args[0])
		switch step {
		case MetaTags, MetaCorrespondent, MetaDocumentType, MetaDone:
		default:
			return nil, malformed(data)
		}
		doc, err := parseID(args[1])
		if err != nil {
			return nil, malformed(data)
		}
		return MetaAction{Step: step, DocumentID: doc}, nil

	case "tag":
		if len(args) != 3 || (args[0] != "x" && args[0] != "o") {
			return nil, malformed(data)
		}
		tagID, err := parseID(args[1])
		if err != nil {
			return nil, malformed(data)
		}
		doc, err := parseID(args[2])
		if err != nil {
			return nil, malformed(data)
		}
		return ToggleTagAction{Selected: args[0] == "x", TagID: tagID, DocumentID: doc}, nil

	case "tagp":
		page, doc, err := parsePageDoc(args)
		if err != nil {
			return nil, malformed(data)
		}
		return TagPageAction{Page: page, DocumentID: doc}, nil

	case "tagok":
		doc, err := parseSingleID(args)
		if err != nil {
			return nil, malformed(data)
		}
		return ConfirmTagsAction{DocumentID: doc}, nil

	case "newtag", "newcorr", "newdtype":
		doc, err := parseSingleID(args)
		if err != nil {
			return nil, malformed(data)
		}
		return NewItemAction{Kind: domain.ItemKind(strings.TrimPrefix(prefix, "new")), DocumentID: doc}, nil

	case "ccr":
		if len(args) != 2 || !domain.ItemKind(args[0]).Valid() {
			return nil, malformed(data)
		}
		doc, err := parseID(args[1])
		if err != nil {
			return nil, malformed(data)
		}
		return CancelCreateAction{Kind: domain.ItemKind(args[0]), DocumentID: doc}, nil

	case "corr", "dtype":
		if len(args) != 2 {
			return nil, malformed(data)
		}
		doc, err := parseID(args[1])
		if err != nil {
			return nil, malformed(data)
		}
		action := SelectItemAction{Kind: domain.ItemKind(prefix), DocumentID: doc}
		if args[0] == "skip" {
			action.Skip = true
			return action, nil
		}
		itemID, err := parseID(args[0])
		if err != nil {
			return nil, malformed(data)
		}
		action.ItemID = itemID
		return action, nil

	case "corrp", "dtypep":
		page, doc, err := parsePageDoc(args)
		if err != nil {
			return nil, malformed(data)
		}
		return ItemPageAction{Kind: domain.ItemKind(strings.TrimSuffix(prefix, "p")), Page: page, DocumentID: doc}, nil

	case "dl":
		doc, err := parseSingleID(args)
		if err != nil {
			return nil, malformed(data)
		}
		return DownloadAction{DocumentID: doc}, nil

	case "sp":
		if len(args) != 1 {
			return nil, malformed(data)
		}
		page, err := strconv.Atoi(args[0])
		if err != nil || page < 1 {
			return nil, malformed(data)
		}
		return SearchPageAction{Page: page}, nil

	case "ibx":
		doc, err := parseSingleID(args)
		if err != nil {
			return nil, malformed(data)
		}
		return ReviewInboxAction{DocumentID: doc}, nil
	}
	return nil, malformed(data)
}

func malformed(data string) error {
	return domain.WrapError(domain.ErrValidation, "parse callback", fmt.Errorf("unsupported payload %q", data))
}

func parseID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}

func parseSingleID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected one argument, got %d", len(args))
	}
	return parseID(args[0])
}

func parsePageDoc(args []string) (int, int64, error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("expected two arguments, got %d", len(args))
	}
	page, err := strconv.Atoi(args[0])
	if err != nil || page < 0 {
		return 0, 0, fmt.Errorf("invalid page %q", args[0])
	}
	doc, err := parseID(args[1])
	if err != nil {
		return 0, 0, err
	}
	return page, doc, nil
}

func join(parts ...string) string {
	return strings.Join(parts, ":")
}

func formatID(v int64) string {
	return strconv.FormatInt(v, 10)
}
