package chat

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/paperless-bot/internal/core/domain"
	"github.com/kirillkom/paperless-bot/internal/core/ports"
	"github.com/kirillkom/paperless-bot/internal/observability/logging"
)

const (
	deniedText  = "You are not authorized to use this bot."
	genericFail = "Something went wrong. Please try again."
)

type Dependencies struct {
	Backend   ports.DocumentBackend
	Store     ports.ConversationStore
	Gateway   ports.MessagingGateway
	Uploads   ports.UploadProcessor
	Publisher ports.EventPublisher
	Inspector ports.AttachmentInspector
}

type Settings struct {
	// AllowedUsers restricts access; empty admits everyone.
	AllowedUsers []int64
	PublicURL    string
	PageSize     int
}

// Controller turns chat messages and button presses into backend calls and
// replies. Handlers for different chats may run concurrently.
type Controller struct {
	backend   ports.DocumentBackend
	store     ports.ConversationStore
	gateway   ports.MessagingGateway
	uploads   ports.UploadProcessor
	publisher ports.EventPublisher
	inspector ports.AttachmentInspector

	allowed   map[int64]struct{}
	publicURL string
	pageSize  int
	now       func() time.Time
}

func NewController(deps Dependencies, settings Settings) *Controller {
	allowed := make(map[int64]struct{}, len(settings.AllowedUsers))
	for _, userID := range settings.AllowedUsers {
		allowed[userID] = struct{}{}
	}
	pageSize := settings.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Controller{
		backend:   deps.Backend,
		store:     deps.Store,
		gateway:   deps.Gateway,
		uploads:   deps.Uploads,
		publisher: deps.Publisher,
		inspector: deps.Inspector,
		allowed:   allowed,
		publicURL: strings.TrimRight(settings.PublicURL, "/"),
		pageSize:  pageSize,
		now:       time.Now,
	}
}

func (c *Controller) authorized(userID int64) bool {
	if len(c.allowed) == 0 {
		return true
	}
	_, ok := c.allowed[userID]
	return ok
}

func (c *Controller) HandleMessage(ctx context.Context, msg domain.IncomingMessage) {
	ctx = logging.WithAttrs(ctx,
		"trace_id", uuid.NewString(),
		"chat_id", msg.ChatID,
		"update_id", msg.UpdateID,
	)
	ctx, _ = withOutcome(ctx)
	defer c.recoverPanic(ctx, msg.ChatID)

	if !c.authorized(msg.UserID) {
		logging.FromContext(ctx).Warn("unauthorized_message", "user_id", msg.UserID)
		c.reply(ctx, msg.ChatID, plainMessage(deniedText, nil))
		return
	}

	var err error
	switch {
	case msg.Command != "":
		err = c.handleCommand(ctx, msg)
	case msg.Attachment != nil:
		err = c.handleAttachment(ctx, msg)
	default:
		err = c.handleText(ctx, msg)
	}
	if err != nil {
		logging.FromContext(ctx).Error("message_failed", "command", msg.Command, "error", err)
		c.fail(ctx, msg.ChatID)
	}
}

func (c *Controller) HandleCallback(ctx context.Context, cb domain.CallbackEvent) {
	ctx = logging.WithAttrs(ctx,
		"trace_id", uuid.NewString(),
		"chat_id", cb.ChatID,
		"update_id", cb.UpdateID,
	)
	ctx, _ = withOutcome(ctx)
	defer c.recoverPanic(ctx, cb.ChatID)

	if err := c.gateway.AnswerCallback(ctx, cb.ID); err != nil {
		logging.FromContext(ctx).Warn("callback_answer_failed", "error", err)
	}
	if !c.authorized(cb.UserID) {
		logging.FromContext(ctx).Warn("unauthorized_callback", "user_id", cb.UserID)
		return
	}

	action, err := ParseAction(cb.Data)
	if err != nil {
		logging.FromContext(ctx).Warn("callback_rejected", "data", cb.Data, "error", err)
		return
	}

	if err := c.dispatch(ctx, cb, action); err != nil {
		logging.FromContext(ctx).Error("callback_failed", "data", cb.Data, "error", err)
		c.fail(ctx, cb.ChatID)
	}
}

func (c *Controller) dispatch(ctx context.Context, cb domain.CallbackEvent, action Action) error {
	switch a := action.(type) {
	case MetaAction:
		return c.handleMeta(ctx, cb, a)
	case ToggleTagAction:
		return c.handleToggleTag(ctx, cb, a)
	case TagPageAction:
		return c.handleTagPage(ctx, cb, a)
	case ConfirmTagsAction:
		return c.handleConfirmTags(ctx, cb, a)
	case NewItemAction:
		return c.handleNewItem(ctx, cb, a)
	case CancelCreateAction:
		return c.handleCancelCreate(ctx, cb, a)
	case SelectItemAction:
		return c.handleSelectItem(ctx, cb, a)
	case ItemPageAction:
		return c.handleItemPage(ctx, cb, a)
	case DownloadAction:
		return c.handleDownload(ctx, cb.ChatID, a.DocumentID)
	case SearchPageAction:
		return c.handleSearchPage(ctx, cb, a.Page)
	case ReviewInboxAction:
		return c.handleReviewInbox(ctx, cb.ChatID, a.DocumentID)
	default:
		return fmt.Errorf("unhandled action %T", action)
	}
}

func (c *Controller) recoverPanic(ctx context.Context, chatID int64) {
	recovered := recover()
	if recovered == nil {
		return
	}
	logging.FromContext(ctx).Error("handler_panic",
		"panic", fmt.Sprint(recovered),
		"stack", string(debug.Stack()),
	)
	markFailed(ctx)
	c.reply(ctx, chatID, plainMessage(genericFail, nil))
}

// fail records a failed update and sends the generic failure text unless the
// handler already told the user.
func (c *Controller) fail(ctx context.Context, chatID int64) {
	markFailed(ctx)
	if outcomeFrom(ctx).replied {
		return
	}
	c.reply(ctx, chatID, plainMessage(genericFail, nil))
}

// reply sends a new message and logs delivery failures.
func (c *Controller) reply(ctx context.Context, chatID int64, msg domain.OutgoingMessage) (domain.MessageRef, bool) {
	ref, err := c.gateway.Send(ctx, chatID, msg)
	if err != nil {
		logging.FromContext(ctx).Warn("send_failed", "error", err)
		return domain.MessageRef{}, false
	}
	markReplied(ctx)
	return ref, true
}

// edit replaces a message in place. Failures are logged and otherwise ignored.
func (c *Controller) edit(ctx context.Context, ref domain.MessageRef, msg domain.OutgoingMessage) {
	if err := c.gateway.Edit(ctx, ref, msg); err != nil {
		logging.FromContext(ctx).Warn("edit_failed", "message_id", ref.MessageID, "error", err)
		return
	}
	markReplied(ctx)
}

func (c *Controller) editKeyboard(ctx context.Context, ref domain.MessageRef, keyboard domain.Keyboard) {
	if err := c.gateway.EditKeyboard(ctx, ref, keyboard); err != nil {
		logging.FromContext(ctx).Warn("edit_keyboard_failed", "message_id", ref.MessageID, "error", err)
		return
	}
	markReplied(ctx)
}

func (c *Controller) publish(ctx context.Context, event domain.Event) {
	if c.publisher == nil {
		return
	}
	event.OccurredAt = c.now().UTC()
	if err := c.publisher.Publish(ctx, event); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "type", event.Type, "error", err)
	}
}

func (c *Controller) documentURL(documentID int64) string {
	return fmt.Sprintf("%s/documents/%d/details", c.publicURL, documentID)
}
