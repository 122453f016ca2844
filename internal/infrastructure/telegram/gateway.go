package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/kirillkom/paperless-bot/internal/core/domain"
	"github.com/kirillkom/paperless-bot/internal/infrastructure/resilience"
)

type Options struct {
	// APIEndpoint and FileEndpoint are printf patterns taking the token and
	// the method or file path. Empty values use the public Bot API.
	APIEndpoint  string
	FileEndpoint string
	HTTPClient   *http.Client
	RateLimit    rate.Limit
	RateBurst    int
	Executor     *resilience.Executor
	// PollTimeout is the long-poll window in seconds.
	PollTimeout int
}

// Gateway delivers messages through the Telegram Bot API. Outgoing calls share
// one rate limiter.
type Gateway struct {
	bot          *tgbotapi.BotAPI
	httpClient   *http.Client
	fileEndpoint string
	limiter      *rate.Limiter
	executor     *resilience.Executor
	pollTimeout  int
}

func New(token string, opts Options) (*Gateway, error) {
	if opts.APIEndpoint == "" {
		opts.APIEndpoint = tgbotapi.APIEndpoint
	}
	if opts.FileEndpoint == "" {
		opts.FileEndpoint = tgbotapi.FileEndpoint
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 90 * time.Second}
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = rate.Inf
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 1
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 30
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, opts.APIEndpoint, opts.HTTPClient)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTransport, "telegram connect", err)
	}
	return &Gateway{
		bot:          bot,
		httpClient:   opts.HTTPClient,
		fileEndpoint: opts.FileEndpoint,
		limiter:      rate.NewLimiter(opts.RateLimit, opts.RateBurst),
		executor:     opts.Executor,
		pollTimeout:  opts.PollTimeout,
	}, nil
}

// Username is the bot account name reported at connect time.
func (g *Gateway) Username() string {
	return g.bot.Self.UserName
}

func (g *Gateway) Send(ctx context.Context, chatID int64, msg domain.OutgoingMessage) (domain.MessageRef, error) {
	cfg := tgbotapi.NewMessage(chatID, msg.Text)
	if msg.HTML {
		cfg.ParseMode = tgbotapi.ModeHTML
	}
	if len(msg.Keyboard) > 0 {
		cfg.ReplyMarkup = inlineKeyboard(msg.Keyboard)
	}

	sent, err := resilience.Do(ctx, g.executor, "telegram.send_message", func(callCtx context.Context) (tgbotapi.Message, error) {
		if err := g.limiter.Wait(callCtx); err != nil {
			return tgbotapi.Message{}, err
		}
		return g.bot.Send(cfg)
	}, classifyTelegramError)
	if err != nil {
		return domain.MessageRef{}, domain.WrapError(domain.ErrTransport, "send message", err)
	}
	return domain.MessageRef{ChatID: chatID, MessageID: sent.MessageID}, nil
}

// Edit replaces text and keyboard. A message without a keyboard loses its
// buttons.
func (g *Gateway) Edit(ctx context.Context, ref domain.MessageRef, msg domain.OutgoingMessage) error {
	cfg := tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, msg.Text)
	if len(msg.Keyboard) > 0 {
		markup := inlineKeyboard(msg.Keyboard)
		cfg.ReplyMarkup = &markup
	}
	if msg.HTML {
		cfg.ParseMode = tgbotapi.ModeHTML
	}
	return g.request(ctx, "telegram.edit_message", cfg)
}

func (g *Gateway) EditKeyboard(ctx context.Context, ref domain.MessageRef, keyboard domain.Keyboard) error {
	cfg := tgbotapi.NewEditMessageReplyMarkup(ref.ChatID, ref.MessageID, inlineKeyboard(keyboard))
	return g.request(ctx, "telegram.edit_keyboard", cfg)
}

func (g *Gateway) SendFile(ctx context.Context, chatID int64, file domain.DownloadedFile) error {
	if int64(len(file.Content)) > domain.MaxTransferSize {
		return domain.WrapError(domain.ErrTooLarge, "send document",
			fmt.Errorf("%s is %d bytes", file.Filename, len(file.Content)))
	}
	cfg := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: file.Filename, Bytes: file.Content})

	_, err := resilience.Do(ctx, g.executor, "telegram.send_document", func(callCtx context.Context) (tgbotapi.Message, error) {
		if err := g.limiter.Wait(callCtx); err != nil {
			return tgbotapi.Message{}, err
		}
		return g.bot.Send(cfg)
	}, classifyTelegramError)
	if err != nil {
		return domain.WrapError(domain.ErrTransport, "send document", err)
	}
	return nil
}

func (g *Gateway) AnswerCallback(ctx context.Context, callbackID string) error {
	return g.request(ctx, "telegram.answer_callback", tgbotapi.NewCallback(callbackID, ""))
}

// SetCommands publishes the command menu.
func (g *Gateway) SetCommands(ctx context.Context, commands []domain.BotCommand) error {
	botCommands := make([]tgbotapi.BotCommand, 0, len(commands))
	for _, command := range commands {
		botCommands = append(botCommands, tgbotapi.BotCommand{
			Command:     command.Command,
			Description: command.Description,
		})
	}
	return g.request(ctx, "telegram.set_commands", tgbotapi.NewSetMyCommands(botCommands...))
}

// DownloadAttachment resolves the file path and fetches the bytes from the
// file endpoint.
func (g *Gateway) DownloadAttachment(ctx context.Context, attachment domain.Attachment) ([]byte, error) {
	file, err := resilience.Do(ctx, g.executor, "telegram.get_file", func(callCtx context.Context) (tgbotapi.File, error) {
		if err := g.limiter.Wait(callCtx); err != nil {
			return tgbotapi.File{}, err
		}
		return g.bot.GetFile(tgbotapi.FileConfig{FileID: attachment.FileID})
	}, classifyTelegramError)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTransport, "get file", err)
	}

	url := fmt.Sprintf(g.fileEndpoint, g.bot.Token, file.FilePath)
	content, err := resilience.Do(ctx, g.executor, "telegram.download_file", func(callCtx context.Context) ([]byte, error) {
		return g.fetch(callCtx, url)
	}, classifyTelegramError)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTransport, "download file", err)
	}
	return content, nil
}

func (g *Gateway) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build file request: %w", err)
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &tgbotapi.Error{Code: resp.StatusCode, Message: "file download: " + resp.Status}
	}
	content, err := io.ReadAll(io.LimitReader(resp.Body, domain.MaxTransferSize+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if int64(len(content)) > domain.MaxTransferSize {
		return nil, domain.WrapError(domain.ErrTooLarge, "read file", errors.New("attachment exceeds transfer limit"))
	}
	return content, nil
}

func (g *Gateway) request(ctx context.Context, operation string, cfg tgbotapi.Chattable) error {
	err := g.executor.Execute(ctx, operation, func(callCtx context.Context) error {
		if err := g.limiter.Wait(callCtx); err != nil {
			return err
		}
		_, err := g.bot.Request(cfg)
		return err
	}, classifyTelegramError)
	if err == nil || isNotModified(err) {
		return nil
	}
	return domain.WrapError(domain.ErrTransport, strings.TrimPrefix(operation, "telegram."), err)
}

func inlineKeyboard(keyboard domain.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(keyboard))
	for _, row := range keyboard {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, button := range row {
			if button.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(button.Text, button.URL))
				continue
			}
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.Data))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
