package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/paperless-bot/internal/core/domain"
	"github.com/kirillkom/paperless-bot/internal/infrastructure/resilience"
)

type apiCall struct {
	method string
	form   url.Values
	files  map[string]string
}

// botAPIFake answers Bot API methods with canned results. A queued reply for
// a method is used once before falling back to the default result.
type botAPIFake struct {
	mu      sync.Mutex
	calls   []apiCall
	queued  map[string][]string
	results map[string]string
	files   map[string][]byte
}

func newBotAPIFake() *botAPIFake {
	return &botAPIFake{
		queued: map[string][]string{},
		results: map[string]string{
			"getMe":       `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Paperless","username":"paperless_bot"}}`,
			"sendMessage": `{"ok":true,"result":{"message_id":55,"date":0,"chat":{"id":7,"type":"private"}}}`,
		},
		files: map[string][]byte{},
	}
}

func (f *botAPIFake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/file/") {
		path := r.URL.Path[strings.LastIndex(r.URL.Path, "/documents/")+1:]
		content, ok := f.files[path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(content)
		return
	}

	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	call := apiCall{method: method, files: map[string]string{}}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			call.form = url.Values(r.MultipartForm.Value)
			for field, headers := range r.MultipartForm.File {
				call.files[field] = headers[0].Filename
			}
		}
	} else {
		_ = r.ParseForm()
		call.form = r.PostForm
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	reply, ok := "", false
	if queue := f.queued[method]; len(queue) > 0 {
		reply, ok = queue[0], true
		f.queued[method] = queue[1:]
	}
	if !ok {
		reply, ok = f.results[method]
	}
	f.mu.Unlock()

	if !ok {
		reply = `{"ok":true,"result":true}`
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, reply)
}

func (f *botAPIFake) callsTo(method string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, call := range f.calls {
		if call.method == method {
			out = append(out, call)
		}
	}
	return out
}

func newTestGateway(t *testing.T, api *botAPIFake, executor *resilience.Executor) *Gateway {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	gateway, err := New("TOKEN", Options{
		APIEndpoint:  srv.URL + "/bot%s/%s",
		FileEndpoint: srv.URL + "/file/bot%s/%s",
		HTTPClient:   srv.Client(),
		Executor:     executor,
	})
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	return gateway
}

func fastRetries() *resilience.Executor {
	cfg := resilience.DefaultConfig()
	cfg.RetryInitialBackoff = time.Millisecond
	cfg.RetryMaxBackoff = time.Millisecond
	cfg.BreakerEnabled = false
	return resilience.NewExecutor("telegram", cfg)
}

func TestSendUsesHTMLAndInlineKeyboard(t *testing.T) {
	api := newBotAPIFake()
	gateway := newTestGateway(t, api, nil)

	if gateway.Username() != "paperless_bot" {
		t.Fatalf("unexpected username %q", gateway.Username())
	}

	ref, err := gateway.Send(context.Background(), 7, domain.OutgoingMessage{
		Text: "<b>hi</b>",
		HTML: true,
		Keyboard: domain.Keyboard{
			{{Text: "Download", Data: "dl:42"}},
			{{Text: "Open", URL: "https://docs.example.com/documents/42/details"}},
		},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if ref.MessageID != 55 || ref.ChatID != 7 {
		t.Fatalf("unexpected ref: %+v", ref)
	}

	calls := api.callsTo("sendMessage")
	if len(calls) != 1 {
		t.Fatalf("expected one sendMessage call, got %d", len(calls))
	}
	form := calls[0].form
	if form.Get("parse_mode") != "HTML" || form.Get("chat_id") != "7" {
		t.Fatalf("unexpected form: %v", form)
	}
	var markup struct {
		InlineKeyboard [][]struct {
			Text         string  `json:"text"`
			CallbackData *string `json:"callback_data"`
			URL          *string `json:"url"`
		} `json:"inline_keyboard"`
	}
	if err := json.Unmarshal([]byte(form.Get("reply_markup")), &markup); err != nil {
		t.Fatalf("decode markup: %v", err)
	}
	if len(markup.InlineKeyboard) != 2 ||
		markup.InlineKeyboard[0][0].CallbackData == nil || *markup.InlineKeyboard[0][0].CallbackData != "dl:42" ||
		markup.InlineKeyboard[1][0].URL == nil {
		t.Fatalf("unexpected markup: %s", form.Get("reply_markup"))
	}
}

func TestSendRetriesAfterRateLimit(t *testing.T) {
	api := newBotAPIFake()
	api.queued["sendMessage"] = []string{
		`{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 0","parameters":{"retry_after":0}}`,
	}
	gateway := newTestGateway(t, api, fastRetries())

	if _, err := gateway.Send(context.Background(), 7, domain.OutgoingMessage{Text: "hello"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if calls := api.callsTo("sendMessage"); len(calls) != 2 {
		t.Fatalf("expected a retry, got %d calls", len(calls))
	}
}

func TestSendDoesNotRetryBadRequest(t *testing.T) {
	api := newBotAPIFake()
	api.results["sendMessage"] = `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`
	gateway := newTestGateway(t, api, fastRetries())

	_, err := gateway.Send(context.Background(), 7, domain.OutgoingMessage{Text: "hello"})
	if !domain.IsKind(err, domain.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if calls := api.callsTo("sendMessage"); len(calls) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(calls))
	}
}

func TestEditIgnoresNotModified(t *testing.T) {
	api := newBotAPIFake()
	api.results["editMessageText"] = `{"ok":false,"error_code":400,"description":"Bad Request: message is not modified: specified new message content and reply markup are exactly the same"}`
	gateway := newTestGateway(t, api, nil)

	err := gateway.Edit(context.Background(), domain.MessageRef{ChatID: 7, MessageID: 55}, domain.OutgoingMessage{Text: "same"})
	if err != nil {
		t.Fatalf("expected not-modified to be ignored, got %v", err)
	}

	calls := api.callsTo("editMessageText")
	if len(calls) != 1 || calls[0].form.Get("message_id") != "55" {
		t.Fatalf("unexpected calls: %+v", calls)
	}
	if calls[0].form.Get("reply_markup") != "" {
		t.Fatalf("edit without keyboard must not send markup")
	}
}

func TestEditKeyboardAndAnswerCallback(t *testing.T) {
	api := newBotAPIFake()
	gateway := newTestGateway(t, api, nil)
	ctx := context.Background()

	keyboard := domain.Keyboard{{{Text: "[x] Alpha", Data: "tag:x:1:42"}}}
	if err := gateway.EditKeyboard(ctx, domain.MessageRef{ChatID: 7, MessageID: 55}, keyboard); err != nil {
		t.Fatalf("edit keyboard: %v", err)
	}
	if err := gateway.AnswerCallback(ctx, "cb-1"); err != nil {
		t.Fatalf("answer callback: %v", err)
	}

	edits := api.callsTo("editMessageReplyMarkup")
	if len(edits) != 1 || !strings.Contains(edits[0].form.Get("reply_markup"), "tag:x:1:42") {
		t.Fatalf("unexpected markup edits: %+v", edits)
	}
	answers := api.callsTo("answerCallbackQuery")
	if len(answers) != 1 || answers[0].form.Get("callback_query_id") != "cb-1" {
		t.Fatalf("unexpected answers: %+v", answers)
	}
}

func TestSendFileUploadsDocument(t *testing.T) {
	api := newBotAPIFake()
	api.results["sendDocument"] = `{"ok":true,"result":{"message_id":56,"date":0,"chat":{"id":7,"type":"private"}}}`
	gateway := newTestGateway(t, api, nil)

	err := gateway.SendFile(context.Background(), 7, domain.DownloadedFile{Filename: "scan.pdf", Content: []byte("%PDF-1.4")})
	if err != nil {
		t.Fatalf("send file: %v", err)
	}

	calls := api.callsTo("sendDocument")
	if len(calls) != 1 || calls[0].files["document"] != "scan.pdf" {
		t.Fatalf("unexpected uploads: %+v", calls)
	}
}

func TestDownloadAttachment(t *testing.T) {
	api := newBotAPIFake()
	api.results["getFile"] = `{"ok":true,"result":{"file_id":"f1","file_unique_id":"u1","file_path":"documents/file_1.pdf"}}`
	api.files["documents/file_1.pdf"] = []byte("%PDF-1.4 body")
	gateway := newTestGateway(t, api, nil)

	content, err := gateway.DownloadAttachment(context.Background(), domain.Attachment{FileID: "f1"})
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if string(content) != "%PDF-1.4 body" {
		t.Fatalf("unexpected content %q", content)
	}
	if calls := api.callsTo("getFile"); len(calls) != 1 || calls[0].form.Get("file_id") != "f1" {
		t.Fatalf("unexpected getFile calls: %+v", calls)
	}
}

func TestDownloadAttachmentMissingFile(t *testing.T) {
	api := newBotAPIFake()
	api.results["getFile"] = `{"ok":true,"result":{"file_id":"f1","file_unique_id":"u1","file_path":"documents/gone.pdf"}}`
	gateway := newTestGateway(t, api, nil)

	_, err := gateway.DownloadAttachment(context.Background(), domain.Attachment{FileID: "f1"})
	if !domain.IsKind(err, domain.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestSetCommands(t *testing.T) {
	api := newBotAPIFake()
	gateway := newTestGateway(t, api, nil)

	err := gateway.SetCommands(context.Background(), []domain.BotCommand{
		{Command: "search", Description: "Search documents"},
		{Command: "help", Description: "Show help message"},
	})
	if err != nil {
		t.Fatalf("set commands: %v", err)
	}

	calls := api.callsTo("setMyCommands")
	if len(calls) != 1 {
		t.Fatalf("expected setMyCommands call, got %d", len(calls))
	}
	var commands []struct {
		Command     string `json:"command"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal([]byte(calls[0].form.Get("commands")), &commands); err != nil {
		t.Fatalf("decode commands: %v", err)
	}
	if len(commands) != 2 || commands[0].Command != "search" {
		t.Fatalf("unexpected commands: %+v", commands)
	}
}
