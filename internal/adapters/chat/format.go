package chat

import (
	"fmt"
	"html"
	"strings"

	"github.com/kirillkom/paperless-bot/internal/core/domain"
)

const snippetRunes = 100

var markupStripper = strings.NewReplacer("*", "", "_", "", "`", "")

func escape(s string) string {
	return html.EscapeString(s)
}

func bold(s string) string {
	return "<b>" + html.EscapeString(s) + "</b>"
}

func code(s string) string {
	return "<code>" + html.EscapeString(s) + "</code>"
}

func link(label, url string) string {
	return `<a href="` + html.EscapeString(url) + `">` + html.EscapeString(label) + "</a>"
}

func htmlMessage(text string, keyboard domain.Keyboard) domain.OutgoingMessage {
	return domain.OutgoingMessage{Text: text, HTML: true, Keyboard: keyboard}
}

func plainMessage(text string, keyboard domain.Keyboard) domain.OutgoingMessage {
	return domain.OutgoingMessage{Text: text, Keyboard: keyboard}
}

// FormatDocumentList renders documents as HTML blocks separated by a blank line.
func FormatDocumentList(docs []domain.Document) string {
	blocks := make([]string, 0, len(docs))
	for _, doc := range docs {
		var b strings.Builder
		b.WriteString(bold(doc.Title))

		var details []string
		if doc.Correspondent != "" {
			details = append(details, "Corr: "+doc.Correspondent)
		}
		if doc.DocumentType != "" {
			details = append(details, "Type: "+doc.DocumentType)
		}
		if len(doc.Tags) > 0 {
			details = append(details, "Tags: "+strings.Join(doc.Tags, ", "))
		}
		if len(details) > 0 {
			b.WriteString("\n  " + html.EscapeString(strings.Join(details, " | ")))
		}
		b.WriteString("\n  Added: " + html.EscapeString(doc.Added))
		if doc.Content != "" {
			snippet := firstRunes(markupStripper.Replace(doc.Content), snippetRunes)
			b.WriteString("\n  \"" + html.EscapeString(snippet) + "...\"")
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

func formatStatistics(stats domain.Statistics) string {
	value := func(v *int64) string {
		if v == nil {
			return "N/A"
		}
		return fmt.Sprintf("%d", *v)
	}
	return bold("Paperless-NGX Statistics") + "\n\n" +
		"Documents: " + value(stats.DocumentsTotal) + "\n" +
		"In inbox: " + value(stats.DocumentsInbox) + "\n" +
		"Correspondents: " + value(stats.CorrespondentCount) + "\n" +
		"Tags: " + value(stats.TagCount) + "\n" +
		"Document types: " + value(stats.DocumentTypeCount)
}

func formatMegabytes(size int64) string {
	return fmt.Sprintf("%.1fMB", float64(size)/1024/1024)
}

// fieldTitle is the capitalised taxonomy label used in confirmations.
func fieldTitle(kind domain.ItemKind) string {
	switch kind {
	case domain.KindCorrespondent:
		return "Correspondent"
	case domain.KindDocumentType:
		return "Document Type"
	case domain.KindTag:
		return "Tag"
	default:
		return string(kind)
	}
}

const helpText = "<b>Paperless-NGX Bot</b>\n\n" +
	"Send me a document or photo to upload it.\n" +
	"Send any text to search your documents.\n\n" +
	"Commands:\n" +
	"/search &lt;query&gt; - Search documents\n" +
	"/recent - Recently added documents\n" +
	"/inbox - Documents in inbox\n" +
	"/stats - Paperless statistics\n" +
	"/help - Show this message"

// BotCommands is the command menu registered with the messaging gateway.
var BotCommands = []domain.BotCommand{
	{Command: "search", Description: "Search documents"},
	{Command: "recent", Description: "Recently added documents"},
	{Command: "inbox", Description: "Documents in inbox"},
	{Command: "stats", Description: "Paperless statistics"},
	{Command: "help", Description: "Show help message"},
}
