package inspect

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

const mimePDF = "application/pdf"

// Inspector summarises an attachment for the upload status line.
type Inspector struct{}

func NewInspector() *Inspector {
	return &Inspector{}
}

// Describe returns a short summary such as "PDF, 3 pages", or an empty string
// when nothing useful can be said about the content.
func (i *Inspector) Describe(filename string, content []byte) string {
	if len(content) == 0 {
		return ""
	}
	switch detectMimeType(filename, content) {
	case mimePDF:
		pages, err := pageCount(content)
		if err != nil {
			slog.Debug("pdf_inspect_failed", "filename", filename, "error", err)
			return "PDF"
		}
		if pages == 1 {
			return "PDF, 1 page"
		}
		return fmt.Sprintf("PDF, %d pages", pages)
	case "text/plain":
		return fmt.Sprintf("Text, %d characters", utf8.RuneCount(content))
	default:
		return ""
	}
}

func detectMimeType(filename string, content []byte) string {
	if bytes.HasPrefix(content, []byte("%PDF-")) || strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return mimePDF
	}
	detected := http.DetectContentType(content)
	if strings.HasPrefix(detected, "text/plain") && utf8.Valid(content) {
		return "text/plain"
	}
	return detected
}

func pageCount(content []byte) (pages int, err error) {
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("parse pdf: %v", recovered)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	return reader.NumPage(), nil
}
