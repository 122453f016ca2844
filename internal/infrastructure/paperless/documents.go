package paperless

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/kirillkom/paperless-bot/internal/core/domain"
)

const contentSnippetRunes = 200

type rawDocument struct {
	ID            int64   `json:"id"`
	Title         *string `json:"title"`
	Correspondent *int64  `json:"correspondent"`
	DocumentType  *int64  `json:"document_type"`
	Tags          []int64 `json:"tags"`
	Created       string  `json:"created"`
	Added         string  `json:"added"`
	Content       string  `json:"content"`
}

// toDocument resolves ids through the snapshot taken at call time.
func (c *Client) toDocument(raw rawDocument) domain.Document {
	snap := c.snapshot.Load()

	doc := domain.Document{
		ID:      raw.ID,
		Title:   "Untitled",
		Tags:    make([]string, 0, len(raw.Tags)),
		Created: firstRunes(raw.Created, 10),
		Added:   firstRunes(raw.Added, 10),
	}
	if raw.Title != nil {
		doc.Title = *raw.Title
	}
	if raw.Correspondent != nil {
		doc.Correspondent = resolveName(snap.correspondents, *raw.Correspondent)
	}
	if raw.DocumentType != nil {
		doc.DocumentType = resolveName(snap.documentTypes, *raw.DocumentType)
	}
	for _, id := range raw.Tags {
		doc.Tags = append(doc.Tags, resolveName(snap.tags, id))
	}
	if runes := []rune(raw.Content); len(runes) > contentSnippetRunes {
		doc.Content = string(runes[:contentSnippetRunes]) + "..."
	} else {
		doc.Content = raw.Content
	}
	return doc
}

func resolveName(names map[int64]string, id int64) string {
	if name, ok := names[id]; ok {
		return name
	}
	return domain.FallbackName(id)
}

func firstRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func (c *Client) listDocuments(ctx context.Context, operation string, query url.Values) ([]domain.Document, int, error) {
	if err := c.EnsureCache(ctx); err != nil {
		return nil, 0, err
	}
	var resp page[rawDocument]
	if err := c.getJSON(ctx, operation, "/api/documents/", query, &resp); err != nil {
		return nil, 0, err
	}
	docs := make([]domain.Document, 0, len(resp.Results))
	for _, raw := range resp.Results {
		docs = append(docs, c.toDocument(raw))
	}
	return docs, resp.Count, nil
}

// SearchDocuments runs a full-text query and returns one page plus the total hit count.
func (c *Client) SearchDocuments(ctx context.Context, query string, pageNum, pageSize int) ([]domain.Document, int, error) {
	if pageNum < 1 {
		pageNum = 1
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(pageNum))
	params.Set("page_size", strconv.Itoa(pageSize))
	return c.listDocuments(ctx, "search_documents", params)
}

func (c *Client) RecentDocuments(ctx context.Context, pageSize int) ([]domain.Document, int, error) {
	params := url.Values{}
	params.Set("ordering", "-added")
	params.Set("page_size", strconv.Itoa(pageSize))
	return c.listDocuments(ctx, "recent_documents", params)
}

// InboxDocuments lists documents carrying the inbox tag. Without a resolved
// inbox tag it returns an empty list and sends no request.
func (c *Client) InboxDocuments(ctx context.Context, pageSize int) ([]domain.Document, int, error) {
	if err := c.EnsureCache(ctx); err != nil {
		return nil, 0, err
	}
	inboxID, ok := c.InboxTagID()
	if !ok {
		return []domain.Document{}, 0, nil
	}
	params := url.Values{}
	params.Set("tags__id", itoa(inboxID))
	params.Set("ordering", "-added")
	params.Set("page_size", strconv.Itoa(pageSize))
	return c.listDocuments(ctx, "inbox_documents", params)
}

func (c *Client) GetDocument(ctx context.Context, id int64) (domain.Document, error) {
	if err := c.EnsureCache(ctx); err != nil {
		return domain.Document{}, err
	}
	raw, err := c.getRawDocument(ctx, id)
	if err != nil {
		return domain.Document{}, err
	}
	return c.toDocument(raw), nil
}

func (c *Client) getRawDocument(ctx context.Context, id int64) (rawDocument, error) {
	var raw rawDocument
	err := c.getJSON(ctx, "get_document", documentPath(id), nil, &raw)
	return raw, err
}

func (c *Client) UpdateDocument(ctx context.Context, id int64, update domain.DocumentUpdate) (domain.Document, error) {
	if update.Empty() {
		return domain.Document{}, domain.WrapError(domain.ErrValidation, "update_document", errors.New("no fields to update"))
	}
	if err := c.EnsureCache(ctx); err != nil {
		return domain.Document{}, err
	}
	var raw rawDocument
	if err := c.sendJSON(ctx, "update_document", http.MethodPatch, documentPath(id), update, &raw); err != nil {
		return domain.Document{}, err
	}
	return c.toDocument(raw), nil
}

// RemoveInboxTag drops the inbox tag from a document. It is a no-op when no
// inbox tag is resolved or the document does not carry it.
func (c *Client) RemoveInboxTag(ctx context.Context, id int64) error {
	if err := c.EnsureCache(ctx); err != nil {
		return err
	}
	inboxID, ok := c.InboxTagID()
	if !ok {
		return nil
	}
	raw, err := c.getRawDocument(ctx, id)
	if err != nil {
		return err
	}

	remaining := make([]int64, 0, len(raw.Tags))
	found := false
	for _, tagID := range raw.Tags {
		if tagID == inboxID {
			found = true
			continue
		}
		remaining = append(remaining, tagID)
	}
	if !found {
		return nil
	}

	update := domain.DocumentUpdate{Tags: &remaining}
	if err := c.sendJSON(ctx, "remove_inbox_tag", http.MethodPatch, documentPath(id), update, nil); err != nil {
		return err
	}
	slog.Info("inbox_tag_removed", "document_id", id)
	return nil
}

// UploadDocument posts the file for asynchronous ingestion and returns the task id.
func (c *Client) UploadDocument(ctx context.Context, req domain.UploadRequest) (string, error) {
	const operation = "upload_document"

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("document", req.Filename)
	if err != nil {
		return "", fmt.Errorf("create %s form: %w", operation, err)
	}
	if _, err := part.Write(req.Content); err != nil {
		return "", fmt.Errorf("write %s form: %w", operation, err)
	}
	fields := [][2]string{}
	if req.Title != "" {
		fields = append(fields, [2]string{"title", req.Title})
	}
	if req.Correspondent != nil {
		fields = append(fields, [2]string{"correspondent", itoa(*req.Correspondent)})
	}
	if req.DocumentType != nil {
		fields = append(fields, [2]string{"document_type", itoa(*req.DocumentType)})
	}
	for _, tagID := range req.Tags {
		fields = append(fields, [2]string{"tags", itoa(tagID)})
	}
	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return "", fmt.Errorf("write %s form: %w", operation, err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close %s form: %w", operation, err)
	}
	payload := body.Bytes()

	var taskID string
	err = c.call(ctx, operation, func(callCtx context.Context) error {
		resp, err := c.do(callCtx, operation, http.MethodPost, "/api/documents/post_document/", nil, bytes.NewReader(payload), writer.FormDataContentType())
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read %s response: %w", operation, err)
		}
		taskID = strings.Trim(strings.TrimSpace(string(raw)), `"`)
		return nil
	})
	if err != nil {
		return "", err
	}
	return taskID, nil
}

func (c *Client) DownloadDocument(ctx context.Context, id int64) (domain.DownloadedFile, error) {
	const operation = "download_document"

	var file domain.DownloadedFile
	err := c.call(ctx, operation, func(callCtx context.Context) error {
		resp, err := c.do(callCtx, operation, http.MethodGet, documentPath(id)+"download/", nil, nil, "")
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		content, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read %s response: %w", operation, err)
		}
		file = domain.DownloadedFile{
			Filename: filenameFromDisposition(resp.Header.Get("Content-Disposition"), id),
			Content:  content,
		}
		return nil
	})
	if err != nil {
		return domain.DownloadedFile{}, err
	}
	return file, nil
}

// filenameFromDisposition prefers the RFC 2231 filename* parameter, then
// filename, then document_<id>.pdf.
func filenameFromDisposition(header string, id int64) string {
	fallback := "document_" + itoa(id) + ".pdf"
	if strings.TrimSpace(header) == "" {
		return fallback
	}
	if _, params, err := mime.ParseMediaType(header); err == nil {
		if name := strings.TrimSpace(params["filename"]); name != "" {
			return name
		}
	}
	if _, after, ok := strings.Cut(header, "filename="); ok {
		name, _, _ := strings.Cut(after, ";")
		name = strings.Trim(strings.TrimSpace(name), `"'`)
		if name != "" {
			return name
		}
	}
	return fallback
}

func (c *Client) Statistics(ctx context.Context) (domain.Statistics, error) {
	var stats domain.Statistics
	if err := c.getJSON(ctx, "statistics", "/api/statistics/", nil, &stats); err != nil {
		return domain.Statistics{}, err
	}
	return stats, nil
}

func documentPath(id int64) string {
	return "/api/documents/" + itoa(id) + "/"
}
