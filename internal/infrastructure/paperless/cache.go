package paperless

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/kirillkom/paperless-bot/internal/core/domain"
)

// cacheSnapshot is never mutated after it is published.
type cacheSnapshot struct {
	tags           map[int64]string
	correspondents map[int64]string
	documentTypes  map[int64]string
	inboxTagID     int64
}

func emptySnapshot() *cacheSnapshot {
	return &cacheSnapshot{
		tags:           map[int64]string{},
		correspondents: map[int64]string{},
		documentTypes:  map[int64]string{},
	}
}

func (s *cacheSnapshot) names(kind domain.ItemKind) map[int64]string {
	switch kind {
	case domain.KindTag:
		return s.tags
	case domain.KindCorrespondent:
		return s.correspondents
	case domain.KindDocumentType:
		return s.documentTypes
	default:
		return nil
	}
}

func (s *cacheSnapshot) with(kind domain.ItemKind, item domain.Item) *cacheSnapshot {
	next := *s
	updated := make(map[int64]string, len(s.names(kind))+1)
	for id, name := range s.names(kind) {
		updated[id] = name
	}
	updated[item.ID] = item.Name

	switch kind {
	case domain.KindTag:
		next.tags = updated
	case domain.KindCorrespondent:
		next.correspondents = updated
	case domain.KindDocumentType:
		next.documentTypes = updated
	}
	return &next
}

type rawTag struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	IsInboxTag bool   `json:"is_inbox_tag"`
}

type page[T any] struct {
	Count   int     `json:"count"`
	Next    *string `json:"next"`
	Results []T     `json:"results"`
}

func endpointFor(kind domain.ItemKind) (string, error) {
	switch kind {
	case domain.KindTag:
		return "/api/tags/", nil
	case domain.KindCorrespondent:
		return "/api/correspondents/", nil
	case domain.KindDocumentType:
		return "/api/document_types/", nil
	default:
		return "", domain.WrapError(domain.ErrValidation, "item endpoint", fmt.Errorf("unknown item kind %q", kind))
	}
}

// getAllPages follows the paginated endpoint until next is empty.
func getAllPages[T any](ctx context.Context, c *Client, operation, path string) ([]T, error) {
	var out []T
	for pageNum := 1; ; pageNum++ {
		query := url.Values{}
		query.Set("page", strconv.Itoa(pageNum))
		query.Set("page_size", strconv.Itoa(c.pageSize))

		var resp page[T]
		if err := c.getJSON(ctx, operation, path, query, &resp); err != nil {
			return nil, err
		}
		out = append(out, resp.Results...)
		if resp.Next == nil || *resp.Next == "" {
			return out, nil
		}
	}
}

// RefreshCache reloads every name cache and re-resolves the inbox tag, then
// publishes the result as one snapshot.
func (c *Client) RefreshCache(ctx context.Context) error {
	tags, err := getAllPages[rawTag](ctx, c, "list_tags", "/api/tags/")
	if err != nil {
		return err
	}
	correspondents, err := getAllPages[domain.Item](ctx, c, "list_correspondents", "/api/correspondents/")
	if err != nil {
		return err
	}
	documentTypes, err := getAllPages[domain.Item](ctx, c, "list_document_types", "/api/document_types/")
	if err != nil {
		return err
	}

	next := emptySnapshot()
	for _, t := range tags {
		next.tags[t.ID] = t.Name
	}
	for _, item := range correspondents {
		next.correspondents[item.ID] = item.Name
	}
	for _, item := range documentTypes {
		next.documentTypes[item.ID] = item.Name
	}
	next.inboxTagID = c.resolveInboxTag(tags)

	c.writeMu.Lock()
	c.snapshot.Store(next)
	c.writeMu.Unlock()

	slog.Info("paperless_cache_refreshed",
		"tags", len(next.tags),
		"correspondents", len(next.correspondents),
		"document_types", len(next.documentTypes),
		"inbox_tag_id", next.inboxTagID,
	)
	return nil
}

func (c *Client) resolveInboxTag(tags []rawTag) int64 {
	if c.inboxTagName != "" {
		for _, t := range tags {
			if strings.EqualFold(t.Name, c.inboxTagName) {
				slog.Info("inbox_tag_resolved", "strategy", "name", "name", t.Name, "tag_id", t.ID)
				return t.ID
			}
		}
		slog.Warn("inbox_tag_not_found", "name", c.inboxTagName)
		return 0
	}
	for _, t := range tags {
		if t.IsInboxTag {
			slog.Info("inbox_tag_resolved", "strategy", "flag", "name", t.Name, "tag_id", t.ID)
			return t.ID
		}
	}
	return 0
}

// EnsureCache refreshes the caches when the tag cache is still empty.
func (c *Client) EnsureCache(ctx context.Context) error {
	if len(c.snapshot.Load().tags) > 0 {
		return nil
	}
	return c.RefreshCache(ctx)
}

func (c *Client) InboxTagID() (int64, bool) {
	id := c.snapshot.Load().inboxTagID
	return id, id != 0
}

// Items returns the cached items of kind ordered by name, then id.
func (c *Client) Items(ctx context.Context, kind domain.ItemKind) ([]domain.Item, error) {
	if !kind.Valid() {
		return nil, domain.WrapError(domain.ErrValidation, "items", fmt.Errorf("unknown item kind %q", kind))
	}
	if err := c.EnsureCache(ctx); err != nil {
		return nil, err
	}
	names := c.snapshot.Load().names(kind)
	items := make([]domain.Item, 0, len(names))
	for id, name := range names {
		items = append(items, domain.Item{ID: id, Name: name})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

// ItemName resolves id from the cache, falling back to "#<id>".
func (c *Client) ItemName(kind domain.ItemKind, id int64) string {
	return resolveName(c.snapshot.Load().names(kind), id)
}

func (c *Client) CreateItem(ctx context.Context, kind domain.ItemKind, name string) (domain.Item, error) {
	path, err := endpointFor(kind)
	if err != nil {
		return domain.Item{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Item{}, domain.WrapError(domain.ErrValidation, "create_"+string(kind), fmt.Errorf("name is empty"))
	}

	var created domain.Item
	if err := c.sendJSON(ctx, "create_"+string(kind), "POST", path, map[string]string{"name": name}, &created); err != nil {
		return domain.Item{}, err
	}

	c.writeMu.Lock()
	c.snapshot.Store(c.snapshot.Load().with(kind, created))
	c.writeMu.Unlock()
	return created, nil
}

func (c *Client) CreateTag(ctx context.Context, name string) (domain.Item, error) {
	return c.CreateItem(ctx, domain.KindTag, name)
}

func (c *Client) CreateCorrespondent(ctx context.Context, name string) (domain.Item, error) {
	return c.CreateItem(ctx, domain.KindCorrespondent, name)
}

func (c *Client) CreateDocumentType(ctx context.Context, name string) (domain.Item, error) {
	return c.CreateItem(ctx, domain.KindDocumentType, name)
}

// Tags lists every tag straight from the backend.
func (c *Client) Tags(ctx context.Context) ([]domain.Item, error) {
	return getAllPages[domain.Item](ctx, c, "list_tags", "/api/tags/")
}

func (c *Client) Correspondents(ctx context.Context) ([]domain.Item, error) {
	return getAllPages[domain.Item](ctx, c, "list_correspondents", "/api/correspondents/")
}

func (c *Client) DocumentTypes(ctx context.Context) ([]domain.Item, error) {
	return getAllPages[domain.Item](ctx, c, "list_document_types", "/api/document_types/")
}
