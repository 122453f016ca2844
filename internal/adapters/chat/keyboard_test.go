package chat

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/kirillkom/paperless-bot/internal/core/domain"
)

func makeItems(n int) []domain.Item {
	items := make([]domain.Item, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, domain.Item{ID: int64(i), Name: "item"})
	}
	return items
}

func TestTagSelectionKeyboardPaginates(t *testing.T) {
	tags := makeItems(20)

	first := TagSelectionKeyboard(tags, map[int64]struct{}{2: {}}, 42, 0)
	if len(first) != SelectionPageSize+2 {
		t.Fatalf("expected %d rows, got %d", SelectionPageSize+2, len(first))
	}
	if first[1][0].Text != "[x] item" || first[1][0].Data != "tag:x:2:42" {
		t.Fatalf("unexpected selected button: %+v", first[1][0])
	}
	nav := first[SelectionPageSize]
	if len(nav) != 1 || nav[0].Data != "tagp:1:42" {
		t.Fatalf("first page should only offer next, got %+v", nav)
	}

	last := TagSelectionKeyboard(tags, nil, 42, 2)
	if len(last) != 4+2 {
		t.Fatalf("expected 6 rows on last page, got %d", len(last))
	}
	if nav := last[4]; len(nav) != 1 || nav[0].Data != "tagp:1:42" || nav[0].Text != "< Prev" {
		t.Fatalf("last page should only offer prev, got %+v", nav)
	}
	footer := last[len(last)-1]
	if footer[0].Data != "newtag:42" || footer[1].Data != "tagok:42" {
		t.Fatalf("unexpected footer: %+v", footer)
	}
}

func TestSingleSelectKeyboardFooter(t *testing.T) {
	keyboard := SingleSelectKeyboard(domain.KindCorrespondent, makeItems(3), 42, 0)

	if len(keyboard) != 4 {
		t.Fatalf("expected 4 rows without navigation, got %d", len(keyboard))
	}
	footer := keyboard[3]
	if footer[0].Text != "+ New Correspondent" || footer[1].Data != "corr:skip:42" {
		t.Fatalf("unexpected footer: %+v", footer)
	}

	types := SingleSelectKeyboard(domain.KindDocumentType, nil, 42, 0)
	if len(types) != 1 || types[0][0].Text != "+ New Type" {
		t.Fatalf("unexpected empty keyboard: %+v", types)
	}
}

func TestLabelsAreTruncated(t *testing.T) {
	tags := []domain.Item{{ID: 1, Name: strings.Repeat("ж", 100)}}

	keyboard := TagSelectionKeyboard(tags, nil, 42, 0)

	label := keyboard[0][0].Text
	if utf8.RuneCountInString(label) != maxLabelRunes || !strings.HasSuffix(label, "...") {
		t.Fatalf("unexpected label %q", label)
	}

	docs := []domain.Document{{ID: 1, Title: strings.Repeat("a", 80)}}
	download := DocumentListKeyboard(docs, false)[0][0].Text
	if download != "Download: "+strings.Repeat("a", downloadTitleLen) {
		t.Fatalf("unexpected download label %q", download)
	}
}

func TestSearchResultsKeyboardNavigation(t *testing.T) {
	docs := []domain.Document{{ID: 1, Title: "A"}}

	middle := SearchResultsKeyboard(docs, 2, 25, 10)
	nav := middle[len(middle)-1]
	if len(nav) != 2 || nav[0].Data != "sp:1" || nav[1].Data != "sp:3" {
		t.Fatalf("unexpected navigation: %+v", nav)
	}

	single := SearchResultsKeyboard(docs, 1, 3, 10)
	if len(single) != 1 {
		t.Fatalf("single page should have no navigation, got %+v", single)
	}
}

func TestDocumentListKeyboardReviewButton(t *testing.T) {
	keyboard := DocumentListKeyboard([]domain.Document{{ID: 9, Title: "Bill"}}, true)

	if len(keyboard[0]) != 2 || keyboard[0][1].Data != "ibx:9" {
		t.Fatalf("unexpected row: %+v", keyboard[0])
	}
}

func TestTotalPages(t *testing.T) {
	cases := []struct{ total, size, want int }{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{5, 0, 0},
	}
	for _, tc := range cases {
		if got := TotalPages(tc.total, tc.size); got != tc.want {
			t.Fatalf("TotalPages(%d, %d) = %d, want %d", tc.total, tc.size, got, tc.want)
		}
	}
}
