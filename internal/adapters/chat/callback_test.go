package chat

import (
	"math"
	"reflect"
	"testing"

	"github.com/kirillkom/paperless-bot/internal/core/domain"
)

func TestParseActionRoundTrip(t *testing.T) {
	cases := []struct {
		data string
		want Action
	}{
		{"meta:tags:42", MetaAction{Step: MetaTags, DocumentID: 42}},
		{"meta:done:42", MetaAction{Step: MetaDone, DocumentID: 42}},
		{"tag:x:3:42", ToggleTagAction{Selected: true, TagID: 3, DocumentID: 42}},
		{"tag:o:3:42", ToggleTagAction{TagID: 3, DocumentID: 42}},
		{"tagp:2:42", TagPageAction{Page: 2, DocumentID: 42}},
		{"tagok:42", ConfirmTagsAction{DocumentID: 42}},
		{"newtag:42", NewItemAction{Kind: domain.KindTag, DocumentID: 42}},
		{"newdtype:42", NewItemAction{Kind: domain.KindDocumentType, DocumentID: 42}},
		{"ccr:corr:42", CancelCreateAction{Kind: domain.KindCorrespondent, DocumentID: 42}},
		{"corr:5:42", SelectItemAction{Kind: domain.KindCorrespondent, ItemID: 5, DocumentID: 42}},
		{"dtype:skip:42", SelectItemAction{Kind: domain.KindDocumentType, Skip: true, DocumentID: 42}},
		{"corrp:1:42", ItemPageAction{Kind: domain.KindCorrespondent, Page: 1, DocumentID: 42}},
		{"dl:42", DownloadAction{DocumentID: 42}},
		{"sp:3", SearchPageAction{Page: 3}},
		{"ibx:42", ReviewInboxAction{DocumentID: 42}},
	}

	for _, tc := range cases {
		t.Run(tc.data, func(t *testing.T) {
			got, err := ParseAction(tc.data)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %#v, got %#v", tc.want, got)
			}
			if encoded := got.Encode(); encoded != tc.data {
				t.Fatalf("expected encoding %q, got %q", tc.data, encoded)
			}
		})
	}
}

func TestParseActionRejectsMalformed(t *testing.T) {
	for _, data := range []string{
		"",
		"meta:archive:1",
		"meta:tags",
		"tag:y:1:2",
		"tag:x:abc:2",
		"tagp:-1:2",
		"tagok:1:2",
		"newfolder:1",
		"ccr:folder:1",
		"corr:none:1",
		"sp:0",
		"dl:",
		"unknown:1",
	} {
		if _, err := ParseAction(data); !domain.IsKind(err, domain.ErrValidation) {
			t.Fatalf("%q: expected validation error, got %v", data, err)
		}
	}
}

func TestEncodedActionsFitLimit(t *testing.T) {
	const maxID = math.MaxInt64
	actions := []Action{
		MetaAction{Step: MetaDocumentType, DocumentID: maxID},
		ToggleTagAction{Selected: true, TagID: maxID, DocumentID: maxID},
		TagPageAction{Page: math.MaxInt32, DocumentID: maxID},
		NewItemAction{Kind: domain.KindDocumentType, DocumentID: maxID},
		CancelCreateAction{Kind: domain.KindDocumentType, DocumentID: maxID},
		SelectItemAction{Kind: domain.KindDocumentType, ItemID: maxID, DocumentID: maxID},
		ItemPageAction{Kind: domain.KindDocumentType, Page: math.MaxInt32, DocumentID: maxID},
		ReviewInboxAction{DocumentID: maxID},
	}
	for _, action := range actions {
		if n := len(action.Encode()); n > MaxCallbackDataBytes {
			t.Fatalf("%T encodes to %d bytes", action, n)
		}
	}
}
