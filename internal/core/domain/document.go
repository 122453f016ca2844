package domain

import "strconv"

type Document struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	Correspondent string   `json:"correspondent,omitempty"`
	DocumentType  string   `json:"document_type,omitempty"`
	Tags          []string `json:"tags"`
	Created       string   `json:"created"`
	Added         string   `json:"added"`
	Content       string   `json:"content,omitempty"`
}

// ItemKind names one of the backend taxonomies a document can be classified by.
type ItemKind string

const (
	KindTag           ItemKind = "tag"
	KindCorrespondent ItemKind = "corr"
	KindDocumentType  ItemKind = "dtype"
)

func (k ItemKind) Valid() bool {
	switch k {
	case KindTag, KindCorrespondent, KindDocumentType:
		return true
	default:
		return false
	}
}

// Label is the human readable name of the taxonomy.
func (k ItemKind) Label() string {
	switch k {
	case KindTag:
		return "tag"
	case KindCorrespondent:
		return "correspondent"
	case KindDocumentType:
		return "document type"
	default:
		return string(k)
	}
}

// Item is a tag, correspondent or document type.
type Item struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// FallbackName is the label shown for an id missing from the name caches.
func FallbackName(id int64) string {
	return "#" + strconv.FormatInt(id, 10)
}

// DocumentUpdate is a partial document update. Nil fields are left untouched;
// Tags replaces the whole tag list when set.
type DocumentUpdate struct {
	Title         *string  `json:"title,omitempty"`
	Correspondent *int64   `json:"correspondent,omitempty"`
	DocumentType  *int64   `json:"document_type,omitempty"`
	Tags          *[]int64 `json:"tags,omitempty"`
}

func (u DocumentUpdate) Empty() bool {
	return u.Title == nil && u.Correspondent == nil && u.DocumentType == nil && u.Tags == nil
}

type UploadRequest struct {
	Filename      string
	Content       []byte
	Title         string
	Correspondent *int64
	DocumentType  *int64
	Tags          []int64
}

type DownloadedFile struct {
	Filename string
	Content  []byte
}

type Statistics struct {
	DocumentsTotal     *int64 `json:"documents_total"`
	DocumentsInbox     *int64 `json:"documents_inbox"`
	TagCount           *int64 `json:"tag_count"`
	CorrespondentCount *int64 `json:"correspondent_count"`
	DocumentTypeCount  *int64 `json:"document_type_count"`
}
