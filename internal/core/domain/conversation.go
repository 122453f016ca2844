package domain

import "sort"

// PendingUpload tracks metadata assignment for a freshly ingested document.
type PendingUpload struct {
	DocumentID int64
	Selected   map[int64]struct{}
}

func NewPendingUpload(documentID int64) PendingUpload {
	return PendingUpload{DocumentID: documentID, Selected: make(map[int64]struct{})}
}

func (p PendingUpload) IsSelected(tagID int64) bool {
	_, ok := p.Selected[tagID]
	return ok
}

// SelectedIDs returns the selected tag ids in ascending order.
func (p PendingUpload) SelectedIDs() []int64 {
	ids := make([]int64, 0, len(p.Selected))
	for id := range p.Selected {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (p PendingUpload) Clone() PendingUpload {
	out := PendingUpload{DocumentID: p.DocumentID, Selected: make(map[int64]struct{}, len(p.Selected))}
	for id := range p.Selected {
		out.Selected[id] = struct{}{}
	}
	return out
}

// PendingCreate marks a chat whose next text message names a new taxonomy item.
type PendingCreate struct {
	Kind       ItemKind
	DocumentID int64
}

type ConversationStats struct {
	PendingUploads int
	PendingCreates int
	SearchQueries  int
}
