package memory

import (
	"sync"

	"github.com/kirillkom/paperless-bot/internal/core/domain"
)

// Store keeps per-chat conversation state in process memory. Entries live
// until they are replaced or consumed.
type Store struct {
	mu       sync.Mutex
	uploads  map[int64]domain.PendingUpload
	creates  map[int64]domain.PendingCreate
	searches map[int64]string
}

func NewStore() *Store {
	return &Store{
		uploads:  make(map[int64]domain.PendingUpload),
		creates:  make(map[int64]domain.PendingCreate),
		searches: make(map[int64]string),
	}
}

// StartUpload replaces any pending upload of the chat with an empty selection.
func (s *Store) StartUpload(chatID, documentID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads[chatID] = domain.NewPendingUpload(documentID)
}

func (s *Store) PendingUpload(chatID int64) (domain.PendingUpload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending, ok := s.uploads[chatID]
	if !ok {
		return domain.PendingUpload{}, false
	}
	return pending.Clone(), true
}

// ToggleTag flips tag membership in the pending selection.
func (s *Store) ToggleTag(chatID, tagID int64) (domain.PendingUpload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending, ok := s.uploads[chatID]
	if !ok {
		return domain.PendingUpload{}, false
	}
	if _, selected := pending.Selected[tagID]; selected {
		delete(pending.Selected, tagID)
	} else {
		pending.Selected[tagID] = struct{}{}
	}
	return pending.Clone(), true
}

func (s *Store) SelectTag(chatID, tagID int64) (domain.PendingUpload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending, ok := s.uploads[chatID]
	if !ok {
		return domain.PendingUpload{}, false
	}
	pending.Selected[tagID] = struct{}{}
	return pending.Clone(), true
}

func (s *Store) FinishUpload(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.uploads, chatID)
}

func (s *Store) AwaitName(chatID int64, pending domain.PendingCreate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates[chatID] = pending
}

// TakePendingCreate removes and returns the pending create of the chat.
func (s *Store) TakePendingCreate(chatID int64) (domain.PendingCreate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending, ok := s.creates[chatID]
	if ok {
		delete(s.creates, chatID)
	}
	return pending, ok
}

func (s *Store) CancelPendingCreate(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.creates, chatID)
}

func (s *Store) RememberQuery(chatID int64, query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches[chatID] = query
}

func (s *Store) LastQuery(chatID int64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	query, ok := s.searches[chatID]
	return query, ok
}

func (s *Store) Stats() domain.ConversationStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.ConversationStats{
		PendingUploads: len(s.uploads),
		PendingCreates: len(s.creates),
		SearchQueries:  len(s.searches),
	}
}
