package memory

import (
	"context"
	"sort"
	"sync"

	"photometry-lab/internal/domain"
	"photometry-lab/internal/storage"
)

// BoutStore is an in-memory implementation of storage.BoutStore.
type BoutStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Bout // keyed by bout_id
}

// NewBoutStore creates a new in-memory bout store.
func NewBoutStore() *BoutStore {
	return &BoutStore{
		data: make(map[string]*domain.Bout),
	}
}

// Insert adds a new bout. Returns ErrDuplicateKey if exists.
func (s *BoutStore) Insert(_ context.Context, b *domain.Bout) error {
	if b == nil || b.BoutID == "" || b.SessionID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[b.BoutID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *b
	s.data[b.BoutID] = &copy
	return nil
}

// InsertBulk adds multiple bouts atomically. Fails entire batch on any duplicate.
func (s *BoutStore) InsertBulk(_ context.Context, bouts []*domain.Bout) error {
	if len(bouts) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(bouts))
	for _, b := range bouts {
		if b == nil || b.BoutID == "" || b.SessionID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[b.BoutID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[b.BoutID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[b.BoutID] = struct{}{}
	}

	for _, b := range bouts {
		copy := *b
		s.data[b.BoutID] = &copy
	}

	return nil
}

// GetBySessionID retrieves all bouts for a session, ordered by start_time ASC.
func (s *BoutStore) GetBySessionID(_ context.Context, sessionID string) ([]*domain.Bout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Bout
	for _, b := range s.data {
		if b.SessionID == sessionID {
			copy := *b
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime < result[j].StartTime
	})

	return result, nil
}

var _ storage.BoutStore = (*BoutStore)(nil)
