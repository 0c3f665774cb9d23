package memory

import (
	"context"
	"sort"
	"sync"

	"photometry-lab/internal/domain"
	"photometry-lab/internal/storage"
)

// SessionStore is an in-memory implementation of storage.SessionStore.
type SessionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Session // keyed by session_id
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		data: make(map[string]*domain.Session),
	}
}

// Insert adds a new session. Returns ErrDuplicateKey if exists.
func (s *SessionStore) Insert(_ context.Context, sess *domain.Session) error {
	if sess == nil || sess.SessionID == "" || sess.AnimalID == "" {
		return storage.ErrInvalidInput
	}
	if !sess.ExperimentType.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sess.SessionID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *sess
	s.data[sess.SessionID] = &copy
	return nil
}

// GetByID retrieves a session by its ID. Returns ErrNotFound if not exists.
func (s *SessionStore) GetByID(_ context.Context, sessionID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, exists := s.data[sessionID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *sess
	return &copy, nil
}

// GetByAnimalID retrieves all sessions for an animal, ordered by recorded_at ASC.
func (s *SessionStore) GetByAnimalID(_ context.Context, animalID string) ([]*domain.Session, error) {
	return s.filter(func(sess *domain.Session) bool {
		return sess.AnimalID == animalID
	}), nil
}

// GetByExperimentType retrieves all sessions of one experiment type,
// ordered by recorded_at ASC.
func (s *SessionStore) GetByExperimentType(_ context.Context, t domain.ExperimentType) ([]*domain.Session, error) {
	return s.filter(func(sess *domain.Session) bool {
		return sess.ExperimentType == t
	}), nil
}

// GetAll retrieves all sessions, ordered by recorded_at ASC.
func (s *SessionStore) GetAll(_ context.Context) ([]*domain.Session, error) {
	return s.filter(func(*domain.Session) bool { return true }), nil
}

func (s *SessionStore) filter(keep func(*domain.Session) bool) []*domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Session
	for _, sess := range s.data {
		if keep(sess) {
			copy := *sess
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].RecordedAt != result[j].RecordedAt {
			return result[i].RecordedAt < result[j].RecordedAt
		}
		return result[i].SessionID < result[j].SessionID
	})

	return result
}

var _ storage.SessionStore = (*SessionStore)(nil)
