package memory

import (
	"context"
	"sort"
	"sync"

	"photometry-lab/internal/domain"
	"photometry-lab/internal/storage"
)

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Event // keyed by event_id
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		data: make(map[string]*domain.Event),
	}
}

// Insert adds a new event. Returns ErrDuplicateKey if exists.
func (s *EventStore) Insert(_ context.Context, e *domain.Event) error {
	if err := validateEvent(e); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.EventID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[e.EventID] = cloneEvent(e)
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *EventStore) InsertBulk(_ context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(events))
	for _, e := range events {
		if err := validateEvent(e); err != nil {
			return err
		}
		if _, exists := s.data[e.EventID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[e.EventID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[e.EventID] = struct{}{}
	}

	for _, e := range events {
		s.data[e.EventID] = cloneEvent(e)
	}

	return nil
}

// GetByID retrieves an event by its ID. Returns ErrNotFound if not exists.
func (s *EventStore) GetByID(_ context.Context, eventID string) (*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.data[eventID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return cloneEvent(e), nil
}

// GetBySessionID retrieves all events for a session, ordered by onset_time ASC.
func (s *EventStore) GetBySessionID(_ context.Context, sessionID string) ([]*domain.Event, error) {
	return s.filter(func(e *domain.Event) bool {
		return e.SessionID == sessionID
	}), nil
}

// GetByType retrieves all events of one type, ordered by (session_id, onset_time) ASC.
func (s *EventStore) GetByType(_ context.Context, t domain.EventType) ([]*domain.Event, error) {
	return s.filter(func(e *domain.Event) bool {
		return e.Type == t
	}), nil
}

func (s *EventStore) filter(keep func(*domain.Event) bool) []*domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Event
	for _, e := range s.data {
		if keep(e) {
			result = append(result, cloneEvent(e))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].SessionID != result[j].SessionID {
			return result[i].SessionID < result[j].SessionID
		}
		return result[i].OnsetTime < result[j].OnsetTime
	})

	return result
}

func validateEvent(e *domain.Event) error {
	if e == nil || e.EventID == "" || e.SessionID == "" || !e.Type.IsValid() {
		return storage.ErrInvalidInput
	}
	return nil
}

// cloneEvent deep copies an event including its pointer fields.
func cloneEvent(e *domain.Event) *domain.Event {
	copy := *e
	if e.OffsetTime != nil {
		t := *e.OffsetTime
		copy.OffsetTime = &t
	}
	if e.Opto != nil {
		o := *e.Opto
		copy.Opto = &o
	}
	return &copy
}

var _ storage.EventStore = (*EventStore)(nil)
