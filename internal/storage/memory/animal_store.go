package memory

import (
	"context"
	"sort"
	"sync"

	"photometry-lab/internal/domain"
	"photometry-lab/internal/storage"
)

// AnimalStore is an in-memory implementation of storage.AnimalStore.
type AnimalStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Animal // keyed by animal_id
}

// NewAnimalStore creates a new in-memory animal store.
func NewAnimalStore() *AnimalStore {
	return &AnimalStore{
		data: make(map[string]*domain.Animal),
	}
}

// Insert adds a new animal. Returns ErrDuplicateKey if exists.
func (s *AnimalStore) Insert(_ context.Context, a *domain.Animal) error {
	if a == nil || a.AnimalID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.AnimalID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *a
	s.data[a.AnimalID] = &copy
	return nil
}

// GetByID retrieves an animal by its ID. Returns ErrNotFound if not exists.
func (s *AnimalStore) GetByID(_ context.Context, animalID string) (*domain.Animal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.data[animalID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *a
	return &copy, nil
}

// GetAll retrieves all animals, ordered by animal_id ASC.
func (s *AnimalStore) GetAll(_ context.Context) ([]*domain.Animal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Animal, 0, len(s.data))
	for _, a := range s.data {
		copy := *a
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].AnimalID < result[j].AnimalID
	})

	return result, nil
}

var _ storage.AnimalStore = (*AnimalStore)(nil)
