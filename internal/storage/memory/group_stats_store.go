package memory

import (
	"context"
	"sort"
	"sync"

	"photometry-lab/internal/domain"
	"photometry-lab/internal/storage"
)

// GroupStatsStore is an in-memory implementation of storage.GroupStatsStore.
type GroupStatsStore struct {
	mu   sync.RWMutex
	data map[domain.ConditionKey]*domain.ConditionGroupStats
}

// NewGroupStatsStore creates a new in-memory group statistics store.
func NewGroupStatsStore() *GroupStatsStore {
	return &GroupStatsStore{
		data: make(map[domain.ConditionKey]*domain.ConditionGroupStats),
	}
}

// Insert adds one group statistic. Returns ErrDuplicateKey if the key exists.
func (s *GroupStatsStore) Insert(_ context.Context, stat *domain.ConditionGroupStats) error {
	if err := validateStats(stat); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[stat.Key]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[stat.Key] = cloneStats(stat)
	return nil
}

// InsertBulk adds multiple group statistics atomically.
func (s *GroupStatsStore) InsertBulk(_ context.Context, stats []*domain.ConditionGroupStats) error {
	if len(stats) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[domain.ConditionKey]struct{}, len(stats))
	for _, stat := range stats {
		if err := validateStats(stat); err != nil {
			return err
		}
		if _, exists := s.data[stat.Key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[stat.Key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[stat.Key] = struct{}{}
	}

	for _, stat := range stats {
		s.data[stat.Key] = cloneStats(stat)
	}

	return nil
}

// GetByKey retrieves a group statistic by its condition key.
func (s *GroupStatsStore) GetByKey(_ context.Context, key domain.ConditionKey) (*domain.ConditionGroupStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stat, exists := s.data[key]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return cloneStats(stat), nil
}

// GetAll retrieves all group statistics, ordered by condition key.
func (s *GroupStatsStore) GetAll(_ context.Context) ([]*domain.ConditionGroupStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ConditionGroupStats, 0, len(s.data))
	for _, stat := range s.data {
		result = append(result, cloneStats(stat))
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i].Key, result[j].Key
		if a.Experiment != b.Experiment {
			return a.Experiment < b.Experiment
		}
		if a.EventType != b.EventType {
			return a.EventType < b.EventType
		}
		return a.Label < b.Label
	})

	return result, nil
}

func validateStats(stat *domain.ConditionGroupStats) error {
	if stat == nil || !stat.Key.EventType.IsValid() || !stat.Key.Experiment.IsValid() {
		return storage.ErrInvalidInput
	}
	return nil
}

// cloneStats deep copies a group statistic including its slices.
func cloneStats(stat *domain.ConditionGroupStats) *domain.ConditionGroupStats {
	copy := *stat
	copy.RelTimes = cloneFloats(stat.RelTimes)
	copy.GrandMean = cloneFloats(stat.GrandMean)
	copy.SEM = cloneFloats(stat.SEM)
	copy.PerAnimal = make([]domain.AnimalMean, len(stat.PerAnimal))
	for i, am := range stat.PerAnimal {
		copy.PerAnimal[i] = domain.AnimalMean{
			AnimalID: am.AnimalID,
			NEvents:  am.NEvents,
			Mean:     cloneFloats(am.Mean),
		}
	}
	return &copy
}

func cloneFloats(xs []float64) []float64 {
	if xs == nil {
		return nil
	}
	out := make([]float64, len(xs))
	copy(out, xs)
	return out
}

var _ storage.GroupStatsStore = (*GroupStatsStore)(nil)
