package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"photometry-lab/internal/domain"
	"photometry-lab/internal/storage"
)

// SpeedSampleStore is an in-memory implementation of storage.SpeedSampleStore.
type SpeedSampleStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SpeedSample // keyed by (session_id, time)
}

// NewSpeedSampleStore creates a new in-memory speed sample store.
func NewSpeedSampleStore() *SpeedSampleStore {
	return &SpeedSampleStore{
		data: make(map[string]*domain.SpeedSample),
	}
}

func speedKey(sessionID string, t float64) string {
	return fmt.Sprintf("%s|%.9f", sessionID, t)
}

// InsertBulk adds multiple samples. Fails entire batch on duplicate (session_id, time).
func (s *SpeedSampleStore) InsertBulk(_ context.Context, samples []*domain.SpeedSample) error {
	if len(samples) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(samples))
	for _, sm := range samples {
		if sm == nil || sm.SessionID == "" {
			return storage.ErrInvalidInput
		}
		key := speedKey(sm.SessionID, sm.Time)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, sm := range samples {
		copy := *sm
		s.data[speedKey(sm.SessionID, sm.Time)] = &copy
	}

	return nil
}

// GetBySessionID retrieves all samples for a session, ordered by time ASC.
func (s *SpeedSampleStore) GetBySessionID(ctx context.Context, sessionID string) ([]*domain.SpeedSample, error) {
	return s.getByTimeRange(sessionID, func(float64) bool { return true }), nil
}

// GetByTimeRange retrieves samples for a session within [start, end] (inclusive).
func (s *SpeedSampleStore) GetByTimeRange(_ context.Context, sessionID string, start, end float64) ([]*domain.SpeedSample, error) {
	return s.getByTimeRange(sessionID, func(t float64) bool {
		return t >= start && t <= end
	}), nil
}

func (s *SpeedSampleStore) getByTimeRange(sessionID string, keep func(float64) bool) []*domain.SpeedSample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SpeedSample
	for _, sm := range s.data {
		if sm.SessionID == sessionID && keep(sm.Time) {
			copy := *sm
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Time < result[j].Time
	})

	return result
}

var _ storage.SpeedSampleStore = (*SpeedSampleStore)(nil)

// FluorSampleStore is an in-memory implementation of storage.FluorSampleStore.
type FluorSampleStore struct {
	mu   sync.RWMutex
	data map[string]*domain.FluorSample // keyed by (session_id, channel, time)
}

// NewFluorSampleStore creates a new in-memory fluorescence sample store.
func NewFluorSampleStore() *FluorSampleStore {
	return &FluorSampleStore{
		data: make(map[string]*domain.FluorSample),
	}
}

func channelKey(sessionID string, ch domain.Channel, t float64) string {
	return fmt.Sprintf("%s|%s|%.9f", sessionID, ch, t)
}

// InsertBulk adds multiple samples. Fails entire batch on duplicate (session_id, channel, time).
func (s *FluorSampleStore) InsertBulk(_ context.Context, samples []*domain.FluorSample) error {
	if len(samples) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(samples))
	for _, sm := range samples {
		if sm == nil || sm.SessionID == "" || !sm.Channel.IsValid() {
			return storage.ErrInvalidInput
		}
		key := channelKey(sm.SessionID, sm.Channel, sm.Time)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, sm := range samples {
		copy := *sm
		s.data[channelKey(sm.SessionID, sm.Channel, sm.Time)] = &copy
	}

	return nil
}

// GetBySessionChannel retrieves all samples for one session channel, ordered by time ASC.
func (s *FluorSampleStore) GetBySessionChannel(_ context.Context, sessionID string, ch domain.Channel) ([]*domain.FluorSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FluorSample
	for _, sm := range s.data {
		if sm.SessionID == sessionID && sm.Channel == ch {
			copy := *sm
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Time < result[j].Time
	})

	return result, nil
}

var _ storage.FluorSampleStore = (*FluorSampleStore)(nil)

// ConditionedSampleStore is an in-memory implementation of storage.ConditionedSampleStore.
type ConditionedSampleStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ConditionedSample // keyed by (session_id, channel, time)
}

// NewConditionedSampleStore creates a new in-memory conditioned sample store.
func NewConditionedSampleStore() *ConditionedSampleStore {
	return &ConditionedSampleStore{
		data: make(map[string]*domain.ConditionedSample),
	}
}

// InsertBulk adds multiple samples. Fails entire batch on duplicate (session_id, channel, time).
func (s *ConditionedSampleStore) InsertBulk(_ context.Context, samples []*domain.ConditionedSample) error {
	if len(samples) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(samples))
	for _, sm := range samples {
		if sm == nil || sm.SessionID == "" || !sm.Channel.IsValid() {
			return storage.ErrInvalidInput
		}
		key := channelKey(sm.SessionID, sm.Channel, sm.Time)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, sm := range samples {
		copy := *sm
		s.data[channelKey(sm.SessionID, sm.Channel, sm.Time)] = &copy
	}

	return nil
}

// GetBySessionChannel retrieves all samples for one session channel, ordered by time ASC.
func (s *ConditionedSampleStore) GetBySessionChannel(_ context.Context, sessionID string, ch domain.Channel) ([]*domain.ConditionedSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ConditionedSample
	for _, sm := range s.data {
		if sm.SessionID == sessionID && sm.Channel == ch {
			copy := *sm
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Time < result[j].Time
	})

	return result, nil
}

var _ storage.ConditionedSampleStore = (*ConditionedSampleStore)(nil)
