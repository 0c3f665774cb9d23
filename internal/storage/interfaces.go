package storage

import (
	"context"

	"photometry-lab/internal/domain"
)

// AnimalStore provides access to animals storage.
type AnimalStore interface {
	// Insert adds a new animal. Returns ErrDuplicateKey if animal_id exists.
	Insert(ctx context.Context, a *domain.Animal) error

	// GetByID retrieves an animal by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, animalID string) (*domain.Animal, error)

	// GetAll retrieves all animals, ordered by animal_id ASC.
	GetAll(ctx context.Context) ([]*domain.Animal, error)
}

// SessionStore provides access to sessions storage.
type SessionStore interface {
	// Insert adds a new session. Returns ErrDuplicateKey if session_id exists.
	Insert(ctx context.Context, s *domain.Session) error

	// GetByID retrieves a session by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, sessionID string) (*domain.Session, error)

	// GetByAnimalID retrieves all sessions for an animal, ordered by recorded_at ASC.
	GetByAnimalID(ctx context.Context, animalID string) ([]*domain.Session, error)

	// GetByExperimentType retrieves all sessions of one experiment type,
	// ordered by recorded_at ASC.
	GetByExperimentType(ctx context.Context, t domain.ExperimentType) ([]*domain.Session, error)

	// GetAll retrieves all sessions, ordered by recorded_at ASC.
	GetAll(ctx context.Context) ([]*domain.Session, error)
}

// EventStore provides access to events storage.
type EventStore interface {
	// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
	Insert(ctx context.Context, e *domain.Event) error

	// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, events []*domain.Event) error

	// GetByID retrieves an event by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, eventID string) (*domain.Event, error)

	// GetBySessionID retrieves all events for a session, ordered by onset_time ASC.
	GetBySessionID(ctx context.Context, sessionID string) ([]*domain.Event, error)

	// GetByType retrieves all events of one type across sessions,
	// ordered by (session_id, onset_time) ASC.
	GetByType(ctx context.Context, t domain.EventType) ([]*domain.Event, error)
}

// BoutStore provides access to bouts storage.
type BoutStore interface {
	// Insert adds a new bout. Returns ErrDuplicateKey if bout_id exists.
	Insert(ctx context.Context, b *domain.Bout) error

	// InsertBulk adds multiple bouts atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, bouts []*domain.Bout) error

	// GetBySessionID retrieves all bouts for a session, ordered by start_time ASC.
	GetBySessionID(ctx context.Context, sessionID string) ([]*domain.Bout, error)
}

// SpeedSampleStore provides access to speed_samples storage.
type SpeedSampleStore interface {
	// InsertBulk adds multiple samples. Fails entire batch on duplicate (session_id, time).
	InsertBulk(ctx context.Context, samples []*domain.SpeedSample) error

	// GetBySessionID retrieves all samples for a session, ordered by time ASC.
	GetBySessionID(ctx context.Context, sessionID string) ([]*domain.SpeedSample, error)

	// GetByTimeRange retrieves samples for a session within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, sessionID string, start, end float64) ([]*domain.SpeedSample, error)
}

// FluorSampleStore provides access to fluor_samples storage.
type FluorSampleStore interface {
	// InsertBulk adds multiple samples. Fails entire batch on duplicate (session_id, channel, time).
	InsertBulk(ctx context.Context, samples []*domain.FluorSample) error

	// GetBySessionChannel retrieves all samples for one session channel, ordered by time ASC.
	GetBySessionChannel(ctx context.Context, sessionID string, ch domain.Channel) ([]*domain.FluorSample, error)
}

// ConditionedSampleStore provides access to conditioned_samples storage.
type ConditionedSampleStore interface {
	// InsertBulk adds multiple samples. Fails entire batch on duplicate (session_id, channel, time).
	InsertBulk(ctx context.Context, samples []*domain.ConditionedSample) error

	// GetBySessionChannel retrieves all samples for one session channel, ordered by time ASC.
	GetBySessionChannel(ctx context.Context, sessionID string, ch domain.Channel) ([]*domain.ConditionedSample, error)
}

// GroupStatsStore provides access to condition_group_stats storage.
type GroupStatsStore interface {
	// Insert adds one group statistic. Returns ErrDuplicateKey if the key exists.
	Insert(ctx context.Context, s *domain.ConditionGroupStats) error

	// InsertBulk adds multiple group statistics atomically.
	InsertBulk(ctx context.Context, stats []*domain.ConditionGroupStats) error

	// GetByKey retrieves a group statistic by its condition key.
	GetByKey(ctx context.Context, key domain.ConditionKey) (*domain.ConditionGroupStats, error)

	// GetAll retrieves all group statistics, ordered by condition key.
	GetAll(ctx context.Context) ([]*domain.ConditionGroupStats, error)
}
