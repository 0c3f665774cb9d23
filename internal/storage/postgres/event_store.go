package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"photometry-lab/internal/domain"
	"photometry-lab/internal/storage"
)

// EventStore implements storage.EventStore using PostgreSQL.
// Optogenetic parameters are stored as nullable columns; rows without them
// scan back with a nil Opto.
type EventStore struct {
	pool *Pool
}

// NewEventStore creates a new EventStore.
func NewEventStore(pool *Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

const eventColumns = `
	event_id, session_id, animal_id, type, onset_time, offset_time, label,
	opto_power_mw, opto_frequency_hz, opto_pulse_width_sec, opto_duration_sec
`

const insertEventQuery = `
	INSERT INTO events (
		event_id, session_id, animal_id, type, onset_time, offset_time, label,
		opto_power_mw, opto_frequency_hz, opto_pulse_width_sec, opto_duration_sec
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *EventStore) Insert(ctx context.Context, e *domain.Event) error {
	_, err := s.pool.Exec(ctx, insertEventQuery, eventArgs(e)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *EventStore) InsertBulk(ctx context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range events {
		if _, err := tx.Exec(ctx, insertEventQuery, eventArgs(e)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert event in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit bulk insert: %w", err)
	}
	return nil
}

// GetByID retrieves an event by its ID. Returns ErrNotFound if not exists.
func (s *EventStore) GetByID(ctx context.Context, eventID string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE event_id = $1`

	row := s.pool.QueryRow(ctx, query, eventID)
	e, err := scanEvent(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get event by id: %w", err)
	}
	return e, nil
}

// GetBySessionID retrieves all events for a session, ordered by onset_time ASC.
func (s *EventStore) GetBySessionID(ctx context.Context, sessionID string) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE session_id = $1
		ORDER BY onset_time ASC, event_id ASC
	`

	rows, err := s.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get events by session: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetByType retrieves all events of one type, ordered by (session_id, onset_time) ASC.
func (s *EventStore) GetByType(ctx context.Context, t domain.EventType) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE type = $1
		ORDER BY session_id ASC, onset_time ASC, event_id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(t))
	if err != nil {
		return nil, fmt.Errorf("get events by type: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// eventArgs flattens an event into insert arguments, with nil pointers
// mapping to NULL columns.
func eventArgs(e *domain.Event) []any {
	var power, freq, width, duration *float64
	if e.Opto != nil {
		power = &e.Opto.PowerMW
		freq = &e.Opto.FrequencyHz
		width = &e.Opto.PulseWidthSec
		duration = &e.Opto.DurationSec
	}
	return []any{
		e.EventID,
		e.SessionID,
		e.AnimalID,
		string(e.Type),
		e.OnsetTime,
		e.OffsetTime,
		e.Label,
		power,
		freq,
		width,
		duration,
	}
}

// scanEvent scans a single row into an Event.
func scanEvent(row pgx.Row) (*domain.Event, error) {
	var e domain.Event
	var typeStr string
	var power, freq, width, duration *float64

	err := row.Scan(
		&e.EventID,
		&e.SessionID,
		&e.AnimalID,
		&typeStr,
		&e.OnsetTime,
		&e.OffsetTime,
		&e.Label,
		&power,
		&freq,
		&width,
		&duration,
	)
	if err != nil {
		return nil, err
	}

	e.Type = domain.EventType(typeStr)
	e.Opto = optoFromColumns(power, freq, width, duration)
	return &e, nil
}

// scanEvents scans multiple rows into a slice of Event.
func scanEvents(rows pgx.Rows) ([]*domain.Event, error) {
	var events []*domain.Event

	for rows.Next() {
		var e domain.Event
		var typeStr string
		var power, freq, width, duration *float64

		err := rows.Scan(
			&e.EventID,
			&e.SessionID,
			&e.AnimalID,
			&typeStr,
			&e.OnsetTime,
			&e.OffsetTime,
			&e.Label,
			&power,
			&freq,
			&width,
			&duration,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		e.Type = domain.EventType(typeStr)
		e.Opto = optoFromColumns(power, freq, width, duration)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	return events, nil
}

func optoFromColumns(power, freq, width, duration *float64) *domain.OptoParams {
	if power == nil && freq == nil && width == nil && duration == nil {
		return nil
	}
	o := &domain.OptoParams{}
	if power != nil {
		o.PowerMW = *power
	}
	if freq != nil {
		o.FrequencyHz = *freq
	}
	if width != nil {
		o.PulseWidthSec = *width
	}
	if duration != nil {
		o.DurationSec = *duration
	}
	return o
}
