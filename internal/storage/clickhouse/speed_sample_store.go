package clickhouse

import (
	"context"
	"fmt"

	"photometry-lab/internal/domain"
	"photometry-lab/internal/storage"
)

// SpeedSampleStore implements storage.SpeedSampleStore using ClickHouse.
type SpeedSampleStore struct {
	conn *Conn
}

// NewSpeedSampleStore creates a new SpeedSampleStore.
func NewSpeedSampleStore(conn *Conn) *SpeedSampleStore {
	return &SpeedSampleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SpeedSampleStore = (*SpeedSampleStore)(nil)

// InsertBulk adds multiple samples. Fails entire batch on duplicate (session_id, time).
// MergeTree does not enforce uniqueness, so the batch time span is checked
// against existing rows before the insert.
func (s *SpeedSampleStore) InsertBulk(ctx context.Context, samples []*domain.SpeedSample) error {
	if len(samples) == 0 {
		return nil
	}

	type key struct {
		sessionID string
		time      float64
	}
	seen := make(map[key]struct{}, len(samples))
	spans := make(map[string][2]float64)
	for _, sm := range samples {
		k := key{sm.SessionID, sm.Time}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}

		span, ok := spans[sm.SessionID]
		if !ok {
			spans[sm.SessionID] = [2]float64{sm.Time, sm.Time}
			continue
		}
		if sm.Time < span[0] {
			span[0] = sm.Time
		}
		if sm.Time > span[1] {
			span[1] = sm.Time
		}
		spans[sm.SessionID] = span
	}

	for sessionID, span := range spans {
		count, err := s.countInRange(ctx, sessionID, span[0], span[1])
		if err != nil {
			return fmt.Errorf("check existing samples: %w", err)
		}
		if count > 0 {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO speed_samples (session_id, time, speed)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, sm := range samples {
		if err := batch.Append(sm.SessionID, sm.Time, sm.Speed); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySessionID retrieves all samples for a session, ordered by time ASC.
func (s *SpeedSampleStore) GetBySessionID(ctx context.Context, sessionID string) ([]*domain.SpeedSample, error) {
	query := `
		SELECT session_id, time, speed
		FROM speed_samples
		WHERE session_id = ?
		ORDER BY time ASC
	`

	rows, err := s.conn.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query speed samples by session: %w", err)
	}
	defer rows.Close()

	return scanSpeedSamples(rows)
}

// GetByTimeRange retrieves samples for a session within [start, end] (inclusive).
func (s *SpeedSampleStore) GetByTimeRange(ctx context.Context, sessionID string, start, end float64) ([]*domain.SpeedSample, error) {
	query := `
		SELECT session_id, time, speed
		FROM speed_samples
		WHERE session_id = ? AND time >= ? AND time <= ?
		ORDER BY time ASC
	`

	rows, err := s.conn.Query(ctx, query, sessionID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query speed samples by time range: %w", err)
	}
	defer rows.Close()

	return scanSpeedSamples(rows)
}

// countInRange counts existing samples for a session within [start, end].
func (s *SpeedSampleStore) countInRange(ctx context.Context, sessionID string, start, end float64) (uint64, error) {
	query := `
		SELECT count(*) FROM speed_samples
		WHERE session_id = ? AND time >= ? AND time <= ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, sessionID, start, end).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// scanSpeedSamples scans multiple rows.
func scanSpeedSamples(rows chRows) ([]*domain.SpeedSample, error) {
	var samples []*domain.SpeedSample

	for rows.Next() {
		var sm domain.SpeedSample
		if err := rows.Scan(&sm.SessionID, &sm.Time, &sm.Speed); err != nil {
			return nil, fmt.Errorf("scan speed sample row: %w", err)
		}
		samples = append(samples, &sm)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate speed sample rows: %w", err)
	}

	return samples, nil
}

// chRows is the subset of driver.Rows the scanners need; narrowing the
// interface keeps them testable without a live connection.
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}
