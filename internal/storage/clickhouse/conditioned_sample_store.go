package clickhouse

import (
	"context"
	"fmt"

	"photometry-lab/internal/domain"
	"photometry-lab/internal/storage"
)

// ConditionedSampleStore implements storage.ConditionedSampleStore using ClickHouse.
type ConditionedSampleStore struct {
	conn *Conn
}

// NewConditionedSampleStore creates a new ConditionedSampleStore.
func NewConditionedSampleStore(conn *Conn) *ConditionedSampleStore {
	return &ConditionedSampleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ConditionedSampleStore = (*ConditionedSampleStore)(nil)

// InsertBulk adds multiple samples. Fails entire batch on duplicate (session_id, channel, time).
func (s *ConditionedSampleStore) InsertBulk(ctx context.Context, samples []*domain.ConditionedSample) error {
	if len(samples) == 0 {
		return nil
	}

	type key struct {
		sessionID string
		channel   domain.Channel
		time      float64
	}
	seen := make(map[key]struct{}, len(samples))
	type spanKey struct {
		sessionID string
		channel   domain.Channel
	}
	spans := make(map[spanKey][2]float64)
	for _, sm := range samples {
		k := key{sm.SessionID, sm.Channel, sm.Time}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}

		sk := spanKey{sm.SessionID, sm.Channel}
		span, ok := spans[sk]
		if !ok {
			spans[sk] = [2]float64{sm.Time, sm.Time}
			continue
		}
		if sm.Time < span[0] {
			span[0] = sm.Time
		}
		if sm.Time > span[1] {
			span[1] = sm.Time
		}
		spans[sk] = span
	}

	countQuery := `
		SELECT count(*) FROM conditioned_samples
		WHERE session_id = ? AND channel = ? AND time >= ? AND time <= ?
	`
	for sk, span := range spans {
		var count uint64
		err := s.conn.QueryRow(ctx, countQuery, sk.sessionID, string(sk.channel), span[0], span[1]).Scan(&count)
		if err != nil {
			return fmt.Errorf("check existing samples: %w", err)
		}
		if count > 0 {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO conditioned_samples (session_id, channel, time, value, invalid)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, sm := range samples {
		invalid := uint8(0)
		if sm.Invalid {
			invalid = 1
		}
		if err := batch.Append(sm.SessionID, string(sm.Channel), sm.Time, sm.Value, invalid); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySessionChannel retrieves all samples for one session channel, ordered by time ASC.
func (s *ConditionedSampleStore) GetBySessionChannel(ctx context.Context, sessionID string, ch domain.Channel) ([]*domain.ConditionedSample, error) {
	query := `
		SELECT session_id, channel, time, value, invalid
		FROM conditioned_samples
		WHERE session_id = ? AND channel = ?
		ORDER BY time ASC
	`

	rows, err := s.conn.Query(ctx, query, sessionID, string(ch))
	if err != nil {
		return nil, fmt.Errorf("query conditioned samples: %w", err)
	}
	defer rows.Close()

	var samples []*domain.ConditionedSample
	for rows.Next() {
		var sm domain.ConditionedSample
		var channelStr string
		var invalid uint8
		if err := rows.Scan(&sm.SessionID, &channelStr, &sm.Time, &sm.Value, &invalid); err != nil {
			return nil, fmt.Errorf("scan conditioned sample row: %w", err)
		}
		sm.Channel = domain.Channel(channelStr)
		sm.Invalid = invalid != 0
		samples = append(samples, &sm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conditioned sample rows: %w", err)
	}

	return samples, nil
}
