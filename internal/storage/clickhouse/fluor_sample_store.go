package clickhouse

import (
	"context"
	"fmt"

	"photometry-lab/internal/domain"
	"photometry-lab/internal/storage"
)

// FluorSampleStore implements storage.FluorSampleStore using ClickHouse.
type FluorSampleStore struct {
	conn *Conn
}

// NewFluorSampleStore creates a new FluorSampleStore.
func NewFluorSampleStore(conn *Conn) *FluorSampleStore {
	return &FluorSampleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.FluorSampleStore = (*FluorSampleStore)(nil)

// InsertBulk adds multiple samples. Fails entire batch on duplicate (session_id, channel, time).
func (s *FluorSampleStore) InsertBulk(ctx context.Context, samples []*domain.FluorSample) error {
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
		SELECT count(*) FROM fluor_samples
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
		INSERT INTO fluor_samples (session_id, channel, time, value)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, sm := range samples {
		if err := batch.Append(sm.SessionID, string(sm.Channel), sm.Time, sm.Value); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySessionChannel retrieves all samples for one session channel, ordered by time ASC.
func (s *FluorSampleStore) GetBySessionChannel(ctx context.Context, sessionID string, ch domain.Channel) ([]*domain.FluorSample, error) {
	query := `
		SELECT session_id, channel, time, value
		FROM fluor_samples
		WHERE session_id = ? AND channel = ?
		ORDER BY time ASC
	`

	rows, err := s.conn.Query(ctx, query, sessionID, string(ch))
	if err != nil {
		return nil, fmt.Errorf("query fluor samples: %w", err)
	}
	defer rows.Close()

	var samples []*domain.FluorSample
	for rows.Next() {
		var sm domain.FluorSample
		var channelStr string
		if err := rows.Scan(&sm.SessionID, &channelStr, &sm.Time, &sm.Value); err != nil {
			return nil, fmt.Errorf("scan fluor sample row: %w", err)
		}
		sm.Channel = domain.Channel(channelStr)
		samples = append(samples, &sm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fluor sample rows: %w", err)
	}

	return samples, nil
}
