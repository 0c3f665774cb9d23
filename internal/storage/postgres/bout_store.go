package postgres

import (
	"context"
	"fmt"

	"photometry-lab/internal/domain"
	"photometry-lab/internal/storage"
)

// BoutStore implements storage.BoutStore using PostgreSQL.
type BoutStore struct {
	pool *Pool
}

// NewBoutStore creates a new BoutStore.
func NewBoutStore(pool *Pool) *BoutStore {
	return &BoutStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BoutStore = (*BoutStore)(nil)

const insertBoutQuery = `
	INSERT INTO bouts (
		bout_id, session_id, start_time, end_time, peak_speed, mean_speed
	) VALUES ($1, $2, $3, $4, $5, $6)
`

// Insert adds a new bout. Returns ErrDuplicateKey if bout_id exists.
func (s *BoutStore) Insert(ctx context.Context, b *domain.Bout) error {
	_, err := s.pool.Exec(ctx, insertBoutQuery,
		b.BoutID, b.SessionID, b.StartTime, b.EndTime, b.PeakSpeed, b.MeanSpeed,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert bout: %w", err)
	}
	return nil
}

// InsertBulk adds multiple bouts atomically. Fails entire batch on any duplicate.
func (s *BoutStore) InsertBulk(ctx context.Context, bouts []*domain.Bout) error {
	if len(bouts) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, b := range bouts {
		_, err := tx.Exec(ctx, insertBoutQuery,
			b.BoutID, b.SessionID, b.StartTime, b.EndTime, b.PeakSpeed, b.MeanSpeed,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert bout in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit bulk insert: %w", err)
	}
	return nil
}

// GetBySessionID retrieves all bouts for a session, ordered by start_time ASC.
func (s *BoutStore) GetBySessionID(ctx context.Context, sessionID string) ([]*domain.Bout, error) {
	query := `
		SELECT bout_id, session_id, start_time, end_time, peak_speed, mean_speed
		FROM bouts
		WHERE session_id = $1
		ORDER BY start_time ASC, bout_id ASC
	`

	rows, err := s.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get bouts by session: %w", err)
	}
	defer rows.Close()

	var bouts []*domain.Bout
	for rows.Next() {
		var b domain.Bout
		err := rows.Scan(&b.BoutID, &b.SessionID, &b.StartTime, &b.EndTime, &b.PeakSpeed, &b.MeanSpeed)
		if err != nil {
			return nil, fmt.Errorf("scan bout row: %w", err)
		}
		bouts = append(bouts, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bout rows: %w", err)
	}

	return bouts, nil
}
