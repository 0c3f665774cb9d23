package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"photometry-lab/internal/domain"
	"photometry-lab/internal/storage"
)

// SessionStore implements storage.SessionStore using PostgreSQL.
type SessionStore struct {
	pool *Pool
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(pool *Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SessionStore = (*SessionStore)(nil)

// Insert adds a new session. Returns ErrDuplicateKey if session_id exists.
func (s *SessionStore) Insert(ctx context.Context, sess *domain.Session) error {
	query := `
		INSERT INTO sessions (
			session_id, animal_id, day, experiment_type, recorded_at
		) VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query,
		sess.SessionID,
		sess.AnimalID,
		sess.Day,
		string(sess.ExperimentType),
		sess.RecordedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetByID retrieves a session by its ID. Returns ErrNotFound if not exists.
func (s *SessionStore) GetByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	query := `
		SELECT session_id, animal_id, day, experiment_type, recorded_at
		FROM sessions
		WHERE session_id = $1
	`

	row := s.pool.QueryRow(ctx, query, sessionID)
	sess, err := scanSession(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get session by id: %w", err)
	}
	return sess, nil
}

// GetByAnimalID retrieves all sessions for an animal, ordered by recorded_at ASC.
func (s *SessionStore) GetByAnimalID(ctx context.Context, animalID string) ([]*domain.Session, error) {
	query := `
		SELECT session_id, animal_id, day, experiment_type, recorded_at
		FROM sessions
		WHERE animal_id = $1
		ORDER BY recorded_at ASC, session_id ASC
	`

	rows, err := s.pool.Query(ctx, query, animalID)
	if err != nil {
		return nil, fmt.Errorf("get sessions by animal: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

// GetByExperimentType retrieves all sessions of one experiment type,
// ordered by recorded_at ASC.
func (s *SessionStore) GetByExperimentType(ctx context.Context, t domain.ExperimentType) ([]*domain.Session, error) {
	query := `
		SELECT session_id, animal_id, day, experiment_type, recorded_at
		FROM sessions
		WHERE experiment_type = $1
		ORDER BY recorded_at ASC, session_id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(t))
	if err != nil {
		return nil, fmt.Errorf("get sessions by experiment type: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

// GetAll retrieves all sessions, ordered by recorded_at ASC.
func (s *SessionStore) GetAll(ctx context.Context) ([]*domain.Session, error) {
	query := `
		SELECT session_id, animal_id, day, experiment_type, recorded_at
		FROM sessions
		ORDER BY recorded_at ASC, session_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all sessions: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

// scanSession scans a single row into a Session.
func scanSession(row pgx.Row) (*domain.Session, error) {
	var sess domain.Session
	var typeStr string

	err := row.Scan(
		&sess.SessionID,
		&sess.AnimalID,
		&sess.Day,
		&typeStr,
		&sess.RecordedAt,
	)
	if err != nil {
		return nil, err
	}

	sess.ExperimentType = domain.ExperimentType(typeStr)
	return &sess, nil
}

// scanSessions scans multiple rows into a slice of Session.
func scanSessions(rows pgx.Rows) ([]*domain.Session, error) {
	var sessions []*domain.Session

	for rows.Next() {
		var sess domain.Session
		var typeStr string

		err := rows.Scan(
			&sess.SessionID,
			&sess.AnimalID,
			&sess.Day,
			&typeStr,
			&sess.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}

		sess.ExperimentType = domain.ExperimentType(typeStr)
		sessions = append(sessions, &sess)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}

	return sessions, nil
}
