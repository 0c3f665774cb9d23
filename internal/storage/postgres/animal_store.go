package postgres

import (
	"context"
	"fmt"

	"photometry-lab/internal/domain"
	"photometry-lab/internal/storage"
)

// AnimalStore implements storage.AnimalStore using PostgreSQL.
type AnimalStore struct {
	pool *Pool
}

// NewAnimalStore creates a new AnimalStore.
func NewAnimalStore(pool *Pool) *AnimalStore {
	return &AnimalStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AnimalStore = (*AnimalStore)(nil)

// Insert adds a new animal. Returns ErrDuplicateKey if animal_id exists.
func (s *AnimalStore) Insert(ctx context.Context, a *domain.Animal) error {
	query := `
		INSERT INTO animals (animal_id, label) VALUES ($1, $2)
	`

	_, err := s.pool.Exec(ctx, query, a.AnimalID, a.Label)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert animal: %w", err)
	}
	return nil
}

// GetByID retrieves an animal by its ID. Returns ErrNotFound if not exists.
func (s *AnimalStore) GetByID(ctx context.Context, animalID string) (*domain.Animal, error) {
	query := `
		SELECT animal_id, label FROM animals WHERE animal_id = $1
	`

	var a domain.Animal
	err := s.pool.QueryRow(ctx, query, animalID).Scan(&a.AnimalID, &a.Label)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get animal by id: %w", err)
	}
	return &a, nil
}

// GetAll retrieves all animals, ordered by animal_id ASC.
func (s *AnimalStore) GetAll(ctx context.Context) ([]*domain.Animal, error) {
	query := `
		SELECT animal_id, label FROM animals ORDER BY animal_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all animals: %w", err)
	}
	defer rows.Close()

	var animals []*domain.Animal
	for rows.Next() {
		var a domain.Animal
		if err := rows.Scan(&a.AnimalID, &a.Label); err != nil {
			return nil, fmt.Errorf("scan animal row: %w", err)
		}
		animals = append(animals, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate animal rows: %w", err)
	}

	return animals, nil
}
