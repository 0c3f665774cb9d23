package clickhouse

import (
	"context"
	"fmt"

	"photometry-lab/internal/domain"
	"photometry-lab/internal/storage"
)

// GroupStatsStore implements storage.GroupStatsStore using ClickHouse.
// Per-animal means are stored as parallel array columns on the group row so a
// statistic round-trips through one table.
type GroupStatsStore struct {
	conn *Conn
}

// NewGroupStatsStore creates a new GroupStatsStore.
func NewGroupStatsStore(conn *Conn) *GroupStatsStore {
	return &GroupStatsStore{conn: conn}
}

// Compile-time interface check.
var _ storage.GroupStatsStore = (*GroupStatsStore)(nil)

// Insert adds one group statistic. Returns ErrDuplicateKey if the key exists.
func (s *GroupStatsStore) Insert(ctx context.Context, stat *domain.ConditionGroupStats) error {
	return s.InsertBulk(ctx, []*domain.ConditionGroupStats{stat})
}

// InsertBulk adds multiple group statistics atomically.
func (s *GroupStatsStore) InsertBulk(ctx context.Context, stats []*domain.ConditionGroupStats) error {
	if len(stats) == 0 {
		return nil
	}

	seen := make(map[domain.ConditionKey]struct{}, len(stats))
	for _, stat := range stats {
		if _, exists := seen[stat.Key]; exists {
			return storage.ErrDuplicateKey
		}
		seen[stat.Key] = struct{}{}

		exists, err := s.exists(ctx, stat.Key)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO condition_group_stats (
			experiment_type, event_type, label, rel_times, grand_mean, sem,
			animal_ids, animal_n_events, animal_means, n_animals, n_events, low_n
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, stat := range stats {
		animalIDs := make([]string, len(stat.PerAnimal))
		animalNEvents := make([]uint32, len(stat.PerAnimal))
		animalMeans := make([][]float64, len(stat.PerAnimal))
		for i, am := range stat.PerAnimal {
			animalIDs[i] = am.AnimalID
			animalNEvents[i] = uint32(am.NEvents)
			animalMeans[i] = am.Mean
		}

		lowN := uint8(0)
		if stat.LowN {
			lowN = 1
		}

		err = batch.Append(
			string(stat.Key.Experiment),
			string(stat.Key.EventType),
			stat.Key.Label,
			stat.RelTimes,
			stat.GrandMean,
			stat.SEM,
			animalIDs,
			animalNEvents,
			animalMeans,
			uint32(stat.NAnimals),
			uint32(stat.NEvents),
			lowN,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

const groupStatsColumns = `
	experiment_type, event_type, label, rel_times, grand_mean, sem,
	animal_ids, animal_n_events, animal_means, n_animals, n_events, low_n
`

// GetByKey retrieves a group statistic by its condition key.
func (s *GroupStatsStore) GetByKey(ctx context.Context, key domain.ConditionKey) (*domain.ConditionGroupStats, error) {
	query := `
		SELECT ` + groupStatsColumns + `
		FROM condition_group_stats
		WHERE experiment_type = ? AND event_type = ? AND label = ?
	`

	rows, err := s.conn.Query(ctx, query, string(key.Experiment), string(key.EventType), key.Label)
	if err != nil {
		return nil, fmt.Errorf("query group stats by key: %w", err)
	}
	defer rows.Close()

	stats, err := scanGroupStats(rows)
	if err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return nil, storage.ErrNotFound
	}
	return stats[0], nil
}

// GetAll retrieves all group statistics, ordered by condition key.
func (s *GroupStatsStore) GetAll(ctx context.Context) ([]*domain.ConditionGroupStats, error) {
	query := `
		SELECT ` + groupStatsColumns + `
		FROM condition_group_stats
		ORDER BY experiment_type ASC, event_type ASC, label ASC
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all group stats: %w", err)
	}
	defer rows.Close()

	return scanGroupStats(rows)
}

// exists checks if a statistic with the given key exists.
func (s *GroupStatsStore) exists(ctx context.Context, key domain.ConditionKey) (bool, error) {
	query := `
		SELECT count(*) FROM condition_group_stats
		WHERE experiment_type = ? AND event_type = ? AND label = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, string(key.Experiment), string(key.EventType), key.Label).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanGroupStats scans multiple rows.
func scanGroupStats(rows chRows) ([]*domain.ConditionGroupStats, error) {
	var stats []*domain.ConditionGroupStats

	for rows.Next() {
		var stat domain.ConditionGroupStats
		var experimentStr, eventStr string
		var animalIDs []string
		var animalNEvents []uint32
		var animalMeans [][]float64
		var nAnimals, nEvents uint32
		var lowN uint8

		err := rows.Scan(
			&experimentStr,
			&eventStr,
			&stat.Key.Label,
			&stat.RelTimes,
			&stat.GrandMean,
			&stat.SEM,
			&animalIDs,
			&animalNEvents,
			&animalMeans,
			&nAnimals,
			&nEvents,
			&lowN,
		)
		if err != nil {
			return nil, fmt.Errorf("scan group stats row: %w", err)
		}

		stat.Key.Experiment = domain.ExperimentType(experimentStr)
		stat.Key.EventType = domain.EventType(eventStr)
		stat.PerAnimal = make([]domain.AnimalMean, len(animalIDs))
		for i := range animalIDs {
			stat.PerAnimal[i] = domain.AnimalMean{
				AnimalID: animalIDs[i],
				NEvents:  int(animalNEvents[i]),
				Mean:     animalMeans[i],
			}
		}
		stat.NAnimals = int(nAnimals)
		stat.NEvents = int(nEvents)
		stat.LowN = lowN != 0
		stats = append(stats, &stat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group stats rows: %w", err)
	}

	return stats, nil
}
