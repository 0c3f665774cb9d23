package reporting

import (
	"context"
	"sort"
	"time"

	"photometry-lab/internal/domain"
	"photometry-lab/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	animalStore     storage.AnimalStore
	sessionStore    storage.SessionStore
	eventStore      storage.EventStore
	boutStore       storage.BoutStore
	groupStatsStore storage.GroupStatsStore
	now             func() time.Time // injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	animalStore storage.AnimalStore,
	sessionStore storage.SessionStore,
	eventStore storage.EventStore,
	boutStore storage.BoutStore,
	groupStatsStore storage.GroupStatsStore,
) *Generator {
	return &Generator{
		animalStore:     animalStore,
		sessionStore:    sessionStore,
		eventStore:      eventStore,
		boutStore:       boutStore,
		groupStatsStore: groupStatsStore,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete report from the stores.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	animals, err := g.animalStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	sessions, err := g.sessionStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := g.groupStatsStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	summary, totalBouts, boutRows, err := g.summarize(ctx, sessions)
	if err != nil {
		return nil, err
	}
	summary.TotalAnimals = len(animals)
	summary.TotalSessions = len(sessions)
	summary.TotalBouts = totalBouts

	return &Report{
		GeneratedAt:     g.now(),
		AnimalCount:     len(animals),
		SessionCount:    len(sessions),
		ConditionGroups: len(stats),
		DataSummary:     summary,
		GroupStats:      groupStatRows(stats),
		BoutSummaries:   boutRows,
	}, nil
}

// GroupTraces loads the stored statistics for the long-form trace CSV.
func (g *Generator) GroupTraces(ctx context.Context) ([]*domain.ConditionGroupStats, error) {
	return g.groupStatsStore.GetAll(ctx)
}

func (g *Generator) summarize(ctx context.Context, sessions []*domain.Session) (DataSummary, int, []BoutSummaryRow, error) {
	var summary DataSummary
	byExperiment := make(map[string]int)
	totalBouts := 0
	var boutRows []BoutSummaryRow

	for _, s := range sessions {
		byExperiment[string(s.ExperimentType)]++

		events, err := g.eventStore.GetBySessionID(ctx, s.SessionID)
		if err != nil {
			return summary, 0, nil, err
		}
		summary.TotalEvents += len(events)

		bouts, err := g.boutStore.GetBySessionID(ctx, s.SessionID)
		if err != nil {
			return summary, 0, nil, err
		}
		totalBouts += len(bouts)
		if len(bouts) > 0 {
			boutRows = append(boutRows, boutSummary(s, bouts))
		}
	}

	for exp, n := range byExperiment {
		summary.SessionsByExperiment = append(summary.SessionsByExperiment, ExperimentCountRow{
			Experiment: exp,
			Sessions:   n,
		})
	}
	sort.Slice(summary.SessionsByExperiment, func(i, j int) bool {
		return summary.SessionsByExperiment[i].Experiment < summary.SessionsByExperiment[j].Experiment
	})

	sort.Slice(boutRows, func(i, j int) bool {
		if boutRows[i].AnimalID != boutRows[j].AnimalID {
			return boutRows[i].AnimalID < boutRows[j].AnimalID
		}
		return boutRows[i].Day < boutRows[j].Day
	})

	return summary, totalBouts, boutRows, nil
}

func boutSummary(s *domain.Session, bouts []*domain.Bout) BoutSummaryRow {
	row := BoutSummaryRow{
		SessionID: s.SessionID,
		AnimalID:  s.AnimalID,
		Day:       s.Day,
		NBouts:    len(bouts),
	}
	var peakSum float64
	for _, b := range bouts {
		row.TotalDuration += b.Duration()
		peakSum += b.PeakSpeed
	}
	row.MeanDuration = row.TotalDuration / float64(len(bouts))
	row.MeanPeakSpeed = peakSum / float64(len(bouts))
	return row
}

func groupStatRows(stats []*domain.ConditionGroupStats) []GroupStatRow {
	rows := make([]GroupStatRow, 0, len(stats))
	for _, s := range stats {
		row := GroupStatRow{
			Experiment: string(s.Key.Experiment),
			EventType:  string(s.Key.EventType),
			Label:      s.Key.Label,
			NAnimals:   s.NAnimals,
			NEvents:    s.NEvents,
			LowN:       s.LowN,
		}
		if len(s.GrandMean) > 0 {
			peak := 0
			for i, v := range s.GrandMean {
				if v > s.GrandMean[peak] {
					peak = i
				}
			}
			row.PeakMean = s.GrandMean[peak]
			row.PeakTime = s.RelTimes[peak]
			row.PeakSEM = s.SEM[peak]
		}
		rows = append(rows, row)
	}
	return rows
}
