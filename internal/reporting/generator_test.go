package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"photometry-lab/internal/domain"
	"photometry-lab/internal/storage/memory"
)

type fixture struct {
	animals    *memory.AnimalStore
	sessions   *memory.SessionStore
	events     *memory.EventStore
	bouts      *memory.BoutStore
	groupStats *memory.GroupStatsStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		animals:    memory.NewAnimalStore(),
		sessions:   memory.NewSessionStore(),
		events:     memory.NewEventStore(),
		bouts:      memory.NewBoutStore(),
		groupStats: memory.NewGroupStatsStore(),
	}
	ctx := context.Background()

	if err := f.animals.Insert(ctx, &domain.Animal{AnimalID: "m1"}); err != nil {
		t.Fatal(err)
	}
	if err := f.sessions.Insert(ctx, &domain.Session{
		SessionID:      "sess-1",
		AnimalID:       "m1",
		Day:            "Day1",
		ExperimentType: domain.ExperimentRunningDrug,
	}); err != nil {
		t.Fatal(err)
	}
	if err := f.events.Insert(ctx, &domain.Event{
		EventID:   "ev-1",
		SessionID: "sess-1",
		AnimalID:  "m1",
		Type:      domain.EventDrug,
		OnsetTime: 600,
		Label:     "cocaine",
	}); err != nil {
		t.Fatal(err)
	}
	if err := f.bouts.InsertBulk(ctx, []*domain.Bout{
		{BoutID: "b1", SessionID: "sess-1", StartTime: 100, EndTime: 110, PeakSpeed: 12, MeanSpeed: 8},
		{BoutID: "b2", SessionID: "sess-1", StartTime: 200, EndTime: 220, PeakSpeed: 8, MeanSpeed: 5},
	}); err != nil {
		t.Fatal(err)
	}
	if err := f.groupStats.Insert(ctx, &domain.ConditionGroupStats{
		Key: domain.ConditionKey{
			Experiment: domain.ExperimentRunningDrug,
			EventType:  domain.EventDrug,
			Label:      "cocaine",
		},
		RelTimes:  []float64{-1, 0, 1},
		GrandMean: []float64{0, 1.5, 0.5},
		SEM:       []float64{0.1, 0.3, 0.2},
		PerAnimal: []domain.AnimalMean{{AnimalID: "m1", NEvents: 2, Mean: []float64{0, 1.5, 0.5}}},
		NAnimals:  1,
		NEvents:   2,
		LowN:      true,
	}); err != nil {
		t.Fatal(err)
	}
	return f
}

func (f *fixture) generator() *Generator {
	return NewGenerator(f.animals, f.sessions, f.events, f.bouts, f.groupStats).
		WithClock(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) })
}

func TestGenerate(t *testing.T) {
	f := newFixture(t)
	report, err := f.generator().Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if report.AnimalCount != 1 || report.SessionCount != 1 || report.ConditionGroups != 1 {
		t.Errorf("counts: %+v", report)
	}
	if report.DataSummary.TotalEvents != 1 || report.DataSummary.TotalBouts != 2 {
		t.Errorf("summary: %+v", report.DataSummary)
	}

	if len(report.GroupStats) != 1 {
		t.Fatalf("group rows: %d", len(report.GroupStats))
	}
	g := report.GroupStats[0]
	if g.PeakMean != 1.5 || g.PeakTime != 0 || g.PeakSEM != 0.3 {
		t.Errorf("peak: %+v", g)
	}
	if !g.LowN {
		t.Error("LowN flag lost")
	}

	if len(report.BoutSummaries) != 1 {
		t.Fatalf("bout rows: %d", len(report.BoutSummaries))
	}
	b := report.BoutSummaries[0]
	if b.NBouts != 2 || b.TotalDuration != 30 || b.MeanDuration != 15 || b.MeanPeakSpeed != 10 {
		t.Errorf("bout summary: %+v", b)
	}
}

func TestGenerateDeterministicClock(t *testing.T) {
	f := newFixture(t)
	r1, err := f.generator().Generate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	r2, err := f.generator().Generate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !r1.GeneratedAt.Equal(r2.GeneratedAt) {
		t.Error("injected clock must make timestamps reproducible")
	}
}

func TestRenderGroupStatsCSV(t *testing.T) {
	rows := []GroupStatRow{{
		Experiment: "running-drug",
		EventType:  "drug",
		Label:      "cocaine",
		NAnimals:   3,
		NEvents:    12,
		PeakMean:   1.5,
		PeakTime:   0.2,
		PeakSEM:    0.3,
	}}

	csv := RenderGroupStatsCSV(rows)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines: %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "experiment,event_type,label") {
		t.Errorf("header: %q", lines[0])
	}
	if !strings.Contains(lines[1], "running-drug,drug,cocaine,3,12,false,1.500000") {
		t.Errorf("row: %q", lines[1])
	}
}

func TestRenderGroupStatsCSVQuotesCommaLabels(t *testing.T) {
	rows := []GroupStatRow{{Experiment: "drug", EventType: "drug", Label: "a,b"}}
	csv := RenderGroupStatsCSV(rows)
	if !strings.Contains(csv, `"a,b"`) {
		t.Errorf("label not quoted: %q", csv)
	}
}

func TestRenderGroupTracesCSV(t *testing.T) {
	stats := []*domain.ConditionGroupStats{{
		Key: domain.ConditionKey{
			Experiment: domain.ExperimentRunning,
			EventType:  domain.EventRunningStart,
			Label:      "baseline",
		},
		RelTimes:  []float64{-1, 0, 1},
		GrandMean: []float64{0, 1, 0.5},
		SEM:       []float64{0.1, 0.2, 0.1},
	}}

	csv := RenderGroupTracesCSV(stats)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines: %d", len(lines))
	}
	if !strings.Contains(lines[2], "running,running-start,baseline,0.000000,1.000000,0.200000") {
		t.Errorf("row: %q", lines[2])
	}
}

func TestRenderMarkdown(t *testing.T) {
	f := newFixture(t)
	report, err := f.generator().Generate(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	md := RenderMarkdown(report)
	for _, want := range []string{
		"# Photometry Analysis Report",
		"Generated: 2026-03-01T12:00:00Z",
		"| Total Bouts | 2 |",
		"| running-drug | 1 |",
		"LOW_N",
		"## Locomotion Bouts",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderMarkdownEmpty(t *testing.T) {
	md := RenderMarkdown(&Report{GeneratedAt: time.Unix(0, 0).UTC()})
	if !strings.Contains(md, "No aggregated statistics.") || !strings.Contains(md, "No bouts detected.") {
		t.Errorf("empty sections missing: %q", md)
	}
}
