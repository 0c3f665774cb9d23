package reporting

import "time"

// Report is the analysis summary rendered to Markdown and CSV.
type Report struct {
	// Metadata
	GeneratedAt     time.Time
	AnimalCount     int
	SessionCount    int
	ConditionGroups int

	DataSummary DataSummary

	// GroupStats rows are sorted by (experiment, event type, label).
	GroupStats []GroupStatRow

	// BoutSummaries rows are sorted by (animal, day).
	BoutSummaries []BoutSummaryRow
}

// DataSummary describes the dataset the report was generated from.
type DataSummary struct {
	TotalAnimals  int
	TotalSessions int
	TotalEvents   int
	TotalBouts    int

	// SessionsByExperiment counts sessions per experiment type,
	// sorted by experiment type.
	SessionsByExperiment []ExperimentCountRow
}

// ExperimentCountRow is one experiment type's session count.
type ExperimentCountRow struct {
	Experiment string
	Sessions   int
}

// GroupStatRow summarizes one condition group's aligned response.
type GroupStatRow struct {
	Experiment string
	EventType  string
	Label      string
	NAnimals   int
	NEvents    int
	LowN       bool

	// Peak of the grand mean over the window and where it occurs.
	PeakMean float64
	PeakTime float64
	// SEM at the peak sample.
	PeakSEM float64
}

// BoutSummaryRow summarizes one session's locomotion bouts.
type BoutSummaryRow struct {
	SessionID     string
	AnimalID      string
	Day           string
	NBouts        int
	TotalDuration float64
	MeanDuration  float64
	MeanPeakSpeed float64
}
