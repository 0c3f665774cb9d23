package domain

// ExperimentType identifies the recording modality combination of a session.
type ExperimentType string

const (
	ExperimentRunning         ExperimentType = "running"
	ExperimentRunningDrug     ExperimentType = "running-drug"
	ExperimentRunningOpto     ExperimentType = "running-opto"
	ExperimentRunningOptoDrug ExperimentType = "running-opto-drug"
	ExperimentDrug            ExperimentType = "drug"
	ExperimentOpto            ExperimentType = "opto"
)

// IsValid checks if the experiment type is a known value.
func (e ExperimentType) IsValid() bool {
	switch e {
	case ExperimentRunning, ExperimentRunningDrug, ExperimentRunningOpto,
		ExperimentRunningOptoDrug, ExperimentDrug, ExperimentOpto:
		return true
	}
	return false
}

// Animal identifies one subject. Corresponds to animals table in PostgreSQL.
// The pipeline only ever uses AnimalID as an opaque grouping key.
type Animal struct {
	AnimalID string // PRIMARY KEY
	Label    string // cage/ear tag, free text
}

// Session is one recording of one animal on one day.
// Corresponds to sessions table in PostgreSQL.
type Session struct {
	SessionID      string // PRIMARY KEY, deterministic hash
	AnimalID       string // FK to animals
	Day            string // experiment day label, e.g. "Day1"
	ExperimentType ExperimentType
	RecordedAt     int64 // Unix timestamp in milliseconds
}
