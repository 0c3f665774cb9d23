package domain

// Bout is a contiguous interval of sustained locomotion above the speed
// threshold. Corresponds to bouts table in PostgreSQL.
// Invariants: EndTime > StartTime; bouts within one session are
// non-overlapping and time-ordered.
type Bout struct {
	BoutID    string  // PRIMARY KEY, deterministic hash
	SessionID string  // FK to sessions
	StartTime float64 // seconds from session start
	EndTime   float64 // seconds from session start
	PeakSpeed float64 // maximum smoothed speed within the bout
	MeanSpeed float64 // mean smoothed speed within the bout
}

// Duration returns the bout length in seconds.
func (b Bout) Duration() float64 {
	return b.EndTime - b.StartTime
}
