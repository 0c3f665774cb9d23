package domain

// EventType classifies behavioral and experimental events within a session.
type EventType string

const (
	EventRunningStart EventType = "running-start"
	EventRunningStop  EventType = "running-stop"
	EventDrug         EventType = "drug"
	EventOptogenetic  EventType = "optogenetic"
	EventComposite    EventType = "composite"
)

// IsValid checks if the event type is a known value.
func (e EventType) IsValid() bool {
	switch e {
	case EventRunningStart, EventRunningStop, EventDrug, EventOptogenetic, EventComposite:
		return true
	}
	return false
}

// OptoParams holds optogenetic stimulation parameters. Power is entered by
// the experimenter; frequency, pulse width and duration are resolved by the
// ingestion layer from the recorded TTL edges. The core never re-derives them.
type OptoParams struct {
	PowerMW       float64 // user-supplied laser power (mW)
	FrequencyHz   float64
	PulseWidthSec float64
	DurationSec   float64
}

// Event is a behavioral or experimental event within a session.
// Corresponds to events table in PostgreSQL.
type Event struct {
	EventID    string // PRIMARY KEY, deterministic hash
	SessionID  string // FK to sessions
	AnimalID   string // carried for grouping; sessions belong to animals
	Type       EventType
	OnsetTime  float64  // seconds from session start
	OffsetTime *float64 // nil for instantaneous events (e.g. drug injection)
	Label      string   // free text, e.g. drug name or opto parameter string
	Opto       *OptoParams
}

// Instantaneous reports whether the event has no offset.
func (e Event) Instantaneous() bool {
	return e.OffsetTime == nil
}
