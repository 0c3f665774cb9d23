// Package ingestion loads raw session data into the stores and resolves
// derived events. TTL edges become optogenetic stimulation events here;
// downstream packages only ever see resolved events.
package ingestion

import (
	"context"

	"photometry-lab/internal/domain"
)

// TraceSource provides one sampled trace for a session, timestamps in
// seconds from session start.
type TraceSource interface {
	Fetch(ctx context.Context) (domain.Trace, error)
}

// EventSource provides pre-resolved events. Events may be unordered and
// may lack IDs; the Manager fills in identity fields and enforces ordering.
type EventSource interface {
	Fetch(ctx context.Context) ([]*domain.Event, error)
}

// TTLEdge is one raw digital edge from the acquisition system.
// State 0 marks a pulse start, state 1 a pulse end.
type TTLEdge struct {
	Time  float64 // seconds from session start
	Name  string  // input line name, e.g. "Input3"
	State int
}

// TTLSource provides raw TTL edges for a session.
type TTLSource interface {
	Fetch(ctx context.Context) ([]TTLEdge, error)
}
