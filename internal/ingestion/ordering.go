package ingestion

import (
	"errors"
	"sort"

	"photometry-lab/internal/domain"
)

// ErrInvalidOrdering is returned when events are not properly ordered.
var ErrInvalidOrdering = errors.New("events are not in deterministic order")

// SortEvents orders events by (onset_time ASC, type ASC, label ASC).
// Ties beyond that are impossible given deterministic event IDs.
func SortEvents(events []*domain.Event) {
	sort.Slice(events, func(i, j int) bool {
		return compareEvents(events[i], events[j]) < 0
	})
}

// ValidateEventOrdering checks if events are properly ordered.
// Returns ErrInvalidOrdering if not.
func ValidateEventOrdering(events []*domain.Event) error {
	for i := 1; i < len(events); i++ {
		if compareEvents(events[i-1], events[i]) > 0 {
			return ErrInvalidOrdering
		}
	}
	return nil
}

// compareEvents returns negative, zero or positive for a < b, a == b, a > b.
// Order: (onset_time ASC, type ASC, label ASC)
func compareEvents(a, b *domain.Event) int {
	if a.OnsetTime != b.OnsetTime {
		if a.OnsetTime < b.OnsetTime {
			return -1
		}
		return 1
	}
	if a.Type != b.Type {
		if a.Type < b.Type {
			return -1
		}
		return 1
	}
	if a.Label != b.Label {
		if a.Label < b.Label {
			return -1
		}
		return 1
	}
	return 0
}
