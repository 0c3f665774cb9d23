package ingestion

import (
	"fmt"
	"sort"

	"photometry-lab/internal/domain"
	"photometry-lab/internal/idhash"
)

// stimSessionGap separates distinct stimulation sessions. Any inter-edge gap
// above it means the stimulation train ended (train frequency < 0.05 Hz).
const stimSessionGap = 20.0

const (
	ttlPulseStart = 0
	ttlPulseEnd   = 1
)

// ResolveOptoEvents groups raw TTL edges into stimulation sessions and
// derives one optogenetic event per session. Frequency, pulse width and
// total duration come from the edges; laser power is experimenter-supplied.
// Sessions with fewer than two edges carry no complete pulse and are dropped.
func ResolveOptoEvents(session *domain.Session, edges []TTLEdge, powerMW float64) []*domain.Event {
	groups := groupStimSessions(edges)

	events := make([]*domain.Event, 0, len(groups))
	for _, group := range groups {
		freq, width, duration := pulseInfo(group)
		params := &domain.OptoParams{
			PowerMW:       powerMW,
			FrequencyHz:   freq,
			PulseWidthSec: width,
			DurationSec:   duration,
		}

		onset := group[0].Time
		offset := group[len(group)-1].Time
		e := &domain.Event{
			SessionID:  session.SessionID,
			AnimalID:   session.AnimalID,
			Type:       domain.EventOptogenetic,
			OnsetTime:  onset,
			OffsetTime: &offset,
			Label:      OptoLabel(freq, width, duration, powerMW),
			Opto:       params,
		}
		e.EventID = idhash.ComputeEventID(e.SessionID, e.Type, e.Label, e.OnsetTime)
		events = append(events, e)
	}
	return events
}

// groupStimSessions splits time-sorted edges into stimulation sessions on
// gaps above stimSessionGap. Groups with fewer than two edges are dropped.
func groupStimSessions(edges []TTLEdge) [][]TTLEdge {
	if len(edges) == 0 {
		return nil
	}

	sorted := make([]TTLEdge, len(edges))
	copy(sorted, edges)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	var groups [][]TTLEdge
	current := []TTLEdge{sorted[0]}
	for _, edge := range sorted[1:] {
		if edge.Time-current[len(current)-1].Time > stimSessionGap {
			if len(current) >= 2 {
				groups = append(groups, current)
			}
			current = []TTLEdge{edge}
		} else {
			current = append(current, edge)
		}
	}
	if len(current) >= 2 {
		groups = append(groups, current)
	}
	return groups
}

// pulseInfo derives (frequency, mean pulse width, total duration) from the
// edges of one stimulation session. Frequency comes from the start-to-start
// intervals; a single start gives frequency 0.
func pulseInfo(edges []TTLEdge) (freq, width, duration float64) {
	if len(edges) < 2 {
		return 0, 0, 0
	}

	var starts, ends []float64
	for _, e := range edges {
		switch e.State {
		case ttlPulseStart:
			starts = append(starts, e.Time)
		case ttlPulseEnd:
			ends = append(ends, e.Time)
		}
	}
	if len(starts) == 0 || len(ends) == 0 {
		return 0, 0, 0
	}

	var widthSum float64
	var widthN int
	for i := 0; i < len(starts) && i < len(ends); i++ {
		if ends[i] > starts[i] {
			widthSum += ends[i] - starts[i]
			widthN++
		}
	}
	if widthN == 0 {
		return 0, 0, 0
	}
	width = widthSum / float64(widthN)

	if len(starts) > 1 {
		freq = float64(len(starts)-1) / (starts[len(starts)-1] - starts[0])
	}

	lo, hi := edges[0].Time, edges[0].Time
	for _, e := range edges[1:] {
		if e.Time < lo {
			lo = e.Time
		}
		if e.Time > hi {
			hi = e.Time
		}
	}
	duration = hi - lo

	return freq, width, duration
}

// OptoLabel renders the canonical stimulation parameter string,
// e.g. "20.0Hz_5ms_5.0s_10.0mW".
func OptoLabel(freq, pulseWidth, duration, power float64) string {
	return fmt.Sprintf("%.1fHz_%.0fms_%.1fs_%.1fmW", freq, pulseWidth*1000, duration, power)
}
