package ingestion

import (
	"sort"
	"strings"

	"photometry-lab/internal/domain"
	"photometry-lab/internal/idhash"
)

// DrugAdmin is one drug administration within a session.
type DrugAdmin struct {
	Time float64 // seconds from session start
	Name string
}

// SplitDrugNames splits a comma-separated drug list into trimmed names.
// Empty entries are dropped.
func SplitDrugNames(s string) []string {
	var names []string
	for _, part := range strings.Split(s, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// DrugEvents builds one instantaneous event per administration. A label
// naming several drugs yields one event per drug at the same onset.
func DrugEvents(session *domain.Session, admins []DrugAdmin) []*domain.Event {
	var events []*domain.Event
	for _, admin := range admins {
		for _, name := range SplitDrugNames(admin.Name) {
			e := &domain.Event{
				SessionID: session.SessionID,
				AnimalID:  session.AnimalID,
				Type:      domain.EventDrug,
				OnsetTime: admin.Time,
				Label:     name,
			}
			e.EventID = idhash.ComputeEventID(e.SessionID, e.Type, e.Label, e.OnsetTime)
			events = append(events, e)
		}
	}
	return events
}

// expandDrugEvents replaces each drug event whose label names several drugs
// with one event per drug at the same onset. Other event types pass through
// untouched. Split events get fresh IDs downstream since their labels change.
func expandDrugEvents(events []*domain.Event) []*domain.Event {
	out := make([]*domain.Event, 0, len(events))
	for _, e := range events {
		if e.Type != domain.EventDrug {
			out = append(out, e)
			continue
		}
		names := SplitDrugNames(e.Label)
		if len(names) == 0 {
			out = append(out, e)
			continue
		}
		for _, name := range names {
			if name == e.Label {
				out = append(out, e)
				continue
			}
			split := *e
			split.Label = name
			split.EventID = ""
			out = append(out, &split)
		}
	}
	return out
}

// TimingLabel classifies a time point against the administration sequence.
// Times before the first administration are "baseline". After the first
// administration the label is that drug's name; after later ones it is
// "current after earlier1 + earlier2" so overlapping pharmacology stays
// visible in the condition key.
func TimingLabel(t float64, admins []DrugAdmin) string {
	if len(admins) == 0 {
		return "baseline"
	}

	sorted := make([]DrugAdmin, len(admins))
	copy(sorted, admins)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	if t < sorted[0].Time {
		return "baseline"
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		if t >= sorted[i].Time {
			if i == 0 {
				return sorted[0].Name
			}
			prior := make([]string, i)
			for j := 0; j < i; j++ {
				prior[j] = sorted[j].Name
			}
			return sorted[i].Name + " after " + strings.Join(prior, " + ")
		}
	}
	return "baseline"
}
