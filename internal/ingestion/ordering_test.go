package ingestion

import (
	"testing"

	"photometry-lab/internal/domain"
)

func TestSortEvents(t *testing.T) {
	events := []*domain.Event{
		{Type: domain.EventRunningStop, Label: "b", OnsetTime: 10},
		{Type: domain.EventRunningStart, Label: "a", OnsetTime: 10},
		{Type: domain.EventDrug, Label: "cocaine", OnsetTime: 5},
		{Type: domain.EventRunningStart, Label: "b", OnsetTime: 10},
	}

	SortEvents(events)

	if events[0].OnsetTime != 5 {
		t.Errorf("first onset = %v", events[0].OnsetTime)
	}
	// Same onset: tie break by type, then label.
	if events[1].Type != domain.EventRunningStart || events[1].Label != "a" {
		t.Errorf("second event: %+v", events[1])
	}
	if events[2].Label != "b" || events[3].Type != domain.EventRunningStop {
		t.Errorf("tie break failed: %+v, %+v", events[2], events[3])
	}

	if err := ValidateEventOrdering(events); err != nil {
		t.Errorf("sorted events failed validation: %v", err)
	}
}

func TestValidateEventOrdering(t *testing.T) {
	unordered := []*domain.Event{
		{Type: domain.EventDrug, OnsetTime: 10},
		{Type: domain.EventDrug, OnsetTime: 5},
	}
	if err := ValidateEventOrdering(unordered); err == nil {
		t.Error("expected ErrInvalidOrdering")
	}

	if err := ValidateEventOrdering(nil); err != nil {
		t.Errorf("empty slice: %v", err)
	}
}
