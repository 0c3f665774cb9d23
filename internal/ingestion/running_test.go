package ingestion

import (
	"testing"

	"photometry-lab/internal/domain"
)

func TestRunningEvents(t *testing.T) {
	session := testSession()
	bouts := []domain.Bout{
		{BoutID: "b1", SessionID: session.SessionID, StartTime: 100, EndTime: 110},
		{BoutID: "b2", SessionID: session.SessionID, StartTime: 700, EndTime: 720},
	}
	admins := []DrugAdmin{{Time: 600, Name: "cocaine"}}

	events := RunningEvents(session, bouts, admins)
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}

	if events[0].Type != domain.EventRunningStart || events[0].OnsetTime != 100 {
		t.Errorf("first event: %+v", events[0])
	}
	if events[1].Type != domain.EventRunningStop || events[1].OnsetTime != 110 {
		t.Errorf("second event: %+v", events[1])
	}

	// Bout midpoints straddle the administration.
	if events[0].Label != "baseline" || events[1].Label != "baseline" {
		t.Errorf("pre-drug labels: %q, %q", events[0].Label, events[1].Label)
	}
	if events[2].Label != "cocaine" || events[3].Label != "cocaine" {
		t.Errorf("post-drug labels: %q, %q", events[2].Label, events[3].Label)
	}

	seen := map[string]bool{}
	for _, e := range events {
		if e.EventID == "" || seen[e.EventID] {
			t.Fatalf("event ID missing or repeated: %q", e.EventID)
		}
		seen[e.EventID] = true
		if e.SessionID != session.SessionID || e.AnimalID != session.AnimalID {
			t.Errorf("identity fields not set: %+v", e)
		}
	}
}

func TestRunningEventsNoAdmins(t *testing.T) {
	session := testSession()
	bouts := []domain.Bout{{BoutID: "b1", SessionID: session.SessionID, StartTime: 5, EndTime: 8}}

	events := RunningEvents(session, bouts, nil)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Label != "baseline" {
		t.Errorf("label = %q, want baseline", events[0].Label)
	}
}
