package ingestion

import (
	"photometry-lab/internal/domain"
	"photometry-lab/internal/idhash"
)

// RunningEvents derives one start and one stop event per detected bout.
// The label carries the drug timing classification of the bout midpoint so
// aligned windows group by pharmacological period; pass nil admins for
// sessions without drug administrations (label "baseline").
func RunningEvents(session *domain.Session, bouts []domain.Bout, admins []DrugAdmin) []*domain.Event {
	events := make([]*domain.Event, 0, 2*len(bouts))
	for _, bout := range bouts {
		label := TimingLabel((bout.StartTime+bout.EndTime)/2, admins)

		start := &domain.Event{
			SessionID: session.SessionID,
			AnimalID:  session.AnimalID,
			Type:      domain.EventRunningStart,
			OnsetTime: bout.StartTime,
			Label:     label,
		}
		start.EventID = idhash.ComputeEventID(start.SessionID, start.Type, start.Label, start.OnsetTime)

		stop := &domain.Event{
			SessionID: session.SessionID,
			AnimalID:  session.AnimalID,
			Type:      domain.EventRunningStop,
			OnsetTime: bout.EndTime,
			Label:     label,
		}
		stop.EventID = idhash.ComputeEventID(stop.SessionID, stop.Type, stop.Label, stop.OnsetTime)

		events = append(events, start, stop)
	}
	return events
}
