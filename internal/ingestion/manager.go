package ingestion

import (
	"context"

	"photometry-lab/internal/domain"
	"photometry-lab/internal/idhash"
	"photometry-lab/internal/storage"
)

// Manager loads one session's raw data from sources into storage.
// It enforces deterministic event ordering and relies on the storage layer
// for duplicate rejection.
type Manager struct {
	session *domain.Session

	speedSource     TraceSource
	signalSource    TraceSource
	referenceSource TraceSource
	eventSource     EventSource
	ttlSource       TTLSource
	optoPowerMW     float64

	speedStore storage.SpeedSampleStore
	fluorStore storage.FluorSampleStore
	eventStore storage.EventStore
}

// ManagerOptions contains configuration for creating a Manager.
type ManagerOptions struct {
	Session *domain.Session

	SpeedSource     TraceSource
	SignalSource    TraceSource
	ReferenceSource TraceSource
	EventSource     EventSource
	TTLSource       TTLSource
	OptoPowerMW     float64

	SpeedStore storage.SpeedSampleStore
	FluorStore storage.FluorSampleStore
	EventStore storage.EventStore
}

// NewManager creates a new ingestion manager with the provided sources and stores.
func NewManager(opts ManagerOptions) *Manager {
	return &Manager{
		session:         opts.Session,
		speedSource:     opts.SpeedSource,
		signalSource:    opts.SignalSource,
		referenceSource: opts.ReferenceSource,
		eventSource:     opts.EventSource,
		ttlSource:       opts.TTLSource,
		optoPowerMW:     opts.OptoPowerMW,
		speedStore:      opts.SpeedStore,
		fluorStore:      opts.FluorStore,
		eventStore:      opts.EventStore,
	}
}

// IngestSpeed fetches the wheel-speed trace and stores its samples.
// Returns count of ingested samples and any error.
func (m *Manager) IngestSpeed(ctx context.Context) (int, error) {
	if m.speedSource == nil || m.speedStore == nil {
		return 0, nil
	}

	trace, err := m.speedSource.Fetch(ctx)
	if err != nil {
		return 0, err
	}
	if trace.Len() == 0 {
		return 0, nil
	}

	samples := make([]*domain.SpeedSample, trace.Len())
	for i := range trace.Values {
		samples[i] = &domain.SpeedSample{
			SessionID: m.session.SessionID,
			Time:      trace.Timestamps[i],
			Speed:     trace.Values[i],
		}
	}

	if err := m.speedStore.InsertBulk(ctx, samples); err != nil {
		return 0, err
	}
	return len(samples), nil
}

// IngestFluor fetches the signal and reference traces and stores their
// samples under the corresponding channels. Returns total sample count.
func (m *Manager) IngestFluor(ctx context.Context) (int, error) {
	if m.fluorStore == nil {
		return 0, nil
	}

	total := 0
	for _, pair := range []struct {
		source  TraceSource
		channel domain.Channel
	}{
		{m.signalSource, domain.ChannelSignal},
		{m.referenceSource, domain.ChannelReference},
	} {
		if pair.source == nil {
			continue
		}
		trace, err := pair.source.Fetch(ctx)
		if err != nil {
			return total, err
		}
		if trace.Len() == 0 {
			continue
		}

		samples := make([]*domain.FluorSample, trace.Len())
		for i := range trace.Values {
			samples[i] = &domain.FluorSample{
				SessionID: m.session.SessionID,
				Channel:   pair.channel,
				Time:      trace.Timestamps[i],
				Value:     trace.Values[i],
			}
		}
		if err := m.fluorStore.InsertBulk(ctx, samples); err != nil {
			return total, err
		}
		total += len(samples)
	}
	return total, nil
}

// IngestEvents fetches pre-resolved events, fills identity fields and stores
// them in deterministic order. A drug event naming several drugs in its label
// is split into one event per drug at the shared onset, so condition grouping
// keys see per-drug labels. Returns count of ingested events.
func (m *Manager) IngestEvents(ctx context.Context) (int, error) {
	if m.eventSource == nil || m.eventStore == nil {
		return 0, nil
	}

	events, err := m.eventSource.Fetch(ctx)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	events = expandDrugEvents(events)

	for _, e := range events {
		e.SessionID = m.session.SessionID
		e.AnimalID = m.session.AnimalID
		if e.EventID == "" {
			e.EventID = idhash.ComputeEventID(e.SessionID, e.Type, e.Label, e.OnsetTime)
		}
	}

	SortEvents(events)

	if err := m.eventStore.InsertBulk(ctx, events); err != nil {
		return 0, err
	}
	return len(events), nil
}

// IngestOptoEvents fetches raw TTL edges, resolves them into stimulation
// events and stores them. Returns count of resolved events.
func (m *Manager) IngestOptoEvents(ctx context.Context) (int, error) {
	if m.ttlSource == nil || m.eventStore == nil {
		return 0, nil
	}

	edges, err := m.ttlSource.Fetch(ctx)
	if err != nil {
		return 0, err
	}

	events := ResolveOptoEvents(m.session, edges, m.optoPowerMW)
	if len(events) == 0 {
		return 0, nil
	}

	SortEvents(events)

	if err := m.eventStore.InsertBulk(ctx, events); err != nil {
		return 0, err
	}
	return len(events), nil
}
