package ingestion

import (
	"context"
	"errors"
	"testing"

	"photometry-lab/internal/domain"
	"photometry-lab/internal/storage/memory"
)

type staticTraceSource struct {
	trace domain.Trace
	err   error
}

func (s *staticTraceSource) Fetch(context.Context) (domain.Trace, error) {
	return s.trace, s.err
}

type staticEventSource struct {
	events []*domain.Event
	err    error
}

func (s *staticEventSource) Fetch(context.Context) ([]*domain.Event, error) {
	return s.events, s.err
}

type staticTTLSource struct {
	edges []TTLEdge
}

func (s *staticTTLSource) Fetch(context.Context) ([]TTLEdge, error) {
	return s.edges, nil
}

func TestManagerIngestSpeed(t *testing.T) {
	store := memory.NewSpeedSampleStore()
	m := NewManager(ManagerOptions{
		Session: testSession(),
		SpeedSource: &staticTraceSource{trace: domain.Trace{
			Timestamps: []float64{0, 0.01, 0.02},
			Values:     []float64{1, 2, 3},
		}},
		SpeedStore: store,
	})

	n, err := m.IngestSpeed(context.Background())
	if err != nil {
		t.Fatalf("IngestSpeed failed: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}

	samples, err := store.GetBySessionID(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("GetBySessionID failed: %v", err)
	}
	if len(samples) != 3 || samples[1].Speed != 2 {
		t.Errorf("stored samples: %+v", samples)
	}
}

func TestManagerIngestFluorBothChannels(t *testing.T) {
	store := memory.NewFluorSampleStore()
	m := NewManager(ManagerOptions{
		Session: testSession(),
		SignalSource: &staticTraceSource{trace: domain.Trace{
			Timestamps: []float64{0, 0.01},
			Values:     []float64{100, 101},
		}},
		ReferenceSource: &staticTraceSource{trace: domain.Trace{
			Timestamps: []float64{0, 0.01},
			Values:     []float64{50, 51},
		}},
		FluorStore: store,
	})

	n, err := m.IngestFluor(context.Background())
	if err != nil {
		t.Fatalf("IngestFluor failed: %v", err)
	}
	if n != 4 {
		t.Errorf("count = %d, want 4", n)
	}

	sig, _ := store.GetBySessionChannel(context.Background(), "sess-1", domain.ChannelSignal)
	ref, _ := store.GetBySessionChannel(context.Background(), "sess-1", domain.ChannelReference)
	if len(sig) != 2 || len(ref) != 2 {
		t.Errorf("channels: signal=%d reference=%d", len(sig), len(ref))
	}
	if sig[0].Value != 100 || ref[0].Value != 50 {
		t.Errorf("values: %v, %v", sig[0].Value, ref[0].Value)
	}
}

func TestManagerIngestEventsFillsIdentityAndSorts(t *testing.T) {
	store := memory.NewEventStore()
	m := NewManager(ManagerOptions{
		Session: testSession(),
		EventSource: &staticEventSource{events: []*domain.Event{
			{Type: domain.EventDrug, Label: "cocaine", OnsetTime: 600},
			{Type: domain.EventDrug, Label: "saline", OnsetTime: 100},
		}},
		EventStore: store,
	})

	n, err := m.IngestEvents(context.Background())
	if err != nil {
		t.Fatalf("IngestEvents failed: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}

	events, _ := store.GetBySessionID(context.Background(), "sess-1")
	if len(events) != 2 {
		t.Fatalf("stored %d events", len(events))
	}
	if events[0].Label != "saline" {
		t.Errorf("events not onset ordered: first = %q", events[0].Label)
	}
	for _, e := range events {
		if e.EventID == "" || e.AnimalID != "m1" {
			t.Errorf("identity not filled: %+v", e)
		}
	}
}

func TestManagerIngestEventsSplitsMultiDrugLabels(t *testing.T) {
	store := memory.NewEventStore()
	m := NewManager(ManagerOptions{
		Session: testSession(),
		EventSource: &staticEventSource{events: []*domain.Event{
			{Type: domain.EventDrug, Label: "cocaine,haloperidol", OnsetTime: 600},
			{Type: domain.EventOptogenetic, Label: "20.0Hz_5ms_5.0s_10.0mW", OnsetTime: 300},
		}},
		EventStore: store,
	})

	n, err := m.IngestEvents(context.Background())
	if err != nil {
		t.Fatalf("IngestEvents failed: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}

	events, _ := store.GetBySessionID(context.Background(), "sess-1")
	var drugs []*domain.Event
	for _, e := range events {
		if e.Label == "cocaine,haloperidol" {
			t.Errorf("compound label stored unsplit: %+v", e)
		}
		if e.Type == domain.EventDrug {
			drugs = append(drugs, e)
		}
	}
	if len(drugs) != 2 {
		t.Fatalf("stored %d drug events, want 2", len(drugs))
	}
	labels := map[string]bool{drugs[0].Label: true, drugs[1].Label: true}
	if !labels["cocaine"] || !labels["haloperidol"] {
		t.Errorf("drug labels = %q, %q", drugs[0].Label, drugs[1].Label)
	}
	if drugs[0].OnsetTime != 600 || drugs[1].OnsetTime != 600 {
		t.Errorf("split events should share the onset: %+v", drugs)
	}
	if drugs[0].EventID == drugs[1].EventID || drugs[0].EventID == "" {
		t.Errorf("split events need distinct IDs: %q vs %q", drugs[0].EventID, drugs[1].EventID)
	}
}

func TestManagerIngestOptoEvents(t *testing.T) {
	store := memory.NewEventStore()
	m := NewManager(ManagerOptions{
		Session:     testSession(),
		TTLSource:   &staticTTLSource{edges: pulseTrain(100, 0.05, 0.005, 100)},
		OptoPowerMW: 10,
		EventStore:  store,
	})

	n, err := m.IngestOptoEvents(context.Background())
	if err != nil {
		t.Fatalf("IngestOptoEvents failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}

	events, _ := store.GetBySessionID(context.Background(), "sess-1")
	if len(events) != 1 || events[0].Type != domain.EventOptogenetic {
		t.Fatalf("stored events: %+v", events)
	}
	if events[0].Opto == nil || events[0].Opto.PowerMW != 10 {
		t.Errorf("opto params: %+v", events[0].Opto)
	}
}

func TestManagerNilSourcesAreNoOps(t *testing.T) {
	m := NewManager(ManagerOptions{Session: testSession()})

	ctx := context.Background()
	for name, fn := range map[string]func(context.Context) (int, error){
		"speed":  m.IngestSpeed,
		"fluor":  m.IngestFluor,
		"events": m.IngestEvents,
		"opto":   m.IngestOptoEvents,
	} {
		n, err := fn(ctx)
		if err != nil || n != 0 {
			t.Errorf("%s: got (%d, %v), want (0, nil)", name, n, err)
		}
	}
}

func TestManagerPropagatesSourceError(t *testing.T) {
	wantErr := errors.New("read failed")
	m := NewManager(ManagerOptions{
		Session:     testSession(),
		EventSource: &staticEventSource{err: wantErr},
		EventStore:  memory.NewEventStore(),
	})

	_, err := m.IngestEvents(context.Background())
	if !errors.Is(err, wantErr) {
		t.Errorf("expected source error, got %v", err)
	}
}
