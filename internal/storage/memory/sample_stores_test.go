package memory

import (
	"context"
	"errors"
	"testing"

	"photometry-lab/internal/domain"
	"photometry-lab/internal/storage"
)

func TestSpeedSampleStore_InsertBulkAndRange(t *testing.T) {
	store := NewSpeedSampleStore()
	ctx := context.Background()

	samples := []*domain.SpeedSample{
		{SessionID: "sess-1", Time: 0.2, Speed: 5},
		{SessionID: "sess-1", Time: 0.0, Speed: 0},
		{SessionID: "sess-1", Time: 0.1, Speed: 2},
		{SessionID: "sess-2", Time: 0.0, Speed: 9},
	}
	if err := store.InsertBulk(ctx, samples); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetBySessionID(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetBySessionID failed: %v", err)
	}
	if len(got) != 3 || got[0].Time != 0.0 || got[2].Time != 0.2 {
		t.Errorf("expected 3 time-ordered samples, got %+v", got)
	}

	ranged, err := store.GetByTimeRange(ctx, "sess-1", 0.05, 0.15)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(ranged) != 1 || ranged[0].Time != 0.1 {
		t.Errorf("expected one sample at 0.1, got %+v", ranged)
	}
}

func TestSpeedSampleStore_Duplicate(t *testing.T) {
	store := NewSpeedSampleStore()
	ctx := context.Background()

	s := &domain.SpeedSample{SessionID: "sess-1", Time: 1.0, Speed: 3}
	if err := store.InsertBulk(ctx, []*domain.SpeedSample{s}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	if err := store.InsertBulk(ctx, []*domain.SpeedSample{s}); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestFluorSampleStore_ChannelSeparation(t *testing.T) {
	store := NewFluorSampleStore()
	ctx := context.Background()

	samples := []*domain.FluorSample{
		{SessionID: "sess-1", Channel: domain.ChannelSignal, Time: 0.0, Value: 100},
		{SessionID: "sess-1", Channel: domain.ChannelReference, Time: 0.0, Value: 50},
		{SessionID: "sess-1", Channel: domain.ChannelSignal, Time: 0.1, Value: 101},
	}
	if err := store.InsertBulk(ctx, samples); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	sig, err := store.GetBySessionChannel(ctx, "sess-1", domain.ChannelSignal)
	if err != nil {
		t.Fatalf("GetBySessionChannel failed: %v", err)
	}
	if len(sig) != 2 {
		t.Errorf("got %d signal samples, want 2", len(sig))
	}

	ref, _ := store.GetBySessionChannel(ctx, "sess-1", domain.ChannelReference)
	if len(ref) != 1 || ref[0].Value != 50 {
		t.Errorf("got %+v reference samples, want one with value 50", ref)
	}
}

func TestFluorSampleStore_InvalidChannel(t *testing.T) {
	store := NewFluorSampleStore()
	ctx := context.Background()

	bad := []*domain.FluorSample{{SessionID: "sess-1", Channel: "bogus", Time: 0}}
	if err := store.InsertBulk(ctx, bad); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestConditionedSampleStore_InvalidFlag(t *testing.T) {
	store := NewConditionedSampleStore()
	ctx := context.Background()

	samples := []*domain.ConditionedSample{
		{SessionID: "sess-1", Channel: domain.ChannelDFF, Time: 0.0, Value: 0.1},
		{SessionID: "sess-1", Channel: domain.ChannelDFF, Time: 0.1, Value: 0, Invalid: true},
	}
	if err := store.InsertBulk(ctx, samples); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetBySessionChannel(ctx, "sess-1", domain.ChannelDFF)
	if err != nil {
		t.Fatalf("GetBySessionChannel failed: %v", err)
	}
	if len(got) != 2 || got[1].Invalid != true || got[1].Value != 0 {
		t.Errorf("invalid flag not preserved: %+v", got)
	}
}
