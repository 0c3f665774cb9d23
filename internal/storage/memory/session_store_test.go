package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"photometry-lab/internal/domain"
	"photometry-lab/internal/storage"
)

func TestSessionStore_InsertAndGet(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	s := &domain.Session{
		SessionID:      "sess-1",
		AnimalID:       "m1",
		Day:            "Day1",
		ExperimentType: domain.ExperimentRunning,
		RecordedAt:     1704067200000,
	}

	if err := store.Insert(ctx, s); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.AnimalID != "m1" || got.Day != "Day1" {
		t.Errorf("session mismatch: got %+v", got)
	}
}

func TestSessionStore_DuplicateKey(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	s := &domain.Session{
		SessionID:      "sess-1",
		AnimalID:       "m1",
		Day:            "Day1",
		ExperimentType: domain.ExperimentRunning,
	}

	if err := store.Insert(ctx, s); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.Insert(ctx, s); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestSessionStore_NotFound(t *testing.T) {
	store := NewSessionStore()

	if _, err := store.GetByID(context.Background(), "nonexistent"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSessionStore_InvalidInput(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	cases := []*domain.Session{
		nil,
		{SessionID: "", AnimalID: "m1", ExperimentType: domain.ExperimentRunning},
		{SessionID: "sess-1", AnimalID: "", ExperimentType: domain.ExperimentRunning},
		{SessionID: "sess-1", AnimalID: "m1", ExperimentType: "bogus"},
	}
	for i, s := range cases {
		if err := store.Insert(ctx, s); !errors.Is(err, storage.ErrInvalidInput) {
			t.Errorf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}
}

func TestSessionStore_GetByAnimalOrdered(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	sessions := []*domain.Session{
		{SessionID: "s3", AnimalID: "m1", Day: "Day3", ExperimentType: domain.ExperimentRunning, RecordedAt: 3000},
		{SessionID: "s1", AnimalID: "m1", Day: "Day1", ExperimentType: domain.ExperimentRunning, RecordedAt: 1000},
		{SessionID: "s2", AnimalID: "m2", Day: "Day1", ExperimentType: domain.ExperimentRunningOpto, RecordedAt: 2000},
	}
	for _, s := range sessions {
		if err := store.Insert(ctx, s); err != nil {
			t.Fatalf("Insert %s failed: %v", s.SessionID, err)
		}
	}

	got, err := store.GetByAnimalID(ctx, "m1")
	if err != nil {
		t.Fatalf("GetByAnimalID failed: %v", err)
	}
	if len(got) != 2 || got[0].SessionID != "s1" || got[1].SessionID != "s3" {
		t.Errorf("expected [s1 s3], got %+v", got)
	}

	byType, err := store.GetByExperimentType(ctx, domain.ExperimentRunningOpto)
	if err != nil {
		t.Fatalf("GetByExperimentType failed: %v", err)
	}
	if len(byType) != 1 || byType[0].SessionID != "s2" {
		t.Errorf("expected [s2], got %+v", byType)
	}
}

func TestSessionStore_CopyOnRead(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	s := &domain.Session{SessionID: "sess-1", AnimalID: "m1", ExperimentType: domain.ExperimentRunning}
	if err := store.Insert(ctx, s); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, _ := store.GetByID(ctx, "sess-1")
	got.AnimalID = "mutated"

	again, _ := store.GetByID(ctx, "sess-1")
	if again.AnimalID != "m1" {
		t.Error("mutation of a returned session leaked into the store")
	}
}

func TestSessionStore_ConcurrentInsert(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := &domain.Session{
				SessionID:      string(rune('a' + i)),
				AnimalID:       "m1",
				ExperimentType: domain.ExperimentRunning,
				RecordedAt:     int64(i),
			}
			if err := store.Insert(ctx, s); err != nil {
				t.Errorf("concurrent insert failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(got) != 20 {
		t.Errorf("got %d sessions, want 20", len(got))
	}
}
