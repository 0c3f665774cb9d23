package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photometry-lab/internal/domain"
	"photometry-lab/internal/storage"
)

func TestBoutStore_InsertBulkAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	animalID := createTestAnimal(t, ctx, pool, "m1")
	sessionID := createTestSession(t, ctx, pool, animalID, "sess-1")

	store := NewBoutStore(pool)
	bouts := []*domain.Bout{
		{BoutID: "b2", SessionID: sessionID, StartTime: 50, EndTime: 60, PeakSpeed: 12.5, MeanSpeed: 8.1},
		{BoutID: "b1", SessionID: sessionID, StartTime: 10, EndTime: 22, PeakSpeed: 9.4, MeanSpeed: 6.7},
	}
	require.NoError(t, store.InsertBulk(ctx, bouts))

	got, err := store.GetBySessionID(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b1", got[0].BoutID)
	assert.Equal(t, "b2", got[1].BoutID)
	assert.Equal(t, 9.4, got[0].PeakSpeed)
}

func TestBoutStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	animalID := createTestAnimal(t, ctx, pool, "m1")
	sessionID := createTestSession(t, ctx, pool, animalID, "sess-1")

	store := NewBoutStore(pool)
	b := &domain.Bout{BoutID: "b1", SessionID: sessionID, StartTime: 10, EndTime: 20}
	require.NoError(t, store.Insert(ctx, b))

	err := store.Insert(ctx, b)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}
