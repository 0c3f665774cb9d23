package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photometry-lab/internal/domain"
	"photometry-lab/internal/storage"
)

func TestSpeedSampleStore_InsertBulkAndQuery(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSpeedSampleStore(conn)

	samples := []*domain.SpeedSample{
		{SessionID: "sess-1", Time: 0.0, Speed: 0},
		{SessionID: "sess-1", Time: 0.1, Speed: 3.2},
		{SessionID: "sess-1", Time: 0.2, Speed: 7.8},
		{SessionID: "sess-2", Time: 0.0, Speed: 1.1},
	}
	require.NoError(t, store.InsertBulk(ctx, samples))

	got, err := store.GetBySessionID(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 0.0, got[0].Time)
	assert.Equal(t, 7.8, got[2].Speed)

	ranged, err := store.GetByTimeRange(ctx, "sess-1", 0.05, 0.15)
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, 3.2, ranged[0].Speed)
}

func TestSpeedSampleStore_DuplicateRejection(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSpeedSampleStore(conn)

	samples := []*domain.SpeedSample{{SessionID: "sess-1", Time: 1.0, Speed: 2.0}}
	require.NoError(t, store.InsertBulk(ctx, samples))

	// Same (session_id, time) again.
	err := store.InsertBulk(ctx, samples)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Intra-batch duplicate.
	dup := []*domain.SpeedSample{
		{SessionID: "sess-2", Time: 1.0, Speed: 2.0},
		{SessionID: "sess-2", Time: 1.0, Speed: 3.0},
	}
	err = store.InsertBulk(ctx, dup)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestConditionedSampleStore_RoundTrip(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewConditionedSampleStore(conn)

	samples := []*domain.ConditionedSample{
		{SessionID: "sess-1", Channel: domain.ChannelDFF, Time: 0.0, Value: 0.12},
		{SessionID: "sess-1", Channel: domain.ChannelDFF, Time: 0.1, Value: 0, Invalid: true},
		{SessionID: "sess-1", Channel: domain.ChannelZScore, Time: 0.0, Value: 1.5},
	}
	require.NoError(t, store.InsertBulk(ctx, samples))

	dff, err := store.GetBySessionChannel(ctx, "sess-1", domain.ChannelDFF)
	require.NoError(t, err)
	require.Len(t, dff, 2)
	assert.False(t, dff[0].Invalid)
	assert.True(t, dff[1].Invalid)

	z, err := store.GetBySessionChannel(ctx, "sess-1", domain.ChannelZScore)
	require.NoError(t, err)
	require.Len(t, z, 1)
	assert.Equal(t, 1.5, z[0].Value)
}

func TestFluorSampleStore_RoundTrip(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewFluorSampleStore(conn)

	samples := []*domain.FluorSample{
		{SessionID: "sess-1", Channel: domain.ChannelSignal, Time: 0.0, Value: 210.5},
		{SessionID: "sess-1", Channel: domain.ChannelReference, Time: 0.0, Value: 98.1},
	}
	require.NoError(t, store.InsertBulk(ctx, samples))

	sig, err := store.GetBySessionChannel(ctx, "sess-1", domain.ChannelSignal)
	require.NoError(t, err)
	require.Len(t, sig, 1)
	assert.Equal(t, 210.5, sig[0].Value)
	assert.Equal(t, domain.ChannelSignal, sig[0].Channel)
}
