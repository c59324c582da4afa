package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-signal-engine/internal/domain"
	"solana-signal-engine/internal/storage"
)

func testSnapshot(mint string) *domain.TokenStatSnapshot {
	return &domain.TokenStatSnapshot{
		Mint:              mint,
		Px:                0.000031,
		VolumeSol30s:      12.5,
		VolumeSol1m:       30.0,
		VolumeSol5m:       95.25,
		BuysPerSec:        0.4,
		SellsPerSec:       0.1,
		BuySellImbalance:  0.5,
		UniqueTraders30s:  7,
		UniqueTraders1m:   11,
		M1vs5mVelocity:    1.8,
		PriceChange30sPct: 4.2,
		EstFillBps005:     ptr(50.0),
		EstFillBps010:     ptr(100.0),
		EstFillBps015:     ptr(150.0),
		VSol:              ptr(10.0),
		VTok:              ptr(320000.0),
		UpdatedAt:         1700000000000,
	}
}

func TestStatStore_UpsertAndGetByMint(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewStatStore(pool)

	snap := testSnapshot("So11111111111111111111111111111111111111112")
	require.NoError(t, store.Upsert(ctx, snap))

	got, err := store.GetByMint(ctx, snap.Mint)
	require.NoError(t, err)

	assert.Equal(t, snap.Mint, got.Mint)
	assert.InDelta(t, snap.Px, got.Px, 1e-12)
	assert.InDelta(t, snap.VolumeSol30s, got.VolumeSol30s, 1e-9)
	assert.InDelta(t, snap.BuySellImbalance, got.BuySellImbalance, 1e-9)
	assert.Equal(t, snap.UniqueTraders30s, got.UniqueTraders30s)
	assert.Equal(t, snap.UniqueTraders1m, got.UniqueTraders1m)
	require.NotNil(t, got.EstFillBps005)
	assert.InDelta(t, 50.0, *got.EstFillBps005, 1e-9)
	require.NotNil(t, got.VSol)
	assert.InDelta(t, 10.0, *got.VSol, 1e-9)
	assert.Equal(t, snap.UpdatedAt, got.UpdatedAt)
}

func TestStatStore_Upsert_LatestWins(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewStatStore(pool)

	first := testSnapshot("mint-latest")
	require.NoError(t, store.Upsert(ctx, first))

	second := testSnapshot("mint-latest")
	second.Px = 0.000042
	second.VolumeSol1m = 75.0
	second.EstFillBps005 = nil // reserves went unknown
	second.UpdatedAt = first.UpdatedAt + 1000
	require.NoError(t, store.Upsert(ctx, second))

	got, err := store.GetByMint(ctx, "mint-latest")
	require.NoError(t, err)

	assert.InDelta(t, 0.000042, got.Px, 1e-12)
	assert.InDelta(t, 75.0, got.VolumeSol1m, 1e-9)
	assert.Nil(t, got.EstFillBps005)
	assert.Equal(t, second.UpdatedAt, got.UpdatedAt)
}

func TestStatStore_GetByMint_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStatStore(pool)

	_, err := store.GetByMint(context.Background(), "missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestStatStore_Upsert_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStatStore(pool)
	ctx := context.Background()

	err := store.Upsert(ctx, nil)
	assert.True(t, errors.Is(err, storage.ErrInvalidInput))

	err = store.Upsert(ctx, &domain.TokenStatSnapshot{})
	assert.True(t, errors.Is(err, storage.ErrInvalidInput))
}
