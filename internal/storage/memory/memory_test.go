package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-signal-engine/internal/domain"
	"solana-signal-engine/internal/storage"
)

func TestRuleStore_PutAndListEnabled(t *testing.T) {
	store := NewRuleStore()
	ctx := context.Background()

	require.NoError(t, store.Put(&domain.Rule{ID: "rule-b", Expression: json.RawMessage(`{"all":[]}`)}))
	require.NoError(t, store.Put(&domain.Rule{ID: "rule-a", Expression: json.RawMessage(`{"any":[]}`)}))

	rules, err := store.ListEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "rule-a", rules[0].ID)
	assert.Equal(t, "rule-b", rules[1].ID)
}

func TestRuleStore_SetEnabled(t *testing.T) {
	store := NewRuleStore()
	ctx := context.Background()

	require.NoError(t, store.Put(&domain.Rule{ID: "rule-1"}))
	require.NoError(t, store.SetEnabled("rule-1", false))

	rules, err := store.ListEnabled(ctx)
	require.NoError(t, err)
	assert.Empty(t, rules)

	require.NoError(t, store.SetEnabled("rule-1", true))
	rules, err = store.ListEnabled(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 1)

	err = store.SetEnabled("unknown", true)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestRuleStore_PutInvalid(t *testing.T) {
	store := NewRuleStore()

	assert.True(t, errors.Is(store.Put(nil), storage.ErrInvalidInput))
	assert.True(t, errors.Is(store.Put(&domain.Rule{}), storage.ErrInvalidInput))
}

func TestRuleStore_ListReturnsCopies(t *testing.T) {
	store := NewRuleStore()
	ctx := context.Background()

	require.NoError(t, store.Put(&domain.Rule{ID: "rule-1", Mint: "*"}))

	rules, err := store.ListEnabled(ctx)
	require.NoError(t, err)
	rules[0].Mint = "mutated"

	again, err := store.ListEnabled(ctx)
	require.NoError(t, err)
	assert.Equal(t, "*", again[0].Mint)
}

func TestSignalStore_AppendDuplicate(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	sig := &domain.Signal{ID: "sig-1", Kind: domain.SignalKindRuleTrigger, Mint: "mint-A"}
	require.NoError(t, store.Append(ctx, sig))

	err := store.Append(ctx, sig)
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey))
	assert.Equal(t, 1, store.Len())
}

func TestSignalStore_GetByID(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, &domain.Signal{ID: "sig-1", Mint: "mint-A", CreatedAt: 100}))

	got, err := store.GetByID(ctx, "sig-1")
	require.NoError(t, err)
	assert.Equal(t, "mint-A", got.Mint)

	_, err = store.GetByID(ctx, "missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestSignalStore_ListByMintOrdered(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, &domain.Signal{ID: "sig-2", Mint: "mint-A", CreatedAt: 200}))
	require.NoError(t, store.Append(ctx, &domain.Signal{ID: "sig-1", Mint: "mint-A", CreatedAt: 100}))
	require.NoError(t, store.Append(ctx, &domain.Signal{ID: "sig-3", Mint: "mint-B", CreatedAt: 50}))

	sigs, err := store.ListByMint(ctx, "mint-A")
	require.NoError(t, err)
	require.Len(t, sigs, 2)
	assert.Equal(t, "sig-1", sigs[0].ID)
	assert.Equal(t, "sig-2", sigs[1].ID)
}

func TestStatStore_UpsertLatestWins(t *testing.T) {
	store := NewStatStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &domain.TokenStatSnapshot{Mint: "mint-A", Px: 1, UpdatedAt: 100}))
	require.NoError(t, store.Upsert(ctx, &domain.TokenStatSnapshot{Mint: "mint-A", Px: 2, UpdatedAt: 200}))

	got, err := store.GetByMint(ctx, "mint-A")
	require.NoError(t, err)
	assert.Equal(t, float64(2), got.Px)
	assert.Equal(t, int64(200), got.UpdatedAt)

	_, err = store.GetByMint(ctx, "missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestTradeStore_InsertAndList(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &domain.Trade{Mint: "mint-A", Signature: "s1", TimestampMs: 200}))
	require.NoError(t, store.Insert(ctx, &domain.Trade{Mint: "mint-A", Signature: "s2", TimestampMs: 100}))
	require.NoError(t, store.Insert(ctx, &domain.Trade{Mint: "mint-B", Signature: "s3", TimestampMs: 50}))

	// Insertion order is preserved per mint.
	trades, err := store.ListByMint(ctx, "mint-A")
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "s1", trades[0].Signature)
	assert.Equal(t, "s2", trades[1].Signature)
	assert.Equal(t, 3, store.Len())
}

func TestStatHistoryStore_InsertBulk(t *testing.T) {
	store := NewStatHistoryStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.TokenStatSnapshot{
		{Mint: "mint-A", UpdatedAt: 100},
		{Mint: "mint-A", UpdatedAt: 200},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())

	require.NoError(t, store.InsertBulk(ctx, nil))
	assert.Equal(t, 2, store.Len())
}
