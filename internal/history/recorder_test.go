package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-signal-engine/internal/domain"
	"solana-signal-engine/internal/storage/memory"
)

// failingHistoryStore rejects every batch.
type failingHistoryStore struct{}

func (failingHistoryStore) InsertBulk(context.Context, []*domain.TokenStatSnapshot) error {
	return errors.New("sink unavailable")
}

func snapFor(mint string, tsMs int64) *domain.TokenStatSnapshot {
	return &domain.TokenStatSnapshot{Mint: mint, UpdatedAt: tsMs}
}

func TestRecorder_FlushWritesBufferedSnapshots(t *testing.T) {
	store := memory.NewStatHistoryStore()
	rec := NewRecorder(Options{Store: store})

	rec.Record(snapFor("mint-A", 1_000))
	rec.Record(snapFor("mint-A", 2_000))
	rec.Record(snapFor("mint-B", 3_000))
	assert.Equal(t, 3, rec.Pending())

	rec.Flush()

	assert.Zero(t, rec.Pending())
	assert.Equal(t, 3, store.Len())
}

func TestRecorder_NilSnapshotIgnored(t *testing.T) {
	rec := NewRecorder(Options{Store: memory.NewStatHistoryStore()})
	rec.Record(nil)
	assert.Zero(t, rec.Pending())
}

func TestRecorder_FullBufferTriggersFlush(t *testing.T) {
	store := memory.NewStatHistoryStore()
	rec := NewRecorder(Options{Store: store, MaxBuffer: 2})

	rec.Record(snapFor("mint-A", 1_000))
	rec.Record(snapFor("mint-A", 2_000))

	require.Eventually(t, func() bool {
		return store.Len() == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, rec.Pending())
}

func TestRecorder_PeriodicFlush(t *testing.T) {
	store := memory.NewStatHistoryStore()
	rec := NewRecorder(Options{Store: store, FlushInterval: 20 * time.Millisecond})

	rec.Start()
	defer rec.Stop()

	rec.Record(snapFor("mint-A", 1_000))

	require.Eventually(t, func() bool {
		return store.Len() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRecorder_StopFlushesRemainder(t *testing.T) {
	store := memory.NewStatHistoryStore()
	rec := NewRecorder(Options{Store: store, FlushInterval: time.Hour})

	rec.Start()
	rec.Record(snapFor("mint-A", 1_000))
	rec.Stop()

	assert.Equal(t, 1, store.Len())

	// Stop again is safe.
	rec.Stop()
}

func TestRecorder_FailedBatchIsDropped(t *testing.T) {
	rec := NewRecorder(Options{Store: failingHistoryStore{}})

	rec.Record(snapFor("mint-A", 1_000))
	rec.Flush()

	// The batch is gone either way; the recorder never retries.
	assert.Zero(t, rec.Pending())
}
