package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-signal-engine/internal/aggregate"
	"solana-signal-engine/internal/domain"
	"solana-signal-engine/internal/storage/memory"
)

func validTradeMessage() []byte {
	return []byte(`{
		"mint": "` + validMint + `",
		"signature": "sig-1",
		"is_buy": true,
		"sol_amount": 1000000000,
		"token_amount": 2000000,
		"timestamp": 1700000000
	}`)
}

func TestIngestor_HandleMessageDrivesAggregator(t *testing.T) {
	agg := aggregate.New(aggregate.Options{})
	ing := NewIngestor(IngestorOptions{
		Endpoint:   "ws://unused",
		Aggregator: agg,
	})

	var trades []*domain.Trade
	ing.OnTrade(func(tr *domain.Trade) { trades = append(trades, tr) })

	ing.handleMessage(validTradeMessage())

	require.Len(t, trades, 1)
	assert.Equal(t, validMint, trades[0].Mint)

	snap, ok := agg.GetSnapshot(validMint)
	require.True(t, ok)
	assert.InDelta(t, 1.0, snap.VolumeSol30s, 1e-9)
}

func TestIngestor_MalformedMessageChangesNothing(t *testing.T) {
	agg := aggregate.New(aggregate.Options{})
	ing := NewIngestor(IngestorOptions{
		Endpoint:   "ws://unused",
		Aggregator: agg,
	})

	var published int
	ing.OnTrade(func(*domain.Trade) { published++ })

	ing.handleMessage([]byte(`{"mint": "` + validMint + `", "sol_amount": "junk", "token_amount": 1, "timestamp": 1}`))
	ing.handleMessage([]byte(`not even json`))

	assert.Zero(t, published)
	assert.Zero(t, agg.TrackedMints())
	_, ok := agg.GetSnapshot(validMint)
	assert.False(t, ok)
}

func TestIngestor_ControlMessageSkippedQuietly(t *testing.T) {
	agg := aggregate.New(aggregate.Options{})
	ing := NewIngestor(IngestorOptions{
		Endpoint:   "ws://unused",
		Aggregator: agg,
	})

	ing.handleMessage([]byte(`{"message": "Successfully subscribed to token trade events"}`))

	assert.Zero(t, agg.TrackedMints())
}

func TestIngestor_RecordsTradeHistory(t *testing.T) {
	store := memory.NewTradeStore()
	ing := NewIngestor(IngestorOptions{
		Endpoint:   "ws://unused",
		Aggregator: aggregate.New(aggregate.Options{}),
		TradeStore: store,
	})

	ing.handleMessage(validTradeMessage())

	// History inserts are fire-and-forget.
	require.Eventually(t, func() bool {
		return store.Len() == 1
	}, 2*time.Second, 10*time.Millisecond)

	trades, err := store.ListByMint(context.Background(), validMint)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "sig-1", trades[0].Signature)
}

func TestIngestor_EndToEndOverWebSocket(t *testing.T) {
	fs := newFeedServer(t)
	defer fs.close()

	agg := aggregate.New(aggregate.Options{})
	ing := NewIngestor(IngestorOptions{
		Endpoint:   fs.url(),
		Aggregator: agg,
	})
	defer ing.Stop()

	seen := make(chan *domain.Trade, 1)
	ing.OnTrade(func(tr *domain.Trade) { seen <- tr })

	require.NoError(t, ing.Start())
	waitFor(t, fs.connected, "connection")

	fs.push(string(validTradeMessage()))

	select {
	case tr := <-seen:
		assert.Equal(t, validMint, tr.Mint)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for trade")
	}
}
