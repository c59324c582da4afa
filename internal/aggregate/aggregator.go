// Package aggregate maintains per-mint sliding windows of trades and
// computes derived stat snapshots on every ingested trade.
package aggregate

import (
	"context"
	"log"
	"sync"
	"time"

	"solana-signal-engine/internal/domain"
	"solana-signal-engine/internal/observability"
	"solana-signal-engine/internal/pubsub"
	"solana-signal-engine/internal/storage"
)

const statUpsertTimeout = 5 * time.Second

// Aggregator owns all per-mint window state. Window mutation and snapshot
// caching happen under one lock so an ingest is atomic relative to
// concurrent snapshot reads.
type Aggregator struct {
	mu        sync.RWMutex
	states    map[string]*tokenState
	snapshots map[string]*domain.TokenStatSnapshot

	snapshotBus *pubsub.Bus[*domain.TokenStatSnapshot]
	statStore   storage.StatStore
	logger      *log.Logger
}

// Options configures an Aggregator.
type Options struct {
	// StatStore receives a fire-and-forget upsert of every computed
	// snapshot. Nil disables persistence.
	StatStore storage.StatStore
	Logger    *log.Logger
}

// New creates a new Aggregator.
func New(opts Options) *Aggregator {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Aggregator{
		states:      make(map[string]*tokenState),
		snapshots:   make(map[string]*domain.TokenStatSnapshot),
		snapshotBus: pubsub.New[*domain.TokenStatSnapshot](),
		statStore:   opts.StatStore,
		logger:      logger,
	}
}

// OnSnapshot registers a subscriber for every computed snapshot.
// Handlers run synchronously on the ingestion path and must not block.
func (a *Aggregator) OnSnapshot(handler func(*domain.TokenStatSnapshot)) {
	a.snapshotBus.Subscribe(handler)
}

// IngestTrade appends the trade to the mint's windows, evicts stale
// entries, computes and caches a snapshot, publishes it, and dispatches a
// non-blocking persistence upsert. Snapshots are immutable once published.
func (a *Aggregator) IngestTrade(trade *domain.Trade) {
	if trade == nil || trade.Mint == "" {
		return
	}

	a.mu.Lock()
	state, ok := a.states[trade.Mint]
	if !ok {
		state = newTokenState()
		a.states[trade.Mint] = state
	}
	state.ingest(trade)
	snap := computeSnapshot(state, trade)
	a.snapshots[trade.Mint] = snap
	tracked := len(a.states)
	a.mu.Unlock()

	observability.RecordSnapshotComputed()
	observability.UpdateTrackedMints(tracked)
	a.snapshotBus.Publish(snap)

	if a.statStore != nil {
		go a.upsertStat(snap)
	}
}

// upsertStat persists the snapshot off the ingestion critical path.
// Failures are logged and never affect in-memory correctness.
func (a *Aggregator) upsertStat(snap *domain.TokenStatSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), statUpsertTimeout)
	defer cancel()

	if err := a.statStore.Upsert(ctx, snap); err != nil {
		observability.RecordSinkError("stats", "upsert")
		a.logger.Printf("[aggregate] stat upsert failed for %s: %v", snap.Mint, err)
	}
}

// GetSnapshot returns the cached snapshot for a mint. It never recomputes.
func (a *Aggregator) GetSnapshot(mint string) (*domain.TokenStatSnapshot, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	snap, ok := a.snapshots[mint]
	return snap, ok
}

// TrackedMints returns the number of mints with window state.
func (a *Aggregator) TrackedMints() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.states)
}
