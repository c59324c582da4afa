package storage

import (
	"context"

	"solana-signal-engine/internal/domain"
)

// RuleStore provides the read path of the external durable rule store.
type RuleStore interface {
	// ListEnabled retrieves all enabled trigger rules.
	ListEnabled(ctx context.Context) ([]*domain.Rule, error)
}

// SignalStore persists fired trigger signals.
type SignalStore interface {
	// Append adds a signal record. Returns ErrDuplicateKey if the ID exists.
	Append(ctx context.Context, sig *domain.Signal) error
}

// StatStore persists the latest stat snapshot per mint, latest-write-wins.
type StatStore interface {
	// Upsert stores the snapshot for its mint, replacing any previous one.
	Upsert(ctx context.Context, snap *domain.TokenStatSnapshot) error

	// GetByMint retrieves the stored snapshot. Returns ErrNotFound if the
	// mint has never been upserted.
	GetByMint(ctx context.Context, mint string) (*domain.TokenStatSnapshot, error)
}

// TradeStore records normalized trades as they are ingested.
type TradeStore interface {
	// Insert appends a trade to the trade history.
	Insert(ctx context.Context, trade *domain.Trade) error
}

// StatHistoryStore appends snapshot history points in batches.
type StatHistoryStore interface {
	// InsertBulk appends multiple snapshot points.
	InsertBulk(ctx context.Context, snaps []*domain.TokenStatSnapshot) error
}
