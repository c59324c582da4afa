package memory

import (
	"context"
	"sync"

	"solana-signal-engine/internal/domain"
	"solana-signal-engine/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu     sync.RWMutex
	trades []*domain.Trade
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// Insert appends a trade to the history.
func (s *TradeStore) Insert(_ context.Context, trade *domain.Trade) error {
	if trade == nil || trade.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *trade
	s.trades = append(s.trades, &cp)
	return nil
}

// ListByMint retrieves all trades for a mint in insertion order.
func (s *TradeStore) ListByMint(_ context.Context, mint string) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Trade
	for _, t := range s.trades {
		if t.Mint == mint {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Len returns the number of stored trades.
func (s *TradeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.trades)
}
