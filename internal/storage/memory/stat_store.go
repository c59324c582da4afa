package memory

import (
	"context"
	"sync"

	"solana-signal-engine/internal/domain"
	"solana-signal-engine/internal/storage"
)

// StatStore is an in-memory implementation of storage.StatStore.
// Latest write wins per mint.
type StatStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TokenStatSnapshot
}

// NewStatStore creates a new in-memory stat store.
func NewStatStore() *StatStore {
	return &StatStore{
		data: make(map[string]*domain.TokenStatSnapshot),
	}
}

// Compile-time interface check.
var _ storage.StatStore = (*StatStore)(nil)

// Upsert stores the snapshot for its mint, replacing any previous one.
func (s *StatStore) Upsert(_ context.Context, snap *domain.TokenStatSnapshot) error {
	if snap == nil || snap.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *snap
	s.data[snap.Mint] = &cp
	return nil
}

// GetByMint retrieves the stored snapshot. Returns ErrNotFound if absent.
func (s *StatStore) GetByMint(_ context.Context, mint string) (*domain.TokenStatSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.data[mint]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *snap
	return &cp, nil
}
