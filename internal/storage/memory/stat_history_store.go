package memory

import (
	"context"
	"sync"

	"solana-signal-engine/internal/domain"
	"solana-signal-engine/internal/storage"
)

// StatHistoryStore is an in-memory implementation of storage.StatHistoryStore.
type StatHistoryStore struct {
	mu    sync.RWMutex
	snaps []*domain.TokenStatSnapshot
}

// NewStatHistoryStore creates a new in-memory stat history store.
func NewStatHistoryStore() *StatHistoryStore {
	return &StatHistoryStore{}
}

// Compile-time interface check.
var _ storage.StatHistoryStore = (*StatHistoryStore)(nil)

// InsertBulk appends multiple snapshot points.
func (s *StatHistoryStore) InsertBulk(_ context.Context, snaps []*domain.TokenStatSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snap := range snaps {
		if snap == nil || snap.Mint == "" {
			return storage.ErrInvalidInput
		}
		cp := *snap
		s.snaps = append(s.snaps, &cp)
	}
	return nil
}

// Len returns the number of stored history points.
func (s *StatHistoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snaps)
}
