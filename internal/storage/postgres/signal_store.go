package postgres

import (
	"context"
	"fmt"

	"solana-signal-engine/internal/domain"
	"solana-signal-engine/internal/storage"
)

// SignalStore implements storage.SignalStore using PostgreSQL.
type SignalStore struct {
	pool *Pool
}

// NewSignalStore creates a new SignalStore.
func NewSignalStore(pool *Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SignalStore = (*SignalStore)(nil)

// Append adds a signal record. Returns ErrDuplicateKey if the ID exists.
func (s *SignalStore) Append(ctx context.Context, sig *domain.Signal) error {
	if sig == nil || sig.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO signals (id, kind, mint, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query,
		sig.ID,
		sig.Kind,
		sig.Mint,
		sig.Payload,
		sig.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

// GetByID retrieves a signal by ID. Returns ErrNotFound if not exists.
func (s *SignalStore) GetByID(ctx context.Context, id string) (*domain.Signal, error) {
	query := `
		SELECT id, kind, mint, payload, created_at
		FROM signals
		WHERE id = $1
	`

	sig := &domain.Signal{}
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&sig.ID, &sig.Kind, &sig.Mint, &sig.Payload, &sig.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get signal: %w", err)
	}
	return sig, nil
}
