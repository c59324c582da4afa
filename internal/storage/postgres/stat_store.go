package postgres

import (
	"context"
	"fmt"

	"solana-signal-engine/internal/domain"
	"solana-signal-engine/internal/storage"
)

// StatStore implements storage.StatStore using PostgreSQL,
// latest-write-wins per mint.
type StatStore struct {
	pool *Pool
}

// NewStatStore creates a new StatStore.
func NewStatStore(pool *Pool) *StatStore {
	return &StatStore{pool: pool}
}

// Compile-time interface check.
var _ storage.StatStore = (*StatStore)(nil)

// Upsert stores the snapshot for its mint, replacing any previous one.
func (s *StatStore) Upsert(ctx context.Context, snap *domain.TokenStatSnapshot) error {
	if snap == nil || snap.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO token_stats (
			mint, px, volume_sol_30s, volume_sol_1m, volume_sol_5m,
			buys_per_sec, sells_per_sec, buy_sell_imbalance,
			unique_traders_30s, unique_traders_1m,
			m1_vs_5m_velocity, price_change_30s_pct,
			est_fill_bps_005, est_fill_bps_010, est_fill_bps_015,
			v_sol, v_tok, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (mint) DO UPDATE SET
			px = EXCLUDED.px,
			volume_sol_30s = EXCLUDED.volume_sol_30s,
			volume_sol_1m = EXCLUDED.volume_sol_1m,
			volume_sol_5m = EXCLUDED.volume_sol_5m,
			buys_per_sec = EXCLUDED.buys_per_sec,
			sells_per_sec = EXCLUDED.sells_per_sec,
			buy_sell_imbalance = EXCLUDED.buy_sell_imbalance,
			unique_traders_30s = EXCLUDED.unique_traders_30s,
			unique_traders_1m = EXCLUDED.unique_traders_1m,
			m1_vs_5m_velocity = EXCLUDED.m1_vs_5m_velocity,
			price_change_30s_pct = EXCLUDED.price_change_30s_pct,
			est_fill_bps_005 = EXCLUDED.est_fill_bps_005,
			est_fill_bps_010 = EXCLUDED.est_fill_bps_010,
			est_fill_bps_015 = EXCLUDED.est_fill_bps_015,
			v_sol = EXCLUDED.v_sol,
			v_tok = EXCLUDED.v_tok,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		snap.Mint, snap.Px, snap.VolumeSol30s, snap.VolumeSol1m, snap.VolumeSol5m,
		snap.BuysPerSec, snap.SellsPerSec, snap.BuySellImbalance,
		snap.UniqueTraders30s, snap.UniqueTraders1m,
		snap.M1vs5mVelocity, snap.PriceChange30sPct,
		snap.EstFillBps005, snap.EstFillBps010, snap.EstFillBps015,
		snap.VSol, snap.VTok, snap.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert token stats: %w", err)
	}
	return nil
}

// GetByMint retrieves the stored snapshot. Returns ErrNotFound if the
// mint has never been upserted.
func (s *StatStore) GetByMint(ctx context.Context, mint string) (*domain.TokenStatSnapshot, error) {
	query := `
		SELECT mint, px, volume_sol_30s, volume_sol_1m, volume_sol_5m,
			buys_per_sec, sells_per_sec, buy_sell_imbalance,
			unique_traders_30s, unique_traders_1m,
			m1_vs_5m_velocity, price_change_30s_pct,
			est_fill_bps_005, est_fill_bps_010, est_fill_bps_015,
			v_sol, v_tok, updated_at
		FROM token_stats
		WHERE mint = $1
	`

	snap := &domain.TokenStatSnapshot{}
	err := s.pool.QueryRow(ctx, query, mint).Scan(
		&snap.Mint, &snap.Px, &snap.VolumeSol30s, &snap.VolumeSol1m, &snap.VolumeSol5m,
		&snap.BuysPerSec, &snap.SellsPerSec, &snap.BuySellImbalance,
		&snap.UniqueTraders30s, &snap.UniqueTraders1m,
		&snap.M1vs5mVelocity, &snap.PriceChange30sPct,
		&snap.EstFillBps005, &snap.EstFillBps010, &snap.EstFillBps015,
		&snap.VSol, &snap.VTok, &snap.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token stats: %w", err)
	}
	return snap, nil
}
