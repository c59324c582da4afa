package clickhouse

import (
	"context"
	"fmt"

	"solana-signal-engine/internal/domain"
	"solana-signal-engine/internal/storage"
)

// StatHistoryStore implements storage.StatHistoryStore using ClickHouse.
// Every computed snapshot becomes one history row, so a mint's stat
// timeline can be replayed after the fact.
type StatHistoryStore struct {
	conn *Conn
}

// NewStatHistoryStore creates a new StatHistoryStore.
func NewStatHistoryStore(conn *Conn) *StatHistoryStore {
	return &StatHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.StatHistoryStore = (*StatHistoryStore)(nil)

// InsertBulk appends multiple snapshot points in one batch.
func (s *StatHistoryStore) InsertBulk(ctx context.Context, snaps []*domain.TokenStatSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO stat_history (
			mint, px, volume_sol_30s, volume_sol_1m, volume_sol_5m,
			buys_per_sec, sells_per_sec, buy_sell_imbalance,
			unique_traders_30s, unique_traders_1m,
			m1_vs_5m_velocity, price_change_30s_pct,
			est_fill_bps_005, est_fill_bps_010, est_fill_bps_015,
			v_sol, v_tok, updated_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snaps {
		if snap == nil || snap.Mint == "" {
			return storage.ErrInvalidInput
		}
		err = batch.Append(
			snap.Mint, snap.Px, snap.VolumeSol30s, snap.VolumeSol1m, snap.VolumeSol5m,
			snap.BuysPerSec, snap.SellsPerSec, snap.BuySellImbalance,
			uint32(snap.UniqueTraders30s), uint32(snap.UniqueTraders1m),
			snap.M1vs5mVelocity, snap.PriceChange30sPct,
			snap.EstFillBps005, snap.EstFillBps010, snap.EstFillBps015,
			snap.VSol, snap.VTok, uint64(snap.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByMint retrieves history points for a mint within [start, end]
// (inclusive, in epoch milliseconds), ordered by time ASC.
func (s *StatHistoryStore) GetByMint(ctx context.Context, mint string, start, end int64) ([]*domain.TokenStatSnapshot, error) {
	query := `
		SELECT mint, px, volume_sol_30s, volume_sol_1m, volume_sol_5m,
			buys_per_sec, sells_per_sec, buy_sell_imbalance,
			unique_traders_30s, unique_traders_1m,
			m1_vs_5m_velocity, price_change_30s_pct,
			est_fill_bps_005, est_fill_bps_010, est_fill_bps_015,
			v_sol, v_tok, updated_at
		FROM stat_history
		WHERE mint = ? AND updated_at >= ? AND updated_at <= ?
		ORDER BY updated_at ASC
	`

	rows, err := s.conn.Query(ctx, query, mint, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query stat history: %w", err)
	}
	defer rows.Close()

	var snaps []*domain.TokenStatSnapshot
	for rows.Next() {
		snap := &domain.TokenStatSnapshot{}
		var traders30s, traders1m uint32
		var updatedAt uint64
		if err := rows.Scan(
			&snap.Mint, &snap.Px, &snap.VolumeSol30s, &snap.VolumeSol1m, &snap.VolumeSol5m,
			&snap.BuysPerSec, &snap.SellsPerSec, &snap.BuySellImbalance,
			&traders30s, &traders1m,
			&snap.M1vs5mVelocity, &snap.PriceChange30sPct,
			&snap.EstFillBps005, &snap.EstFillBps010, &snap.EstFillBps015,
			&snap.VSol, &snap.VTok, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan history point: %w", err)
		}
		snap.UniqueTraders30s = int(traders30s)
		snap.UniqueTraders1m = int(traders1m)
		snap.UpdatedAt = int64(updatedAt)
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history points: %w", err)
	}

	return snaps, nil
}
