package clickhouse

import (
	"context"
	"fmt"

	"solana-signal-engine/internal/domain"
	"solana-signal-engine/internal/storage"
)

// TradeStore implements storage.TradeStore using ClickHouse. Trades are
// append-only; MergeTree cannot enforce uniqueness so replays may land
// the same signature twice, which downstream queries dedupe on read.
type TradeStore struct {
	conn *Conn
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(conn *Conn) *TradeStore {
	return &TradeStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// Insert appends a trade to the trade history.
func (s *TradeStore) Insert(ctx context.Context, trade *domain.Trade) error {
	if trade == nil || trade.Mint == "" {
		return storage.ErrInvalidInput
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO trades (
			mint, signature, slot, tx_index, is_buy,
			sol_amount_lamports, token_amount, price_sol_per_token,
			user_address, timestamp_ms, v_sol, v_tok
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		trade.Mint, trade.Signature, uint64(trade.Slot), uint32(trade.TxIndex), trade.IsBuy,
		trade.SolAmountLamports, trade.TokenAmount, trade.PriceSolPerToken,
		trade.UserAddress, uint64(trade.TimestampMs), trade.VSol, trade.VTok,
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// ListByMint retrieves trades for a mint, ordered by timestamp ASC.
func (s *TradeStore) ListByMint(ctx context.Context, mint string) ([]*domain.Trade, error) {
	query := `
		SELECT mint, signature, slot, tx_index, is_buy,
			sol_amount_lamports, token_amount, price_sol_per_token,
			user_address, timestamp_ms, v_sol, v_tok
		FROM trades
		WHERE mint = ?
		ORDER BY timestamp_ms ASC, tx_index ASC
	`

	rows, err := s.conn.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query trades by mint: %w", err)
	}
	defer rows.Close()

	var trades []*domain.Trade
	for rows.Next() {
		t := &domain.Trade{}
		var slot, timestampMs uint64
		var txIndex uint32
		if err := rows.Scan(
			&t.Mint, &t.Signature, &slot, &txIndex, &t.IsBuy,
			&t.SolAmountLamports, &t.TokenAmount, &t.PriceSolPerToken,
			&t.UserAddress, &timestampMs, &t.VSol, &t.VTok,
		); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.Slot = int64(slot)
		t.TxIndex = int(txIndex)
		t.TimestampMs = int64(timestampMs)
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}

	return trades, nil
}
