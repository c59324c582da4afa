package postgres

import (
	"context"
	"fmt"

	"solana-signal-engine/internal/domain"
	"solana-signal-engine/internal/storage"
)

// RuleStore implements storage.RuleStore using PostgreSQL. The engine
// only reads rules; the dashboard owns writes.
type RuleStore struct {
	pool *Pool
}

// NewRuleStore creates a new RuleStore.
func NewRuleStore(pool *Pool) *RuleStore {
	return &RuleStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RuleStore = (*RuleStore)(nil)

// ListEnabled retrieves all enabled trigger rules, ordered by ID.
func (s *RuleStore) ListEnabled(ctx context.Context) ([]*domain.Rule, error) {
	query := `
		SELECT id, COALESCE(mint, ''), expression, COALESCE(cooldown_sec, 0)
		FROM trigger_rules
		WHERE enabled
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query enabled rules: %w", err)
	}
	defer rows.Close()

	var rules []*domain.Rule
	for rows.Next() {
		r := &domain.Rule{}
		if err := rows.Scan(&r.ID, &r.Mint, &r.Expression, &r.CooldownSec); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}

	return rules, nil
}
