package memory

import (
	"context"
	"sort"
	"sync"

	"solana-signal-engine/internal/domain"
	"solana-signal-engine/internal/storage"
)

// RuleStore is an in-memory implementation of storage.RuleStore.
// It doubles as a writable fixture store for tests and -use-memory runs.
type RuleStore struct {
	mu      sync.RWMutex
	rules   map[string]*domain.Rule
	enabled map[string]bool
}

// NewRuleStore creates a new in-memory rule store.
func NewRuleStore() *RuleStore {
	return &RuleStore{
		rules:   make(map[string]*domain.Rule),
		enabled: make(map[string]bool),
	}
}

// Compile-time interface check.
var _ storage.RuleStore = (*RuleStore)(nil)

// Put adds or replaces a rule, enabled by default.
func (s *RuleStore) Put(rule *domain.Rule) error {
	if rule == nil || rule.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rule
	s.rules[rule.ID] = &cp
	s.enabled[rule.ID] = true
	return nil
}

// SetEnabled toggles a rule. Returns ErrNotFound for unknown IDs.
func (s *RuleStore) SetEnabled(ruleID string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[ruleID]; !ok {
		return storage.ErrNotFound
	}
	s.enabled[ruleID] = enabled
	return nil
}

// Delete removes a rule if present.
func (s *RuleStore) Delete(ruleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rules, ruleID)
	delete(s.enabled, ruleID)
}

// ListEnabled retrieves all enabled rules, ordered by ID for determinism.
func (s *RuleStore) ListEnabled(_ context.Context) ([]*domain.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Rule
	for id, rule := range s.rules {
		if !s.enabled[id] {
			continue
		}
		cp := *rule
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
