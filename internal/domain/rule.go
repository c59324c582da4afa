package domain

import "encoding/json"

// DefaultCooldownSec is applied when a rule carries no cooldown.
const DefaultCooldownSec = 60

// RuleMintAny matches every mint.
const RuleMintAny = "*"

// Rule is a trigger rule loaded from the durable rule store. The active
// in-memory rule set is replaced wholesale on every reload cycle.
type Rule struct {
	ID          string
	Mint        string          // "" or "*" = any mint, else exact match
	Expression  json.RawMessage // JSON expression tree, parsed at load time
	CooldownSec int             // minimum seconds between triggers
}

// MatchesMint reports whether the rule's scope covers the given mint.
func (r *Rule) MatchesMint(mint string) bool {
	return r.Mint == "" || r.Mint == RuleMintAny || r.Mint == mint
}

// Cooldown returns the effective cooldown in seconds.
func (r *Rule) Cooldown() int {
	if r.CooldownSec <= 0 {
		return DefaultCooldownSec
	}
	return r.CooldownSec
}

// RuleTriggerEvent is published when a rule fires for a snapshot.
type RuleTriggerEvent struct {
	RuleID      string
	Mint        string
	TriggeredAt int64 // Unix timestamp in milliseconds
	Snapshot    *TokenStatSnapshot
}

// Signal kinds persisted to the signal store.
const (
	SignalKindRuleTrigger = "RULE_TRIGGER"
)

// Signal is a durable record of a fired trigger. ID is unique per
// (rule, mint, trigger timestamp).
type Signal struct {
	ID        string
	Kind      string
	Mint      string
	Payload   json.RawMessage // serialized trigger context
	CreatedAt int64           // Unix timestamp in milliseconds
}
