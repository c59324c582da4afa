package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeSignalID computes a deterministic signal ID using SHA256.
// Formula: SHA256(rule_id|mint|triggered_at)
// Returns hex-encoded hash (64 characters). The same rule firing for the
// same mint at the same millisecond maps to the same ID, which keeps the
// signal store append idempotent.
func ComputeSignalID(ruleID, mint string, triggeredAtMs int64) string {
	data := fmt.Sprintf("%s|%s|%d", ruleID, mint, triggeredAtMs)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
