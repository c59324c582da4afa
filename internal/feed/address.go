package feed

import (
	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// isValidMint reports whether addr is a well-formed Solana address:
// base58 text decoding to exactly 32 bytes.
func isValidMint(addr string) bool {
	raw, err := base58.Decode(addr)
	return err == nil && len(raw) == 32
}

// isWalletAddress reports whether addr decodes to a point on the ed25519
// curve. Wallet keys are on-curve by construction; program-derived
// addresses are off-curve and never sign trades themselves.
func isWalletAddress(addr string) bool {
	raw, err := base58.Decode(addr)
	if err != nil || len(raw) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(raw)
	return err == nil
}
