package domain

// LamportsPerSol is the number of lamports in one SOL.
const LamportsPerSol = 1e9

// Trade is a normalized token trade event from the upstream feed.
// Trades are append-only and arrive in non-decreasing TimestampMs order
// per mint from a single ingestor.
type Trade struct {
	Mint              string   // token mint address
	Signature         string   // transaction signature
	Slot              int64    // Solana slot number
	TxIndex           int      // index of trade within transaction
	IsBuy             bool     // true for buy, false for sell
	SolAmountLamports int64    // trade size in lamports (1 SOL = 1e9 lamports)
	TokenAmount       float64  // token amount, > 0
	PriceSolPerToken  float64  // derived: sol / token, 0 when TokenAmount <= 0
	UserAddress       string   // trader wallet address, may be empty
	TimestampMs       int64    // Unix timestamp in milliseconds
	VSol              *float64 // virtual sol reserves in SOL (nullable)
	VTok              *float64 // virtual token reserves, raw units (nullable)
}

// SolAmount returns the trade size in SOL.
func (t *Trade) SolAmount() float64 {
	return float64(t.SolAmountLamports) / LamportsPerSol
}
