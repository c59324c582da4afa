package domain

import "math"

// Window durations tracked per mint (in milliseconds).
const (
	Window30sMs = 30_000
	Window1mMs  = 60_000
	Window5mMs  = 300_000
)

// TokenStatSnapshot is an immutable bundle of derived statistics for one
// mint, computed at the moment of an incoming trade. One cached snapshot
// per mint is kept; snapshots are not versioned or queued.
type TokenStatSnapshot struct {
	Mint string `json:"mint"`

	Px           float64 `json:"px"` // latest trade price (SOL per token)
	VolumeSol30s float64 `json:"volumeSol30s"`
	VolumeSol1m  float64 `json:"volumeSol1m"`
	VolumeSol5m  float64 `json:"volumeSol5m"`

	BuysPerSec       float64 `json:"buysPerSec"`       // buy count in 30s window / 30
	SellsPerSec      float64 `json:"sellsPerSec"`      // sell count in 30s window / 30
	BuySellImbalance float64 `json:"buySellImbalance"` // (B-S)/(B+S) over 1m volumes, 0 when B+S == 0

	UniqueTraders30s int `json:"uniqueTraders30s"`
	UniqueTraders1m  int `json:"uniqueTraders1m"`

	M1vs5mVelocity    float64 `json:"m1vs5mVelocity"`    // 1m buy rate vs 5m buy rate
	PriceChange30sPct float64 `json:"priceChange30sPct"` // percent change vs oldest trade in 30s window

	// Estimated fill impact in bps for 0.05 / 0.10 / 0.15 SOL orders
	// against the virtual sol reserves. Nil when reserves are unknown.
	EstFillBps005 *float64 `json:"estFillBps005"`
	EstFillBps010 *float64 `json:"estFillBps010"`
	EstFillBps015 *float64 `json:"estFillBps015"`

	// Virtual reserves carried through from the triggering trade.
	VSol *float64 `json:"vSol"`
	VTok *float64 `json:"vTok"`

	UpdatedAt int64 `json:"updatedAt"` // Unix timestamp in milliseconds
}

// Metric resolves a metric by its rule-expression name. The second return
// is false for unknown names, nil nullable fields, and NaN values, so a
// comparator over a missing metric evaluates to false instead of failing.
func (s *TokenStatSnapshot) Metric(name string) (float64, bool) {
	var v float64
	switch name {
	case "px":
		v = s.Px
	case "volumeSol30s":
		v = s.VolumeSol30s
	case "volumeSol1m":
		v = s.VolumeSol1m
	case "volumeSol5m":
		v = s.VolumeSol5m
	case "buysPerSec":
		v = s.BuysPerSec
	case "sellsPerSec":
		v = s.SellsPerSec
	case "buySellImbalance":
		v = s.BuySellImbalance
	case "uniqueTraders30s":
		v = float64(s.UniqueTraders30s)
	case "uniqueTraders1m":
		v = float64(s.UniqueTraders1m)
	case "m1vs5mVelocity":
		v = s.M1vs5mVelocity
	case "priceChange30sPct":
		v = s.PriceChange30sPct
	case "estFillBps005":
		return derefMetric(s.EstFillBps005)
	case "estFillBps010":
		return derefMetric(s.EstFillBps010)
	case "estFillBps015":
		return derefMetric(s.EstFillBps015)
	case "vSol":
		return derefMetric(s.VSol)
	case "vTok":
		return derefMetric(s.VTok)
	default:
		return 0, false
	}
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func derefMetric(p *float64) (float64, bool) {
	if p == nil || math.IsNaN(*p) {
		return 0, false
	}
	return *p, true
}
