package aggregate

import (
	"math"

	"solana-signal-engine/internal/domain"
)

// Hypothetical order sizes (in SOL) for fill-impact estimation.
const (
	fillSize005 = 0.05
	fillSize010 = 0.10
	fillSize015 = 0.15
)

// maxFillImpactBps caps the impact estimate at 50%.
const maxFillImpactBps = 5000.0

// computeSnapshot derives all metrics for the state as of the incoming
// trade. The windows must already contain the trade and be evicted
// relative to its timestamp.
func computeSnapshot(state *tokenState, trade *domain.Trade) *domain.TokenStatSnapshot {
	snap := &domain.TokenStatSnapshot{
		Mint:      trade.Mint,
		Px:        trade.PriceSolPerToken,
		VSol:      trade.VSol,
		VTok:      trade.VTok,
		UpdatedAt: trade.TimestampMs,
	}

	var buys30, sells30 int
	for _, t := range state.w30.trades {
		snap.VolumeSol30s += t.SolAmount()
		if t.IsBuy {
			buys30++
		} else {
			sells30++
		}
	}
	snap.BuysPerSec = float64(buys30) / 30
	snap.SellsPerSec = float64(sells30) / 30

	var buyVol1m, sellVol1m float64
	var buyCount1m int
	for _, t := range state.w1m.trades {
		vol := t.SolAmount()
		snap.VolumeSol1m += vol
		if t.IsBuy {
			buyVol1m += vol
			buyCount1m++
		} else {
			sellVol1m += vol
		}
	}
	snap.BuySellImbalance = imbalance(buyVol1m, sellVol1m)

	var buyCount5m int
	for _, t := range state.w5m.trades {
		snap.VolumeSol5m += t.SolAmount()
		if t.IsBuy {
			buyCount5m++
		}
	}
	snap.M1vs5mVelocity = buyVelocityRatio(buyCount1m, buyCount5m)

	snap.UniqueTraders30s = countUniqueTraders(state.w30.trades)
	snap.UniqueTraders1m = countUniqueTraders(state.w1m.trades)

	if oldest := state.w30.oldest(); oldest != nil {
		snap.PriceChange30sPct = priceChangePct(snap.Px, oldest.PriceSolPerToken)
	}

	snap.EstFillBps005 = fillImpactBps(fillSize005, trade.VSol)
	snap.EstFillBps010 = fillImpactBps(fillSize010, trade.VSol)
	snap.EstFillBps015 = fillImpactBps(fillSize015, trade.VSol)

	return snap
}

// imbalance computes (B-S)/(B+S) over 1-minute buy/sell volumes,
// 0 when the window traded nothing.
func imbalance(buyVol, sellVol float64) float64 {
	total := buyVol + sellVol
	if total <= 0 {
		return 0
	}
	return (buyVol - sellVol) / total
}

// buyVelocityRatio compares the 1m buy rate to the 5m buy rate.
// Falls back to the raw 1m rate when the 5m window has no buys.
func buyVelocityRatio(buyCount1m, buyCount5m int) float64 {
	r1 := float64(buyCount1m) / 60
	r5 := float64(buyCount5m) / 300
	switch {
	case r5 > 0:
		return r1 / r5
	case r1 > 0:
		return r1
	default:
		return 0
	}
}

// priceChangePct returns percent change of px vs the oldest price in the
// 30s window, 0 when the reference price is unusable.
func priceChangePct(px, oldest float64) float64 {
	if oldest <= 0 {
		return 0
	}
	return (px - oldest) / oldest * 100
}

// countUniqueTraders counts distinct non-empty user addresses.
func countUniqueTraders(trades []*domain.Trade) int {
	seen := make(map[string]struct{}, len(trades))
	for _, t := range trades {
		if t.UserAddress != "" {
			seen[t.UserAddress] = struct{}{}
		}
	}
	return len(seen)
}

// fillImpactBps estimates the price impact in bps of a hypothetical order
// of sizeSol against the virtual sol reserves, clamped to [0, 5000bps].
// Nil when reserves are unknown, non-positive, or the result is not finite.
func fillImpactBps(sizeSol float64, vSol *float64) *float64 {
	if vSol == nil || *vSol <= 0 {
		return nil
	}
	impact := sizeSol / *vSol * 10000
	if math.IsNaN(impact) || math.IsInf(impact, 0) {
		return nil
	}
	if impact < 0 {
		impact = 0
	}
	if impact > maxFillImpactBps {
		impact = maxFillImpactBps
	}
	return &impact
}
