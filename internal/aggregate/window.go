package aggregate

import "solana-signal-engine/internal/domain"

// window is an ordered, time-bounded buffer of trades for one mint.
// Trades arrive in non-decreasing timestamp order, so eviction only ever
// removes from the front.
type window struct {
	durationMs int64
	trades     []*domain.Trade
}

func (w *window) add(t *domain.Trade) {
	w.trades = append(w.trades, t)
}

// evict drops trades older than the window duration relative to nowMs.
// Invariant afterwards: nowMs - trades[0].TimestampMs <= durationMs.
// nowMs is the timestamp of the newest ingested trade, not wall clock,
// which keeps the pipeline deterministic and replayable.
func (w *window) evict(nowMs int64) {
	i := 0
	for i < len(w.trades) && nowMs-w.trades[i].TimestampMs > w.durationMs {
		w.trades[i] = nil
		i++
	}
	if i == 0 {
		return
	}

	remaining := copy(w.trades, w.trades[i:])
	for j := remaining; j < len(w.trades); j++ {
		w.trades[j] = nil
	}
	w.trades = w.trades[:remaining]
}

func (w *window) oldest() *domain.Trade {
	if len(w.trades) == 0 {
		return nil
	}
	return w.trades[0]
}

// tokenState holds the three sliding windows for one mint. Created lazily
// on the mint's first trade and mutated exclusively by the Aggregator.
type tokenState struct {
	w30 window
	w1m window
	w5m window

	lastUpdated int64 // timestamp of most recent trade (ms)
}

func newTokenState() *tokenState {
	return &tokenState{
		w30: window{durationMs: domain.Window30sMs},
		w1m: window{durationMs: domain.Window1mMs},
		w5m: window{durationMs: domain.Window5mMs},
	}
}

// ingest appends the trade to all windows and evicts stale entries
// relative to the trade's own timestamp.
func (s *tokenState) ingest(t *domain.Trade) {
	s.w30.add(t)
	s.w1m.add(t)
	s.w5m.add(t)

	s.w30.evict(t.TimestampMs)
	s.w1m.evict(t.TimestampMs)
	s.w5m.evict(t.TimestampMs)

	s.lastUpdated = t.TimestampMs
}
