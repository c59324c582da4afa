// Package rules maintains the active trigger rule set and evaluates it
// against every stat snapshot the aggregator publishes.
package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"solana-signal-engine/internal/domain"
	"solana-signal-engine/internal/idhash"
	"solana-signal-engine/internal/observability"
	"solana-signal-engine/internal/pubsub"
	"solana-signal-engine/internal/storage"
)

const (
	// DefaultReloadInterval is how often the rule set is refreshed from
	// the durable store.
	DefaultReloadInterval = 60 * time.Second

	reloadTimeout       = 30 * time.Second
	signalAppendTimeout = 5 * time.Second
)

// activeRule pairs a stored rule with its expression resolved at load time.
type activeRule struct {
	rule *domain.Rule
	expr Expr
}

// Engine evaluates the active rule set against incoming snapshots and
// fires deduplicated triggers. The active list is swapped wholesale on
// every reload cycle; evaluation always reads one consistent list.
type Engine struct {
	ruleStore      storage.RuleStore
	signalStore    storage.SignalStore
	reloadInterval time.Duration
	logger         *log.Logger
	now            func() time.Time

	active atomic.Pointer[[]*activeRule]

	// lastTriggered lives outside the swapped rule list so a reload
	// cannot reset cooldowns. Keyed by rule ID only: a wildcard rule
	// firing for one mint suppresses that rule for every mint until its
	// cooldown lapses.
	cooldownMu    sync.Mutex
	lastTriggered map[string]int64 // ruleID -> trigger timestamp (ms)

	triggerBus *pubsub.Bus[*domain.RuleTriggerEvent]

	startMu sync.Mutex
	started bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// Options configures an Engine.
type Options struct {
	// RuleStore is the external durable rule store (read path).
	RuleStore storage.RuleStore
	// SignalStore receives a best-effort durable record per trigger.
	// Nil disables persistence.
	SignalStore storage.SignalStore
	// ReloadInterval defaults to DefaultReloadInterval.
	ReloadInterval time.Duration
	Logger         *log.Logger
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// NewEngine creates a new rule engine.
func NewEngine(opts Options) *Engine {
	interval := opts.ReloadInterval
	if interval <= 0 {
		interval = DefaultReloadInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		ruleStore:      opts.RuleStore,
		signalStore:    opts.SignalStore,
		reloadInterval: interval,
		logger:         logger,
		now:            now,
		lastTriggered:  make(map[string]int64),
		triggerBus:     pubsub.New[*domain.RuleTriggerEvent](),
	}
}

// OnTrigger registers a subscriber for every fired trigger.
func (e *Engine) OnTrigger(handler func(*domain.RuleTriggerEvent)) {
	e.triggerBus.Subscribe(handler)
}

// Start performs an initial reload and launches the periodic reload loop.
// Idempotent: a second Start is a no-op until Stop.
func (e *Engine) Start(ctx context.Context) {
	e.startMu.Lock()
	defer e.startMu.Unlock()
	if e.started {
		return
	}
	e.started = true
	e.done = make(chan struct{})

	if err := e.reloadOnce(ctx); err != nil {
		e.logger.Printf("[rules] initial reload failed: %v", err)
	}

	e.wg.Add(1)
	go e.reloadLoop()
}

// Stop halts the reload loop. Snapshot evaluation remains valid against
// the last active set.
func (e *Engine) Stop() {
	e.startMu.Lock()
	defer e.startMu.Unlock()
	if !e.started {
		return
	}
	e.started = false
	close(e.done)
	e.wg.Wait()
}

func (e *Engine) reloadLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.reloadInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.done:
			return
		case <-ticker.C:
			if err := e.reloadOnce(context.Background()); err != nil {
				e.logger.Printf("[rules] reload failed, keeping previous rule set: %v", err)
			}
		}
	}
}

func (e *Engine) reloadOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, reloadTimeout)
	defer cancel()
	return e.Reload(ctx)
}

// Reload fetches all enabled rules and atomically replaces the active set.
// A rule whose expression fails to parse is logged and excluded without
// affecting other rules. On store failure the previous set stays in place.
func (e *Engine) Reload(ctx context.Context) error {
	loaded, err := e.ruleStore.ListEnabled(ctx)
	if err != nil {
		observability.RecordRuleReload("error", 0)
		return fmt.Errorf("list enabled rules: %w", err)
	}

	active := make([]*activeRule, 0, len(loaded))
	ids := make(map[string]struct{}, len(loaded))
	for _, r := range loaded {
		expr, err := ParseExpr(r.Expression)
		if err != nil {
			observability.RecordRuleExcluded()
			e.logger.Printf("[rules] excluding rule %s: %v", r.ID, err)
			continue
		}
		active = append(active, &activeRule{rule: r, expr: expr})
		ids[r.ID] = struct{}{}
	}

	e.active.Store(&active)

	// Drop cooldown state for rules that left the store.
	e.cooldownMu.Lock()
	for id := range e.lastTriggered {
		if _, ok := ids[id]; !ok {
			delete(e.lastTriggered, id)
		}
	}
	e.cooldownMu.Unlock()

	observability.RecordRuleReload("ok", len(active))
	return nil
}

// ActiveRuleCount returns the size of the current active set.
func (e *Engine) ActiveRuleCount() int {
	rules := e.active.Load()
	if rules == nil {
		return 0
	}
	return len(*rules)
}

// HandleSnapshot evaluates every active rule against the snapshot and
// fires a trigger for each rule that matches, passes its expression, and
// is out of cooldown.
func (e *Engine) HandleSnapshot(snap *domain.TokenStatSnapshot) {
	if snap == nil {
		return
	}
	rules := e.active.Load()
	if rules == nil {
		return
	}

	nowMs := e.now().UnixMilli()
	for _, ar := range *rules {
		if !ar.rule.MatchesMint(snap.Mint) {
			continue
		}
		if !ar.expr.Eval(snap) {
			continue
		}
		if !e.claimCooldown(ar.rule, nowMs) {
			continue
		}
		e.fire(ar.rule, snap, nowMs)
	}
}

// claimCooldown records the trigger time iff the rule is out of cooldown.
func (e *Engine) claimCooldown(rule *domain.Rule, nowMs int64) bool {
	cooldownMs := int64(rule.Cooldown()) * 1000

	e.cooldownMu.Lock()
	defer e.cooldownMu.Unlock()

	if last, ok := e.lastTriggered[rule.ID]; ok && nowMs-last < cooldownMs {
		return false
	}
	e.lastTriggered[rule.ID] = nowMs
	return true
}

func (e *Engine) fire(rule *domain.Rule, snap *domain.TokenStatSnapshot, nowMs int64) {
	event := &domain.RuleTriggerEvent{
		RuleID:      rule.ID,
		Mint:        snap.Mint,
		TriggeredAt: nowMs,
		Snapshot:    snap,
	}

	observability.RecordTriggerFired()
	e.logger.Printf("[rules] rule %s triggered for %s", rule.ID, snap.Mint)
	e.triggerBus.Publish(event)

	if e.signalStore != nil {
		go e.persistSignal(event)
	}
}

// persistSignal durably records the trigger off the evaluation path.
// Failure is logged; the in-memory trigger already happened and is not
// reversed.
func (e *Engine) persistSignal(event *domain.RuleTriggerEvent) {
	payload, err := json.Marshal(struct {
		RuleID   string                    `json:"ruleId"`
		Snapshot *domain.TokenStatSnapshot `json:"snapshot"`
	}{event.RuleID, event.Snapshot})
	if err != nil {
		observability.RecordSinkError("signals", "marshal")
		e.logger.Printf("[rules] signal payload marshal failed for rule %s: %v", event.RuleID, err)
		return
	}

	sig := &domain.Signal{
		ID:        idhash.ComputeSignalID(event.RuleID, event.Mint, event.TriggeredAt),
		Kind:      domain.SignalKindRuleTrigger,
		Mint:      event.Mint,
		Payload:   payload,
		CreatedAt: event.TriggeredAt,
	}

	ctx, cancel := context.WithTimeout(context.Background(), signalAppendTimeout)
	defer cancel()

	if err := e.signalStore.Append(ctx, sig); err != nil {
		observability.RecordSinkError("signals", "append")
		e.logger.Printf("[rules] signal append failed for rule %s: %v", event.RuleID, err)
	}
}
