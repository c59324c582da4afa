package feed

import (
	"context"
	"errors"
	"log"
	"time"

	"solana-signal-engine/internal/aggregate"
	"solana-signal-engine/internal/domain"
	"solana-signal-engine/internal/observability"
	"solana-signal-engine/internal/pubsub"
	"solana-signal-engine/internal/storage"
)

const tradeInsertTimeout = 5 * time.Second

// Ingestor drives the pipeline: it owns the feed client, normalizes
// every message, and hands valid trades to the aggregator. One message
// is handled to completion before the next is read, so window state is
// never mutated concurrently from the feed.
type Ingestor struct {
	client     *Client
	aggregator *aggregate.Aggregator
	tradeStore storage.TradeStore
	tradeBus   *pubsub.Bus[*domain.Trade]
	logger     *log.Logger
}

// IngestorOptions configures an Ingestor.
type IngestorOptions struct {
	// Endpoint is the upstream feed WebSocket URL.
	Endpoint string
	// ClientConfig overrides connection behavior. Nil uses defaults.
	ClientConfig *ClientConfig
	// Aggregator receives every valid trade.
	Aggregator *aggregate.Aggregator
	// TradeStore, when set, receives a fire-and-forget copy of every
	// trade for history.
	TradeStore storage.TradeStore
	Logger     *log.Logger
}

// NewIngestor creates an Ingestor. It does not connect until Start.
func NewIngestor(opts IngestorOptions) *Ingestor {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	i := &Ingestor{
		aggregator: opts.Aggregator,
		tradeStore: opts.TradeStore,
		tradeBus:   pubsub.New[*domain.Trade](),
		logger:     logger,
	}
	i.client = NewClient(opts.Endpoint, opts.ClientConfig, Handlers{
		OnMessage: i.handleMessage,
	}, logger)
	return i
}

// Start opens the feed subscription. Idempotent.
func (i *Ingestor) Start() error {
	return i.client.Start()
}

// Stop tears down the subscription and any pending reconnect.
func (i *Ingestor) Stop() {
	i.client.Stop()
}

// OnTrade registers a subscriber for every normalized trade.
func (i *Ingestor) OnTrade(handler func(*domain.Trade)) {
	i.tradeBus.Subscribe(handler)
}

// handleMessage parses one raw feed message and drives the aggregator.
// A malformed message is dropped with a warning and nothing else happens:
// no aggregator mutation, no snapshot, no crash.
func (i *Ingestor) handleMessage(raw []byte) {
	start := time.Now()
	defer func() {
		observability.ObserveMessageLatency(time.Since(start).Seconds())
	}()

	trade, err := ParseTrade(raw)
	if err != nil {
		if errors.Is(err, errNotTrade) {
			return
		}
		observability.RecordTradeRejected("malformed")
		i.logger.Printf("[feed] dropping malformed trade message: %v", err)
		return
	}

	observability.RecordTradeProcessed()
	i.tradeBus.Publish(trade)
	if i.aggregator != nil {
		i.aggregator.IngestTrade(trade)
	}
	if i.tradeStore != nil {
		go i.recordTrade(trade)
	}
}

// recordTrade persists the trade off the ingestion critical path.
func (i *Ingestor) recordTrade(trade *domain.Trade) {
	ctx, cancel := context.WithTimeout(context.Background(), tradeInsertTimeout)
	defer cancel()

	if err := i.tradeStore.Insert(ctx, trade); err != nil {
		observability.RecordSinkError("trades", "insert")
		i.logger.Printf("[feed] trade insert failed for %s: %v", trade.Mint, err)
	}
}
