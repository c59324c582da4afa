package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solana-signal-engine/internal/aggregate"
	"solana-signal-engine/internal/feed"
	"solana-signal-engine/internal/history"
	"solana-signal-engine/internal/observability"
	"solana-signal-engine/internal/rules"
	"solana-signal-engine/internal/storage"
	chstore "solana-signal-engine/internal/storage/clickhouse"
	"solana-signal-engine/internal/storage/memory"
	pgstore "solana-signal-engine/internal/storage/postgres"
)

func main() {
	// Parse flags
	wsEndpoint := flag.String("ws-endpoint", "", "Upstream trade feed WebSocket endpoint")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (rules, signals, stats)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (trade and stat history, empty to disable)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	reloadInterval := flag.Duration("reload-interval", rules.DefaultReloadInterval, "Rule reload interval")
	reconnectDelay := flag.Duration("reconnect-delay", 0, "Feed reconnect delay (0 uses default)")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[engine] ", log.LstdFlags|log.Lshortfile)

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel to signal main goroutine completion
	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err := run(ctx, logger, *wsEndpoint, *postgresDSN, *clickhouseDSN, *useMemory, *reloadInterval, *reconnectDelay)

	// Signal completion to shutdown handler
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// run wires the pipeline and blocks until the context is cancelled.
func run(ctx context.Context, logger *log.Logger, wsEndpoint, postgresDSN, clickhouseDSN string, useMemory bool, reloadInterval, reconnectDelay time.Duration) error {
	if wsEndpoint == "" {
		return fmt.Errorf("--ws-endpoint is required")
	}

	// Require --postgres-dsn unless --use-memory is explicitly set
	if !useMemory && postgresDSN == "" {
		return fmt.Errorf("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	// Create stores (use interfaces)
	var ruleStore storage.RuleStore = memory.NewRuleStore()
	var signalStore storage.SignalStore = memory.NewSignalStore()
	var statStore storage.StatStore = memory.NewStatStore()

	if !useMemory {
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		ruleStore = pgstore.NewRuleStore(pool)
		signalStore = pgstore.NewSignalStore(pool)
		statStore = pgstore.NewStatStore(pool)
	}

	// History sinks are optional
	var tradeStore storage.TradeStore
	var statHistoryStore storage.StatHistoryStore
	if clickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, clickhouseDSN)
		if err != nil {
			return fmt.Errorf("connect to clickhouse: %w", err)
		}
		defer conn.Close()

		tradeStore = chstore.NewTradeStore(conn)
		statHistoryStore = chstore.NewStatHistoryStore(conn)
	}

	aggregator := aggregate.New(aggregate.Options{
		StatStore: statStore,
		Logger:    logger,
	})

	engine := rules.NewEngine(rules.Options{
		RuleStore:      ruleStore,
		SignalStore:    signalStore,
		ReloadInterval: reloadInterval,
		Logger:         logger,
	})
	aggregator.OnSnapshot(engine.HandleSnapshot)

	if statHistoryStore != nil {
		recorder := history.NewRecorder(history.Options{
			Store:  statHistoryStore,
			Logger: logger,
		})
		aggregator.OnSnapshot(recorder.Record)
		recorder.Start()
		defer recorder.Stop()
	}

	var clientConfig *feed.ClientConfig
	if reconnectDelay > 0 {
		clientConfig = &feed.ClientConfig{ReconnectDelay: reconnectDelay}
	}

	ingestor := feed.NewIngestor(feed.IngestorOptions{
		Endpoint:     wsEndpoint,
		ClientConfig: clientConfig,
		Aggregator:   aggregator,
		TradeStore:   tradeStore,
		Logger:       logger,
	})
	engine.Start(ctx)
	defer engine.Stop()

	if err := ingestor.Start(); err != nil {
		// The client has already scheduled a reconnect; log and keep going.
		logger.Printf("initial feed connect failed: %v", err)
	}
	defer ingestor.Stop()

	logger.Println("Signal engine running")
	<-ctx.Done()
	return ctx.Err()
}
