// Package history records every published stat snapshot into an
// append-only timeseries store for offline analysis.
package history

import (
	"context"
	"log"
	"sync"
	"time"

	"solana-signal-engine/internal/domain"
	"solana-signal-engine/internal/observability"
	"solana-signal-engine/internal/storage"
)

const (
	defaultFlushInterval = 5 * time.Second
	defaultMaxBuffer     = 500
	flushTimeout         = 10 * time.Second
)

// Recorder buffers snapshots and flushes them in batches, either on a
// timer or when the buffer fills. Recording never blocks the snapshot
// publisher; a failed flush is logged and the batch is dropped, since
// pipeline correctness does not depend on history completeness.
type Recorder struct {
	store         storage.StatHistoryStore
	flushInterval time.Duration
	maxBuffer     int
	logger        *log.Logger

	mu  sync.Mutex
	buf []*domain.TokenStatSnapshot

	startMu sync.Mutex
	started bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// Options configures a Recorder.
type Options struct {
	Store storage.StatHistoryStore
	// FlushInterval defaults to 5s.
	FlushInterval time.Duration
	// MaxBuffer forces a flush once this many snapshots are pending.
	// Defaults to 500.
	MaxBuffer int
	Logger    *log.Logger
}

// NewRecorder creates a Recorder.
func NewRecorder(opts Options) *Recorder {
	interval := opts.FlushInterval
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	maxBuffer := opts.MaxBuffer
	if maxBuffer <= 0 {
		maxBuffer = defaultMaxBuffer
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Recorder{
		store:         opts.Store,
		flushInterval: interval,
		maxBuffer:     maxBuffer,
		logger:        logger,
	}
}

// Record buffers one snapshot. Intended as an Aggregator.OnSnapshot
// subscriber.
func (r *Recorder) Record(snap *domain.TokenStatSnapshot) {
	if snap == nil {
		return
	}

	r.mu.Lock()
	r.buf = append(r.buf, snap)
	full := len(r.buf) >= r.maxBuffer
	r.mu.Unlock()

	if full {
		go r.Flush()
	}
}

// Start launches the periodic flush loop. Idempotent.
func (r *Recorder) Start() {
	r.startMu.Lock()
	defer r.startMu.Unlock()
	if r.started {
		return
	}
	r.started = true
	r.done = make(chan struct{})

	r.wg.Add(1)
	go r.flushLoop()
}

// Stop halts the loop and flushes whatever is buffered.
func (r *Recorder) Stop() {
	r.startMu.Lock()
	defer r.startMu.Unlock()
	if !r.started {
		return
	}
	r.started = false
	close(r.done)
	r.wg.Wait()

	r.Flush()
}

func (r *Recorder) flushLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.Flush()
		}
	}
}

// Flush writes all pending snapshots in one batch.
func (r *Recorder) Flush() {
	r.mu.Lock()
	batch := r.buf
	r.buf = nil
	r.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	if err := r.store.InsertBulk(ctx, batch); err != nil {
		observability.RecordSinkError("stat_history", "insert_bulk")
		r.logger.Printf("[history] dropped batch of %d snapshots: %v", len(batch), err)
	}
}

// Pending returns the number of buffered snapshots.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}
