package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rickgao/pairstream/internal/codec"
	"github.com/rickgao/pairstream/internal/ledger"
	"github.com/rickgao/pairstream/internal/model"
)

const shutdownPollInterval = 10 * time.Millisecond

// Publisher batches ledger entries keyed by pair.
type Publisher struct {
	cfg      Config
	schemaID common.Hash
	writer   ledger.Writer
	logger   *slog.Logger
	onFlush  func(FlushResult)

	mu         sync.Mutex
	pending    map[model.PairKey]ledger.Entry
	order      []model.PairKey
	inFlight   bool
	batchTimer *time.Timer
	retryTimer *time.Timer
	closed     bool
	stats      Stats
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithFlushHook registers a callback invoked after every write attempt.
func WithFlushHook(fn func(FlushResult)) Option {
	return func(p *Publisher) {
		p.onFlush = fn
	}
}

// New creates a Publisher writing entries for schemaID to w.
func New(cfg Config, schemaID common.Hash, w ledger.Writer, opts ...Option) *Publisher {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	p := &Publisher{
		cfg:      cfg,
		schemaID: schemaID,
		writer:   w,
		logger:   slog.Default(),
		pending:  make(map[model.PairKey]ledger.Entry),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Enqueue encodes record and stores it as the pending value for pair.
// Reaching BatchSize starts a flush in the background; otherwise the batch
// timer is armed if it is not already.
func (p *Publisher) Enqueue(pair model.PairIdentity, record *model.PriceRecord) error {
	data, err := codec.Encode(record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	key := pair.Key()
	entry := ledger.Entry{
		Key:      key,
		ID:       key.Hash(),
		SchemaID: p.schemaID,
		Data:     data,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	p.put(entry)

	if len(p.pending) >= p.cfg.BatchSize {
		if !p.inFlight {
			p.stopBatchTimerLocked()
			go p.flushAsync()
		}
		return nil
	}
	p.armBatchTimerLocked()
	return nil
}

// Flush writes every pending entry in one ledger call. It returns nil
// immediately when nothing is pending or a write is already in flight.
func (p *Publisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	p.stopBatchTimerLocked()
	if p.inFlight || len(p.pending) == 0 {
		p.mu.Unlock()
		return nil
	}

	entries := p.snapshotLocked()
	p.inFlight = true
	p.mu.Unlock()

	start := time.Now()
	writeCtx, cancel := context.WithTimeout(ctx, p.cfg.WriteTimeout)
	txID, err := p.writer.Write(writeCtx, entries)
	cancel()
	elapsed := time.Since(start)

	p.mu.Lock()
	p.inFlight = false

	if err != nil {
		requeued := p.requeueLocked(entries)
		p.stats.Failures++
		p.stats.ConsecutiveFailures++
		failures := p.stats.ConsecutiveFailures
		retryIn, retry := p.scheduleRetryLocked(failures)
		pending := len(p.pending)
		p.mu.Unlock()

		p.notify(FlushResult{Entries: len(entries), Err: err, Duration: elapsed})

		if retry {
			p.logger.Error("ledger write failed",
				"error", err,
				"entries", len(entries),
				"requeued", requeued,
				"pending", pending,
				"retry_in", retryIn,
			)
		} else {
			p.logger.Error("ledger write failed, retries exhausted",
				"error", err,
				"entries", len(entries),
				"consecutive_failures", failures,
				"pending", pending,
			)
		}
		return fmt.Errorf("%w: %w", ErrLedgerWrite, err)
	}

	p.stats.Flushes++
	p.stats.ConsecutiveFailures = 0
	p.stats.EntriesWritten += int64(len(entries))
	p.stats.LastTxID = txID
	p.stats.LastFlush = time.Now()
	if p.retryTimer != nil {
		p.retryTimer.Stop()
		p.retryTimer = nil
	}
	p.rearmLocked()
	p.mu.Unlock()

	p.notify(FlushResult{Entries: len(entries), TxID: txID, Duration: elapsed})

	p.logger.Info("published batch",
		"tx_id", txID,
		"entries", len(entries),
		"duration", elapsed,
	)
	return nil
}

// Shutdown stops accepting records and flushes what is pending, retrying
// until the ledger accepts the batch or ctx expires.
func (p *Publisher) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.stopBatchTimerLocked()
	if p.retryTimer != nil {
		p.retryTimer.Stop()
		p.retryTimer = nil
	}
	p.mu.Unlock()

	for {
		err := p.Flush(ctx)

		p.mu.Lock()
		pending, busy := len(p.pending), p.inFlight
		failures := p.stats.ConsecutiveFailures
		p.mu.Unlock()

		if err == nil && pending == 0 && !busy {
			p.logger.Info("publisher shut down", "entries_written", p.Stats().EntriesWritten)
			return nil
		}

		wait := shutdownPollInterval
		if err != nil {
			wait = p.cfg.Retry.backoff(failures)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %d entries pending", ErrShutdownIncomplete, pending)
		case <-time.After(wait):
		}
	}
}

// PendingCount returns the number of entries waiting to be written.
func (p *Publisher) PendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Stats returns current counters.
func (p *Publisher) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.stats
	s.Pending = len(p.pending)
	return s
}

func (p *Publisher) flushAsync() {
	// Errors are logged and retried inside Flush.
	_ = p.Flush(context.Background())
}

func (p *Publisher) put(e ledger.Entry) {
	if _, ok := p.pending[e.Key]; !ok {
		p.order = append(p.order, e.Key)
	}
	p.pending[e.Key] = e
}

// snapshotLocked takes every pending entry in first-enqueued order.
func (p *Publisher) snapshotLocked() []ledger.Entry {
	entries := make([]ledger.Entry, 0, len(p.order))
	for _, k := range p.order {
		entries = append(entries, p.pending[k])
	}
	p.pending = make(map[model.PairKey]ledger.Entry)
	p.order = nil
	return entries
}

// requeueLocked restores failed entries that have no newer pending value.
func (p *Publisher) requeueLocked(entries []ledger.Entry) int {
	n := 0
	for _, e := range entries {
		if _, newer := p.pending[e.Key]; newer {
			continue
		}
		p.put(e)
		n++
	}
	return n
}

func (p *Publisher) scheduleRetryLocked(failures int) (time.Duration, bool) {
	if p.closed {
		return 0, false
	}
	delay, ok := p.cfg.Retry.Next(failures)
	if !ok {
		return 0, false
	}
	if p.retryTimer != nil {
		p.retryTimer.Stop()
	}
	p.retryTimer = time.AfterFunc(delay, p.flushAsync)
	return delay, true
}

// rearmLocked makes sure entries that arrived during a write get flushed.
func (p *Publisher) rearmLocked() {
	if len(p.pending) == 0 || p.closed {
		return
	}
	if len(p.pending) >= p.cfg.BatchSize {
		go p.flushAsync()
		return
	}
	p.armBatchTimerLocked()
}

func (p *Publisher) armBatchTimerLocked() {
	if p.batchTimer != nil {
		return
	}
	p.batchTimer = time.AfterFunc(p.cfg.BatchTimeout, p.flushAsync)
}

func (p *Publisher) stopBatchTimerLocked() {
	if p.batchTimer != nil {
		p.batchTimer.Stop()
		p.batchTimer = nil
	}
}

func (p *Publisher) notify(r FlushResult) {
	if p.onFlush != nil {
		p.onFlush(r)
	}
}
