package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/pairstream/internal/api"
	"github.com/rickgao/pairstream/internal/model"
)

// PollConnector fetches each pair over REST on a fixed interval.
type PollConnector struct {
	cfg     Config
	fetcher PairFetcher
	sink    EventSink
	logger  *slog.Logger

	mu    sync.Mutex
	pairs map[model.PairKey]*pollState
	wg    sync.WaitGroup
}

type pollState struct {
	pair   model.PairIdentity
	cancel context.CancelFunc

	mu        sync.Mutex
	connected bool
	failures  int
}

// NewPollConnector creates a poll-strategy connector.
func NewPollConnector(cfg Config, fetcher PairFetcher, sink EventSink, logger *slog.Logger) *PollConnector {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaults.PollInterval
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaults.RequestTimeout
	}
	return &PollConnector{
		cfg:     cfg,
		fetcher: fetcher,
		sink:    sink,
		logger:  logger,
		pairs:   make(map[model.PairKey]*pollState),
	}
}

// StartPair begins polling a pair.
func (c *PollConnector) StartPair(pair model.PairIdentity) {
	key := pair.Key()

	c.mu.Lock()
	if _, ok := c.pairs[key]; ok {
		c.mu.Unlock()
		c.logger.Warn("pair already monitored", "pair", key)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	state := &pollState{pair: pair, cancel: cancel}
	c.pairs[key] = state
	c.wg.Add(1)
	c.mu.Unlock()

	go c.run(ctx, state)

	c.logger.Info("polling started", "pair", key, "interval", c.cfg.PollInterval)
}

// StopPair stops polling a pair.
func (c *PollConnector) StopPair(key model.PairKey) {
	c.mu.Lock()
	state, ok := c.pairs[key]
	if ok {
		delete(c.pairs, key)
	}
	c.mu.Unlock()

	if ok {
		state.cancel()
		c.logger.Info("polling stopped", "pair", key)
	}
}

// StopAll stops every pair and waits for in-flight fetches to finish.
func (c *PollConnector) StopAll() {
	c.mu.Lock()
	states := c.pairs
	c.pairs = make(map[model.PairKey]*pollState)
	c.mu.Unlock()

	for _, state := range states {
		state.cancel()
	}
	c.wg.Wait()
}

// Status returns a snapshot for every polled pair.
func (c *PollConnector) Status() []PairStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]PairStatus, 0, len(c.pairs))
	for key, state := range c.pairs {
		state.mu.Lock()
		out = append(out, PairStatus{
			Key:               key,
			Connected:         state.connected,
			ReconnectAttempts: state.failures,
		})
		state.mu.Unlock()
	}
	return out
}

// run polls immediately, then on every tick until cancelled.
func (c *PollConnector) run(ctx context.Context, state *pollState) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	c.poll(ctx, state)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.poll(ctx, state)
		}
	}
}

// poll performs one fetch and emits its outcome.
func (c *PollConnector) poll(ctx context.Context, state *pollState) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	pair := state.pair
	resp, err := c.fetcher.GetPair(reqCtx, pair.Chain, pair.Address)

	// Cancelled by StopPair/StopAll: nothing to report.
	if ctx.Err() != nil {
		return
	}

	state.mu.Lock()
	if err != nil {
		state.connected = false
		state.failures++
	} else {
		state.connected = true
		state.failures = 0
	}
	state.mu.Unlock()

	if err != nil {
		c.sink.Push(Event{Pair: pair, Err: classifyFetchError(err), ReceivedAt: time.Now()})
		return
	}

	if len(resp.Pairs) == 0 {
		c.logger.Warn("no pair data in response", "pair", pair.Key())
	}
	c.sink.Push(Event{Pair: pair, Payload: resp, ReceivedAt: time.Now()})
}

func classifyFetchError(err error) error {
	if errors.Is(err, api.ErrDecode) {
		return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return fmt.Errorf("%w: %w", ErrTransientFetch, err)
}
