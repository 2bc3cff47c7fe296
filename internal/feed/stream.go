package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rickgao/pairstream/internal/api"
	"github.com/rickgao/pairstream/internal/connection"
	"github.com/rickgao/pairstream/internal/model"
)

// StreamConnector holds one WebSocket per pair and reconnects with
// exponential backoff until MaxReconnectAttempts consecutive failures.
type StreamConnector struct {
	cfg     Config
	backoff Backoff
	sink    EventSink
	logger  *slog.Logger

	// newClient is swapped in tests.
	newClient func(connection.ClientConfig, *slog.Logger) connection.Client

	mu    sync.Mutex
	pairs map[model.PairKey]*streamState
	wg    sync.WaitGroup
}

type streamState struct {
	pair   model.PairIdentity
	cancel context.CancelFunc

	mu        sync.Mutex
	connected bool
	attempts  int
}

// NewStreamConnector creates a stream-strategy connector.
func NewStreamConnector(cfg Config, sink EventSink, logger *slog.Logger) *StreamConnector {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if cfg.ReconnectBaseDelay <= 0 {
		cfg.ReconnectBaseDelay = defaults.ReconnectBaseDelay
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = defaults.MaxReconnectAttempts
	}
	return &StreamConnector{
		cfg:       cfg,
		backoff:   Backoff{Base: cfg.ReconnectBaseDelay, Max: cfg.ReconnectMaxDelay},
		sink:      sink,
		logger:    logger,
		newClient: connection.NewClient,
		pairs:     make(map[model.PairKey]*streamState),
	}
}

// StartPair opens the pair's stream.
func (c *StreamConnector) StartPair(pair model.PairIdentity) {
	key := pair.Key()

	c.mu.Lock()
	if _, ok := c.pairs[key]; ok {
		c.mu.Unlock()
		c.logger.Warn("pair already monitored", "pair", key)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	state := &streamState{pair: pair, cancel: cancel}
	c.pairs[key] = state
	c.wg.Add(1)
	c.mu.Unlock()

	go c.run(ctx, state)

	c.logger.Info("stream started", "pair", key)
}

// StopPair closes the pair's stream and cancels any pending reconnect.
func (c *StreamConnector) StopPair(key model.PairKey) {
	c.mu.Lock()
	state, ok := c.pairs[key]
	if ok {
		delete(c.pairs, key)
	}
	c.mu.Unlock()

	if ok {
		state.cancel()
		c.logger.Info("stream stopped", "pair", key)
	}
}

// StopAll closes every stream and waits for their goroutines to exit.
func (c *StreamConnector) StopAll() {
	c.mu.Lock()
	states := c.pairs
	c.pairs = make(map[model.PairKey]*streamState)
	c.mu.Unlock()

	for _, state := range states {
		state.cancel()
	}
	c.wg.Wait()
}

// Status returns a snapshot for every monitored pair.
func (c *StreamConnector) Status() []PairStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]PairStatus, 0, len(c.pairs))
	for key, state := range c.pairs {
		state.mu.Lock()
		out = append(out, PairStatus{
			Key:               key,
			Connected:         state.connected,
			ReconnectAttempts: state.attempts,
		})
		state.mu.Unlock()
	}
	return out
}

// run is the per-pair connect/consume/reconnect loop.
func (c *StreamConnector) run(ctx context.Context, state *streamState) {
	defer c.wg.Done()

	pair := state.pair
	logger := c.logger.With("pair", pair.Key())

	for {
		err := c.connectAndConsume(ctx, state, logger)
		if ctx.Err() != nil {
			return
		}

		state.mu.Lock()
		state.connected = false
		attempt := state.attempts
		state.mu.Unlock()

		if attempt >= c.cfg.MaxReconnectAttempts {
			logger.Error("max reconnect attempts reached, giving up",
				"attempts", attempt,
				"error", err,
			)
			// Forget first so a restart triggered by the fatal event sticks.
			c.forget(pair.Key(), state)
			c.sink.Push(Event{
				Pair:       pair,
				Err:        fmt.Errorf("%w after %d attempts: %w", ErrReconnectLimitExceeded, attempt, err),
				Fatal:      true,
				ReceivedAt: time.Now(),
			})
			return
		}

		delay := c.backoff.Delay(attempt)
		state.mu.Lock()
		state.attempts = attempt + 1
		state.mu.Unlock()

		logger.Warn("stream failed, reconnecting",
			"attempt", attempt+1,
			"max_attempts", c.cfg.MaxReconnectAttempts,
			"delay", delay,
			"error", err,
		)
		c.sink.Push(Event{
			Pair:       pair,
			Err:        fmt.Errorf("%w: %w", ErrTransientFetch, err),
			Attempt:    attempt + 1,
			ReceivedAt: time.Now(),
		})

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// connectAndConsume dials once and forwards frames until the connection
// fails or ctx is cancelled.
func (c *StreamConnector) connectAndConsume(ctx context.Context, state *streamState, logger *slog.Logger) error {
	pair := state.pair

	header := http.Header{}
	if c.cfg.UserAgent != "" {
		header.Set("User-Agent", c.cfg.UserAgent)
	}
	client := c.newClient(connection.ClientConfig{
		URL:          c.pairURL(pair),
		Header:       header,
		PingInterval: c.cfg.PingInterval,
		PingTimeout:  c.cfg.PingTimeout,
	}, logger)
	defer client.Close()

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	state.mu.Lock()
	state.connected = true
	state.attempts = 0
	state.mu.Unlock()
	logger.Info("stream connected")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-client.Errors():
			// Deliver frames read before the failure.
			for {
				select {
				case msg := <-client.Messages():
					c.handleFrame(pair, msg, logger)
				default:
					return err
				}
			}
		case msg := <-client.Messages():
			c.handleFrame(pair, msg, logger)
		}
	}
}

// handleFrame decodes one frame and emits a payload or malformed event.
func (c *StreamConnector) handleFrame(pair model.PairIdentity, msg connection.TimestampedMessage, logger *slog.Logger) {
	resp, err := api.ParsePairsResponse(msg.Data)
	if err != nil {
		// One bad frame does not end the stream.
		logger.Warn("failed to parse stream message", "error", err)
		c.sink.Push(Event{
			Pair:       pair,
			Err:        fmt.Errorf("%w: %w", ErrMalformedPayload, err),
			ReceivedAt: msg.ReceivedAt,
		})
		return
	}
	c.sink.Push(Event{Pair: pair, Payload: resp, ReceivedAt: msg.ReceivedAt})
}

// forget drops bookkeeping for a pair that gave up, unless it was already
// replaced by a newer StartPair.
func (c *StreamConnector) forget(key model.PairKey, state *streamState) {
	c.mu.Lock()
	if c.pairs[key] == state {
		delete(c.pairs, key)
	}
	c.mu.Unlock()
	state.cancel()
}

func (c *StreamConnector) pairURL(pair model.PairIdentity) string {
	return strings.TrimRight(c.cfg.StreamURL, "/") + "/" + url.PathEscape(pair.Chain) + "/" + url.PathEscape(pair.Address)
}
