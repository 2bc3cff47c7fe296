package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rickgao/pairstream/internal/dedup"
	"github.com/rickgao/pairstream/internal/feed"
	"github.com/rickgao/pairstream/internal/metrics"
	"github.com/rickgao/pairstream/internal/model"
	"github.com/rickgao/pairstream/internal/normalize"
	"github.com/rickgao/pairstream/internal/pairs"
	"github.com/rickgao/pairstream/internal/queue"
	"github.com/rickgao/pairstream/internal/sink"
)

// Deps are the components a Pipeline drives. Sink and Metrics may be nil.
type Deps struct {
	Queue      *queue.Queue[feed.Event]
	Connector  feed.Connector
	Normalizer *normalize.Normalizer
	Gate       *dedup.Gate
	Publisher  Publisher
	Sink       sink.Sink
	Registry   *pairs.Registry
	Metrics    *metrics.Metrics
}

// Pipeline runs the ingest, dedup and publish flow for every pair.
type Pipeline struct {
	cfg Config
	Deps
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// sinkMu orders sinkWG.Add against the final Wait in stop.
	sinkMu     sync.Mutex
	sinkClosed bool
	sinkWG     sync.WaitGroup

	fatal     chan error
	fatalOnce sync.Once
	stopOnce  sync.Once
	stopErr   error
}

// New creates a Pipeline. The connector must push to deps.Queue.
func New(cfg Config, deps Deps, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = defaults.StatusInterval
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = defaults.SinkTimeout
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New("")
	}
	if deps.Registry == nil {
		deps.Registry = pairs.NewRegistry()
	}
	return &Pipeline{
		cfg:    cfg,
		Deps:   deps,
		logger: logger,
		fatal:  make(chan error, 1),
	}
}

// Start starts every registered pair, the event loop and the status
// reporter.
func (p *Pipeline) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(2)
	go p.eventLoop()
	go p.statusLoop()

	for _, pair := range p.Registry.Pairs() {
		p.startPair(pair)
	}

	p.logger.Info("pipeline started",
		"pairs", p.Registry.Len(),
		"status_interval", p.cfg.StatusInterval,
	)
	return nil
}

// Fatal delivers at most one error that should bring the process down
// gracefully.
func (p *Pipeline) Fatal() <-chan error {
	return p.fatal
}

// AddPair starts monitoring a pair. A pair that was stopped after a fatal
// error is restarted.
func (p *Pipeline) AddPair(pair model.PairIdentity) error {
	key := pair.Key()
	if !p.Registry.Add(pair) {
		if e, _ := p.Registry.Get(key); e.Monitored {
			return fmt.Errorf("%w: %s", ErrPairExists, key)
		}
	}
	p.startPair(pair)
	return nil
}

// RemovePair stops monitoring a pair and forgets its gate state.
func (p *Pipeline) RemovePair(key model.PairKey) error {
	if _, ok := p.Registry.Get(key); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPair, key)
	}
	p.Connector.StopPair(key)
	p.Gate.Reset(key)
	p.Registry.Remove(key)
	p.Metrics.MonitoredPairs.Set(float64(p.Registry.MonitoredCount()))

	p.logger.Info("pair removed", "pair", key)
	return nil
}

// Stop shuts the pipeline down: connectors first, then the queued events,
// then a final flush bounded by ctx.
func (p *Pipeline) Stop(ctx context.Context) error {
	p.stopOnce.Do(func() {
		p.stopErr = p.stop(ctx)
	})
	return p.stopErr
}

func (p *Pipeline) stop(ctx context.Context) error {
	p.logger.Info("stopping pipeline")

	p.Connector.StopAll()
	p.Queue.Close()
	if p.cancel != nil {
		p.cancel()
	}

	if err := waitGroup(ctx, &p.wg); err != nil {
		p.logger.Warn("event loop did not drain in time", "queued", p.Queue.Len())
	}
	p.sinkMu.Lock()
	p.sinkClosed = true
	p.sinkMu.Unlock()
	if err := waitGroup(ctx, &p.sinkWG); err != nil {
		p.logger.Warn("sink deliveries still running")
	}

	err := p.Publisher.Shutdown(ctx)
	if err != nil {
		p.logger.Error("final flush incomplete", "error", err)
	}

	if p.Sink != nil {
		if cerr := p.Sink.Close(); cerr != nil {
			p.logger.Warn("close sinks", "error", cerr)
		}
	}

	p.reportStatus()
	p.logger.Info("pipeline stopped")
	return err
}

func (p *Pipeline) startPair(pair model.PairIdentity) {
	p.Connector.StartPair(pair)
	p.Registry.SetMonitored(pair.Key(), true, "")
	p.Metrics.MonitoredPairs.Set(float64(p.Registry.MonitoredCount()))
}

func (p *Pipeline) signalFatal(err error) {
	p.fatalOnce.Do(func() {
		p.fatal <- err
	})
}

func waitGroup(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
