package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/rickgao/pairstream/internal/feed"
	"github.com/rickgao/pairstream/internal/model"
)

// eventLoop consumes the queue until it is closed and drained.
func (p *Pipeline) eventLoop() {
	defer p.wg.Done()

	for {
		ev, ok := p.Queue.Pop()
		if !ok {
			return
		}
		p.safeHandle(ev)
		p.Metrics.QueueDepth.Set(float64(p.Queue.Len()))
	}
}

// safeHandle turns a panic into a fatal signal so main can still run the
// final flush.
func (p *Pipeline) safeHandle(ev feed.Event) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic handling event",
				"pair", ev.Pair.Key(),
				"panic", r,
				"stack", string(debug.Stack()),
			)
			p.signalFatal(fmt.Errorf("panic handling event for %s: %v", ev.Pair.Key(), r))
		}
	}()
	p.handle(ev)
}

func (p *Pipeline) handle(ev feed.Event) {
	// Events still queued for a removed or stopped pair are dropped.
	if e, ok := p.Registry.Get(ev.Pair.Key()); !ok || !e.Monitored {
		p.logger.Debug("event for unmonitored pair dropped", "pair", ev.Pair.Key())
		return
	}
	if ev.Err != nil {
		p.handleError(ev)
		return
	}
	p.handleUpdate(ev)
}

func (p *Pipeline) handleError(ev feed.Event) {
	key := ev.Pair.Key()
	class := errorClass(ev.Err)
	p.Metrics.FetchErrors.WithLabelValues(class).Inc()

	if ev.Attempt > 0 {
		p.Metrics.Reconnects.Inc()
	}

	if ev.Fatal {
		p.Metrics.FatalPairs.Inc()
		p.Registry.SetMonitored(key, false, ev.Err.Error())
		p.Metrics.MonitoredPairs.Set(float64(p.Registry.MonitoredCount()))
		p.logger.Error("pair stopped", "pair", key, "error", ev.Err)
		return
	}

	p.logger.Warn("feed error",
		"pair", key,
		"class", class,
		"attempt", ev.Attempt,
		"error", ev.Err,
	)
}

func (p *Pipeline) handleUpdate(ev feed.Event) {
	key := ev.Pair.Key()
	p.Metrics.UpdatesReceived.Inc()

	if ev.Payload != nil && len(ev.Payload.Pairs) == 0 {
		p.logger.Warn("provider returned no results", "pair", key)
	}

	record := p.Normalizer.Normalize(ev.Pair, ev.Payload)
	if record == nil {
		p.Metrics.NormalizeDropped.Inc()
		p.logger.Debug("update without usable price", "pair", key)
		return
	}

	decision := p.Gate.Decide(key, record)
	p.Metrics.GateDecisions.WithLabelValues(decision.String()).Inc()
	if !decision.Accepted() {
		p.logger.Debug("update suppressed", "pair", key, "reason", decision)
		return
	}

	if err := p.Publisher.Enqueue(ev.Pair, record); err != nil {
		p.Metrics.EnqueueErrors.Inc()
		p.logger.Error("enqueue failed", "pair", key, "error", err)
		return
	}
	p.Registry.RecordAccepted(key)

	obs := model.ObservationFromRecord(key, record)
	p.logger.Info("price accepted",
		"pair", key,
		"label", record.Pair,
		"price_usd", obs.PriceUSD,
		"reason", decision,
	)

	p.record(obs)
}

// record hands obs to the sinks without holding up the event loop.
func (p *Pipeline) record(obs model.Observation) {
	if p.Sink == nil {
		return
	}

	p.sinkMu.Lock()
	defer p.sinkMu.Unlock()
	if p.sinkClosed {
		return
	}
	p.sinkWG.Add(1)
	go func() {
		defer p.sinkWG.Done()
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("panic in sink", "pair", obs.PairKey, "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.SinkTimeout)
		defer cancel()
		if err := p.Sink.Record(ctx, obs); err != nil {
			p.Metrics.SinkErrors.Inc()
		}
	}()
}

func errorClass(err error) string {
	switch {
	case errors.Is(err, feed.ErrReconnectLimitExceeded):
		return "reconnect_limit"
	case errors.Is(err, feed.ErrMalformedPayload):
		return "malformed"
	default:
		return "transient"
	}
}
