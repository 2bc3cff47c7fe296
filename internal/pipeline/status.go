package pipeline

import (
	"context"
	"time"

	"github.com/rickgao/pairstream/internal/feed"
	"github.com/rickgao/pairstream/internal/metrics"
	"github.com/rickgao/pairstream/internal/model"
)

// statusLoop logs connector and publisher health every StatusInterval.
func (p *Pipeline) statusLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.reportStatus()
		}
	}
}

func (p *Pipeline) reportStatus() {
	connected := 0
	for _, s := range p.Connector.Status() {
		if s.Connected {
			connected++
		}
	}
	total := p.Registry.Len()
	pending := p.Publisher.PendingCount()

	p.Metrics.ConnectedPairs.Set(float64(connected))
	p.Metrics.PendingEntries.Set(float64(pending))
	p.Metrics.QueueDepth.Set(float64(p.Queue.Len()))

	p.logger.Info("pipeline status",
		"connected", connected,
		"total", total,
		"pending", pending,
		"queued", p.Queue.Len(),
	)
}

// Health implements metrics.Reporter.
func (p *Pipeline) Health(_ context.Context) metrics.Health {
	statuses := p.Connector.Status()
	connected := 0
	for _, s := range statuses {
		if s.Connected {
			connected++
		}
	}
	pub := p.Publisher.Stats()

	h := metrics.Health{
		Status:         metrics.StatusHealthy,
		ConnectedPairs: connected,
		TotalPairs:     p.Registry.Len(),
		Pending:        pub.Pending,
		Components: map[string]any{
			"publisher": map[string]any{
				"flushes":              pub.Flushes,
				"failures":             pub.Failures,
				"consecutive_failures": pub.ConsecutiveFailures,
				"last_tx_id":           pub.LastTxID,
			},
			"queue": p.Queue.Stats(),
		},
	}

	switch {
	case h.TotalPairs > 0 && connected == 0:
		h.Status = metrics.StatusUnhealthy
	case connected < h.TotalPairs, pub.ConsecutiveFailures > 0:
		h.Status = metrics.StatusDegraded
	}
	return h
}

// Status implements metrics.Reporter.
func (p *Pipeline) Status() any {
	return p.PairViews()
}

// PairViews merges registry and connector state per pair.
func (p *Pipeline) PairViews() []PairView {
	live := make(map[model.PairKey]feed.PairStatus)
	for _, s := range p.Connector.Status() {
		live[s.Key] = s
	}

	entries := p.Registry.All()
	views := make([]PairView, 0, len(entries))
	for _, e := range entries {
		key := e.Pair.Key()
		s := live[key]
		views = append(views, PairView{
			Key:               key,
			Symbol:            e.Pair.Symbol,
			Monitored:         e.Monitored,
			Connected:         s.Connected,
			ReconnectAttempts: s.ReconnectAttempts,
			Accepted:          e.Accepted,
			LastAccepted:      optionalTime(e.LastAccepted),
			StopReason:        e.StopReason,
		})
	}
	return views
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
