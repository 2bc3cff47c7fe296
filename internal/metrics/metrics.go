package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rickgao/pairstream/internal/version"
)

// Metrics holds all pipeline metrics.
type Metrics struct {
	registry *prometheus.Registry

	// Ingestion
	UpdatesReceived  prometheus.Counter
	NormalizeDropped prometheus.Counter
	GateDecisions    *prometheus.CounterVec
	FetchErrors      *prometheus.CounterVec
	Reconnects       prometheus.Counter
	FatalPairs       prometheus.Counter
	QueueDepth       prometheus.Gauge
	ConnectedPairs   prometheus.Gauge
	MonitoredPairs   prometheus.Gauge

	// Publishing
	Flushes        *prometheus.CounterVec
	EntriesWritten prometheus.Counter
	FlushDuration  prometheus.Histogram
	PendingEntries prometheus.Gauge
	EnqueueErrors  prometheus.Counter

	// Sinks
	SinkErrors prometheus.Counter
}

// New creates metrics registered on a fresh registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pairstream"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	buildInfo := f.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Build information",
	}, []string{"version", "commit"})
	buildInfo.WithLabelValues(version.Version, version.Commit).Set(1)

	return &Metrics{
		registry: reg,

		UpdatesReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "updates_received_total",
			Help:      "Provider payloads received",
		}),
		NormalizeDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "normalize_dropped_total",
			Help:      "Payloads without a usable price",
		}),
		GateDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dedup",
			Name:      "decisions_total",
			Help:      "Gate decisions by outcome",
		}, []string{"decision"}),
		FetchErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "errors_total",
			Help:      "Connector errors by class",
		}, []string{"class"}),
		Reconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Scheduled stream reconnects",
		}),
		FatalPairs: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "fatal_pairs_total",
			Help:      "Pairs given up on after exhausting reconnects",
		}),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "queue_depth",
			Help:      "Events waiting to be processed",
		}),
		ConnectedPairs: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "connected_pairs",
			Help:      "Pairs whose feed is currently healthy",
		}),
		MonitoredPairs: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "monitored_pairs",
			Help:      "Pairs with an active connector",
		}),

		Flushes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publisher",
			Name:      "flushes_total",
			Help:      "Ledger writes by result",
		}, []string{"result"}),
		EntriesWritten: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publisher",
			Name:      "entries_written_total",
			Help:      "Entries committed to the ledger",
		}),
		FlushDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "publisher",
			Name:      "flush_duration_seconds",
			Help:      "Ledger write latency",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		PendingEntries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "publisher",
			Name:      "pending_entries",
			Help:      "Entries waiting for the next flush",
		}),
		EnqueueErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publisher",
			Name:      "enqueue_errors_total",
			Help:      "Records rejected by the publisher",
		}),

		SinkErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "errors_total",
			Help:      "Failed observation deliveries",
		}),
	}
}

// Registry returns the registry metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveFlush records one ledger write attempt.
func (m *Metrics) ObserveFlush(entries int, d time.Duration, err error) {
	m.FlushDuration.Observe(d.Seconds())
	if err != nil {
		m.Flushes.WithLabelValues("failure").Inc()
		return
	}
	m.Flushes.WithLabelValues("success").Inc()
	m.EntriesWritten.Add(float64(entries))
}
