package metrics

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Health statuses.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Health is the /health response body.
type Health struct {
	Status         string         `json:"status"`
	ConnectedPairs int            `json:"connected_pairs"`
	TotalPairs     int            `json:"total_pairs"`
	Pending        int            `json:"pending"`
	Components     map[string]any `json:"components,omitempty"`
}

// Reporter supplies the operational state served over HTTP.
type Reporter interface {
	Health(ctx context.Context) Health
	Status() any
}

// Handler serves /health, /status and the metrics endpoint at path.
func Handler(m *Metrics, r Reporter, path string, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()

	mux.Handle(path, promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))

	mux.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
		defer cancel()

		health := r.Health(ctx)

		w.Header().Set("Content-Type", "application/json")
		if health.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(health); err != nil {
			logger.Warn("encode health response", "error", err)
		}
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(r.Status()); err != nil {
			logger.Warn("encode status response", "error", err)
		}
	})

	return mux
}
