// Package metrics provides Prometheus metrics and the operational HTTP
// surface (/metrics, /health, /status).
//
// Key metrics:
//   - Updates received, normalization drops and gate decisions
//   - Fetch errors by class, reconnects and pairs given up on
//   - Ledger flushes, entries written, flush latency and pending entries
//   - Connected pairs and event queue depth
//
// Metrics live on a private registry so tests can create as many
// instances as they need.
package metrics
