// Package sink delivers accepted price observations to downstream consumers
// (digest builders, notifiers, dashboards).
//
// Delivery is best effort: the pipeline never waits on a sink to accept the
// next update, and a failing sink is logged rather than retried.
//
// Implementations:
//   - NATS: JSON observation per pair on <prefix>.<chain>.<address>
//   - Redis: latest observation per pair, hash plus TTL key
//   - Fanout: records to every configured sink
package sink
