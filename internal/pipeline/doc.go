// Package pipeline wires connectors, normalization, the dedup gate, the
// batch publisher and the observation sinks together and owns their
// lifecycle.
//
// Connectors push events onto one FIFO queue. A single goroutine consumes
// it, so the normalize, gate and enqueue steps for an update run to
// completion before the next update is looked at, and updates for a pair
// are handled in arrival order.
//
// Startup:
//  1. Every configured pair is started on the connector
//  2. The event loop and the status reporter start
//
// Shutdown:
//  1. Connectors stop and the queue is drained
//  2. The publisher flushes what is pending
//  3. Sinks are closed
package pipeline
