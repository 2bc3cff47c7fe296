// Package feed implements the per-pair market data connectors.
//
// Two strategies share the Connector interface:
//   - poll: fetch the pair over REST immediately and then on a fixed interval
//   - stream: hold a WebSocket per pair, reconnecting with exponential backoff
//
// Connectors never return errors to their callers. Every payload and every
// classified failure is pushed as an Event onto the EventSink handed to the
// constructor, so one consumer sees all pairs in arrival order.
package feed
