// Package connection implements a single push-feed WebSocket connection.
//
// A Client dials one URL, forwards every text frame on Messages() with a
// local receive timestamp, keeps the link alive with pings and reports the
// first read or staleness failure on Errors(). Reconnection is the caller's
// job; a Client is not reusable after Close.
package connection
