// Package pairs tracks the configured trading pairs and whether each one
// currently has a running connector.
//
// The registry is in memory only; the configured list is reloaded from
// config on every start.
package pairs
