// Package dedup implements the per-pair deduplication gate.
//
// A pair is Unseen until its first record, which is always accepted. After
// that a record is accepted only when at least MinUpdateInterval has passed
// since the last acceptance and the price moved by at least
// PriceChangeThreshold relative to the last accepted price. A cached price of
// zero counts as a full (100%) move.
package dedup
