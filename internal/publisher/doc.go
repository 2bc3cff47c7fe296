// Package publisher accumulates accepted price records and commits them to
// the ledger in batches.
//
// Pending entries are keyed by pair, so a pair updated twice before a flush
// is written once with its latest value. A flush happens when the batch
// reaches BatchSize or BatchTimeout after the first pending entry, whichever
// comes first. At most one ledger write is in flight at a time. A failed
// write puts its entries back (unless a newer value for the same pair has
// arrived meanwhile) and schedules a retry.
package publisher
