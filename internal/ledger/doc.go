// Package ledger implements the append-only record ledger the publisher
// writes to.
//
// Every Write call is one signed batch: the batch row and all of its records
// commit together, and each record overwrites the previous value stored under
// the same (schema id, record id). Record ids are derived from pair keys, so
// re-sending a batch is idempotent.
//
// Backends:
//   - postgres: pgx pool, one transaction per batch
//   - clickhouse: ReplacingMergeTree keyed by (schema_id, record_id)
//   - memory: in-process, for dry runs and tests
package ledger
