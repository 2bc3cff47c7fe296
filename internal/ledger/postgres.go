package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger stores batches in Postgres, one transaction per batch.
type PostgresLedger struct {
	pool   *pgxpool.Pool
	signer Signer
	logger *slog.Logger
}

// NewPostgresLedger creates a ledger on an existing pool.
func NewPostgresLedger(pool *pgxpool.Pool, signer Signer, logger *slog.Logger) *PostgresLedger {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresLedger{pool: pool, signer: signer, logger: logger}
}

// Migrate creates the ledger tables if they do not exist.
func (l *PostgresLedger) Migrate(ctx context.Context) error {
	return applyMigrations(ctx, PostgresMigrations, "migrations/postgres", func(ctx context.Context, sql string) error {
		_, err := l.pool.Exec(ctx, sql)
		return err
	})
}

// Write commits entries as one signed batch and returns its tx id.
func (l *PostgresLedger) Write(ctx context.Context, entries []Entry) (string, error) {
	batch, err := Seal(l.signer, entries, time.Now())
	if err != nil {
		return "", err
	}

	start := time.Now()

	err = pgx.BeginFunc(ctx, l.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO ledger_batches (tx_id, publisher, digest, signature, entry_count, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, batch.TxID, batch.Publisher.Bytes(), batch.Digest.Bytes(), batch.Signature, len(entries), batch.CreatedAt); err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}

		b := &pgx.Batch{}
		for _, e := range entries {
			b.Queue(`
				INSERT INTO stream_records (schema_id, record_id, pair_key, data, tx_id, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (schema_id, record_id) DO UPDATE
				SET data = EXCLUDED.data,
				    pair_key = EXCLUDED.pair_key,
				    tx_id = EXCLUDED.tx_id,
				    version = stream_records.version + 1,
				    updated_at = EXCLUDED.updated_at
			`, e.SchemaID.Bytes(), e.ID.Bytes(), string(e.Key), e.Data, batch.TxID, batch.CreatedAt)
		}

		results := tx.SendBatch(ctx, b)
		for range entries {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("upsert record: %w", err)
			}
		}
		return results.Close()
	})
	if err != nil {
		return "", err
	}

	l.logger.Debug("ledger batch committed",
		"tx_id", batch.TxID,
		"entries", len(entries),
		"duration", time.Since(start),
	)
	return batch.TxID, nil
}

// Record returns the stored payload and version for a record.
func (l *PostgresLedger) Record(ctx context.Context, e Entry) (data []byte, version int64, err error) {
	err = l.pool.QueryRow(ctx, `
		SELECT data, version FROM stream_records WHERE schema_id = $1 AND record_id = $2
	`, e.SchemaID.Bytes(), e.ID.Bytes()).Scan(&data, &version)
	if err != nil {
		return nil, 0, err
	}
	return data, version, nil
}

// Close is a no-op; the pool is owned by the caller.
func (l *PostgresLedger) Close() error {
	return nil
}
