package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"

	"github.com/rickgao/pairstream/internal/version"
)

// OpenClickHouse opens and pings a native ClickHouse connection from a DSN.
func OpenClickHouse(ctx context.Context, dsn string) (driver.Conn, error) {
	opts, err := ch.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	if opts.Compression == nil {
		opts.Compression = &ch.Compression{Method: ch.CompressionLZ4}
	}
	opts.ClientInfo = ch.ClientInfo{
		Products: []struct{ Name, Version string }{
			{Name: "pairstream", Version: version.Version},
		},
	}

	conn, err := ch.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := conn.Ping(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}
	return conn, nil
}

// ClickHouseLedger stores batches in a ReplacingMergeTree table; the row
// with the highest version wins per record.
type ClickHouseLedger struct {
	conn   driver.Conn
	table  string
	signer Signer
	logger *slog.Logger
}

// NewClickHouseLedger creates a ledger writing to table.
func NewClickHouseLedger(conn driver.Conn, table string, signer Signer, logger *slog.Logger) *ClickHouseLedger {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClickHouseLedger{conn: conn, table: table, signer: signer, logger: logger}
}

// Migrate creates the ledger table if it does not exist.
func (l *ClickHouseLedger) Migrate(ctx context.Context) error {
	return applyMigrations(ctx, ClickHouseMigrations, "migrations/clickhouse", func(ctx context.Context, sql string) error {
		return l.conn.Exec(ctx, fmt.Sprintf(sql, l.table))
	})
}

// Write appends entries as one signed batch and returns its tx id.
func (l *ClickHouseLedger) Write(ctx context.Context, entries []Entry) (string, error) {
	batch, err := Seal(l.signer, entries, time.Now())
	if err != nil {
		return "", err
	}
	txID, err := uuid.Parse(batch.TxID)
	if err != nil {
		return "", fmt.Errorf("parse tx id: %w", err)
	}

	insert, err := l.conn.PrepareBatch(ctx, fmt.Sprintf(`
		INSERT INTO %s (schema_id, record_id, pair_key, data, tx_id, publisher, signature, version, updated_at)
	`, l.table))
	if err != nil {
		return "", fmt.Errorf("prepare batch: %w", err)
	}

	// Monotonic per write so later batches replace earlier rows.
	ver := uint64(batch.CreatedAt.UnixNano())
	for _, e := range entries {
		if err := insert.Append(
			string(e.SchemaID.Bytes()),
			string(e.ID.Bytes()),
			string(e.Key),
			string(e.Data),
			txID,
			string(batch.Publisher.Bytes()),
			string(batch.Signature),
			ver,
			batch.CreatedAt,
		); err != nil {
			insert.Abort()
			return "", fmt.Errorf("append record: %w", err)
		}
	}

	if err := insert.Send(); err != nil {
		return "", fmt.Errorf("send batch: %w", err)
	}

	l.logger.Debug("ledger batch committed", "tx_id", batch.TxID, "entries", len(entries))
	return batch.TxID, nil
}

// Close closes the ClickHouse connection.
func (l *ClickHouseLedger) Close() error {
	return l.conn.Close()
}
