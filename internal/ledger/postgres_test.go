package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rickgao/pairstream/internal/auth"
)

func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("pairstream_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

func TestPostgresLedger_WriteAndUpsert(t *testing.T) {
	pool := setupPostgres(t)
	ctx := context.Background()

	signer, err := auth.LoadSigner(testKey)
	require.NoError(t, err)

	l := NewPostgresLedger(pool, signer, nil)
	require.NoError(t, l.Migrate(ctx))
	// Idempotent
	require.NoError(t, l.Migrate(ctx))

	a := entry("ethereum:0xa", "v1")
	tx1, err := l.Write(ctx, []Entry{a, entry("ethereum:0xb", "b1")})
	require.NoError(t, err)
	assert.NotEmpty(t, tx1)

	data, ver, err := l.Record(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))
	assert.EqualValues(t, 1, ver)

	a.Data = []byte("v2")
	tx2, err := l.Write(ctx, []Entry{a})
	require.NoError(t, err)
	assert.NotEqual(t, tx1, tx2)

	data, ver, err = l.Record(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
	assert.EqualValues(t, 2, ver)

	var batches int
	require.NoError(t, pool.QueryRow(ctx, "SELECT count(*) FROM ledger_batches").Scan(&batches))
	assert.Equal(t, 2, batches)
}

func TestPostgresLedger_EmptyBatch(t *testing.T) {
	pool := setupPostgres(t)
	l := NewPostgresLedger(pool, nil, nil)
	require.NoError(t, l.Migrate(context.Background()))

	_, err := l.Write(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)
}
