package publisher

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/pairstream/internal/codec"
	"github.com/rickgao/pairstream/internal/ledger"
	"github.com/rickgao/pairstream/internal/model"
)

var testSchema = common.HexToHash("0xabc")

var (
	pairA = model.PairIdentity{Chain: "ethereum", Address: "0xa", Symbol: "A/USD"}
	pairB = model.PairIdentity{Chain: "ethereum", Address: "0xb", Symbol: "B/USD"}
)

func record(pair model.PairIdentity, price float64) *model.PriceRecord {
	return &model.PriceRecord{
		Timestamp:    1700000000,
		Pair:         pair.Symbol,
		Chain:        pair.Chain,
		PriceUSD:     model.ToFixedPoint(price),
		LiquidityUSD: big.NewInt(0),
		Volume24hUSD: big.NewInt(0),
	}
}

func testConfig() Config {
	return Config{
		BatchSize:    10,
		BatchTimeout: time.Hour,
		WriteTimeout: time.Second,
		Retry:        RetryPolicy{Delay: time.Hour, Multiplier: 1},
	}
}

func storedPrice(t *testing.T, l *ledger.MemoryLedger, pair model.PairIdentity) float64 {
	t.Helper()
	data, ok := l.Get(testSchema, pair.Key().Hash())
	require.True(t, ok, "no record for %s", pair.Key())
	rec, err := codec.Decode(data)
	require.NoError(t, err)
	return model.FromFixedPoint(rec.PriceUSD)
}

func TestEnqueue_CollapsesSamePair(t *testing.T) {
	l := ledger.NewMemoryLedger(nil)
	p := New(testConfig(), testSchema, l)

	require.NoError(t, p.Enqueue(pairA, record(pairA, 100)))
	require.NoError(t, p.Enqueue(pairA, record(pairA, 101)))
	assert.Equal(t, 1, p.PendingCount())

	require.NoError(t, p.Flush(context.Background()))

	batches := l.Batches()
	require.Len(t, batches, 1)
	require.Len(t, batches[0].Entries, 1)
	assert.Equal(t, 101.0, storedPrice(t, l, pairA))
	assert.Equal(t, 0, p.PendingCount())
}

func TestEnqueue_EncodeError(t *testing.T) {
	p := New(testConfig(), testSchema, ledger.NewMemoryLedger(nil))

	err := p.Enqueue(pairA, nil)
	assert.ErrorIs(t, err, codec.ErrNilRecord)
	assert.Equal(t, 0, p.PendingCount())
}

func TestEnqueue_SizeTriggersFlush(t *testing.T) {
	l := ledger.NewMemoryLedger(nil)
	cfg := testConfig()
	cfg.BatchSize = 2
	p := New(cfg, testSchema, l)

	require.NoError(t, p.Enqueue(pairA, record(pairA, 1)))
	assert.Empty(t, l.Batches())
	require.NoError(t, p.Enqueue(pairB, record(pairB, 2)))

	require.Eventually(t, func() bool { return len(l.Batches()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Len(t, l.Batches()[0].Entries, 2)
	assert.Equal(t, 0, p.PendingCount())
}

func TestEnqueue_TimerTriggersFlush(t *testing.T) {
	l := ledger.NewMemoryLedger(nil)
	cfg := testConfig()
	cfg.BatchTimeout = 20 * time.Millisecond
	p := New(cfg, testSchema, l)

	require.NoError(t, p.Enqueue(pairA, record(pairA, 1)))

	require.Eventually(t, func() bool { return len(l.Batches()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(1), p.Stats().EntriesWritten)
}

func TestFlush_Empty(t *testing.T) {
	l := ledger.NewMemoryLedger(nil)
	p := New(testConfig(), testSchema, l)

	require.NoError(t, p.Flush(context.Background()))
	assert.Empty(t, l.Batches())
}

func TestFlush_FailureRequeuesAndRetries(t *testing.T) {
	l := ledger.NewMemoryLedger(nil)
	cfg := testConfig()
	cfg.Retry = RetryPolicy{Delay: 20 * time.Millisecond, Multiplier: 1}
	p := New(cfg, testSchema, l)

	boom := errors.New("ledger unavailable")
	l.FailNext(boom)

	require.NoError(t, p.Enqueue(pairA, record(pairA, 1)))
	require.NoError(t, p.Enqueue(pairB, record(pairB, 2)))

	err := p.Flush(context.Background())
	require.ErrorIs(t, err, ErrLedgerWrite)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, p.PendingCount())

	require.Eventually(t, func() bool { return len(l.Batches()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Len(t, l.Batches()[0].Entries, 2)

	s := p.Stats()
	assert.Equal(t, int64(1), s.Failures)
	assert.Equal(t, int64(1), s.Flushes)
	assert.Equal(t, 0, s.ConsecutiveFailures)
	assert.NotEmpty(t, s.LastTxID)
}

func TestFlush_RetryLimit(t *testing.T) {
	l := ledger.NewMemoryLedger(nil)
	cfg := testConfig()
	cfg.Retry = RetryPolicy{Delay: 10 * time.Millisecond, MaxAttempts: 1, Multiplier: 1}
	p := New(cfg, testSchema, l)

	l.FailNext(errors.New("e1"), errors.New("e2"))

	require.NoError(t, p.Enqueue(pairA, record(pairA, 1)))
	require.Error(t, p.Flush(context.Background()))

	require.Eventually(t, func() bool { return p.Stats().Failures == 2 }, time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(2), p.Stats().Failures)
	assert.Empty(t, l.Batches())
	assert.Equal(t, 1, p.PendingCount())

	// A later flush still delivers.
	require.NoError(t, p.Flush(context.Background()))
	assert.Len(t, l.Batches(), 1)
}

// gatedWriter blocks every Write until release is closed.
type gatedWriter struct {
	entered chan struct{}
	release chan struct{}
	err     error

	mu      sync.Mutex
	written [][]ledger.Entry
}

func newGatedWriter(err error) *gatedWriter {
	return &gatedWriter{entered: make(chan struct{}, 1), release: make(chan struct{}), err: err}
}

func (w *gatedWriter) Write(ctx context.Context, entries []ledger.Entry) (string, error) {
	w.entered <- struct{}{}
	select {
	case <-w.release:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	if w.err != nil {
		return "", w.err
	}
	w.mu.Lock()
	w.written = append(w.written, entries)
	w.mu.Unlock()
	return "tx", nil
}

func (w *gatedWriter) Close() error { return nil }

func TestFlush_FailureKeepsNewerPending(t *testing.T) {
	w := newGatedWriter(errors.New("down"))
	p := New(testConfig(), testSchema, w)

	require.NoError(t, p.Enqueue(pairA, record(pairA, 1)))
	require.NoError(t, p.Enqueue(pairB, record(pairB, 2)))

	done := make(chan error, 1)
	go func() { done <- p.Flush(context.Background()) }()
	<-w.entered

	// Second flush while one is in flight is a no-op.
	require.NoError(t, p.Flush(context.Background()))

	require.NoError(t, p.Enqueue(pairA, record(pairA, 5)))
	close(w.release)
	require.ErrorIs(t, <-done, ErrLedgerWrite)

	p.mu.Lock()
	defer p.mu.Unlock()
	require.Len(t, p.pending, 2)

	rec, err := codec.Decode(p.pending[pairA.Key()].Data)
	require.NoError(t, err)
	assert.Equal(t, 5.0, model.FromFixedPoint(rec.PriceUSD))
}

func TestFlush_PendingDuringWriteIsRearmed(t *testing.T) {
	w := newGatedWriter(nil)
	cfg := testConfig()
	cfg.BatchTimeout = 20 * time.Millisecond
	p := New(cfg, testSchema, w)

	require.NoError(t, p.Enqueue(pairA, record(pairA, 1)))

	done := make(chan error, 1)
	go func() { done <- p.Flush(context.Background()) }()
	<-w.entered

	require.NoError(t, p.Enqueue(pairB, record(pairB, 2)))
	close(w.release)
	require.NoError(t, <-done)

	require.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return len(w.written) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestShutdown_FlushesPending(t *testing.T) {
	l := ledger.NewMemoryLedger(nil)
	p := New(testConfig(), testSchema, l)

	require.NoError(t, p.Enqueue(pairA, record(pairA, 1)))
	require.NoError(t, p.Shutdown(context.Background()))

	assert.Len(t, l.Batches(), 1)
	assert.ErrorIs(t, p.Enqueue(pairB, record(pairB, 2)), ErrClosed)
}

func TestShutdown_RetriesUntilSuccess(t *testing.T) {
	l := ledger.NewMemoryLedger(nil)
	cfg := testConfig()
	cfg.Retry = RetryPolicy{Delay: 5 * time.Millisecond, Multiplier: 1}
	p := New(cfg, testSchema, l)

	l.FailNext(errors.New("e1"), errors.New("e2"))
	require.NoError(t, p.Enqueue(pairA, record(pairA, 1)))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))
	assert.Len(t, l.Batches(), 1)
}

func TestShutdown_DeadlineExceeded(t *testing.T) {
	l := ledger.NewMemoryLedger(nil)
	cfg := testConfig()
	cfg.Retry = RetryPolicy{Delay: 5 * time.Millisecond, Multiplier: 1}
	p := New(cfg, testSchema, l)

	errs := make([]error, 1000)
	for i := range errs {
		errs[i] = errors.New("down")
	}
	l.FailNext(errs...)

	require.NoError(t, p.Enqueue(pairA, record(pairA, 1)))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := p.Shutdown(ctx)
	require.ErrorIs(t, err, ErrShutdownIncomplete)
	assert.Contains(t, err.Error(), "1 entries pending")
}

func TestFlushHook(t *testing.T) {
	l := ledger.NewMemoryLedger(nil)

	var mu sync.Mutex
	var results []FlushResult
	p := New(testConfig(), testSchema, l, WithFlushHook(func(r FlushResult) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}))

	l.FailNext(errors.New("down"))
	require.NoError(t, p.Enqueue(pairA, record(pairA, 1)))
	require.Error(t, p.Flush(context.Background()))
	require.NoError(t, p.Flush(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, 1, results[1].Entries)
	assert.NotEmpty(t, results[1].TxID)
}

func TestRetryPolicy_Next(t *testing.T) {
	tests := []struct {
		name     string
		policy   RetryPolicy
		failures int
		want     time.Duration
		ok       bool
	}{
		{"constant", RetryPolicy{Delay: 5 * time.Second, Multiplier: 1}, 3, 5 * time.Second, true},
		{"unlimited", RetryPolicy{Delay: time.Second}, 1000, time.Second, true},
		{"exponential", RetryPolicy{Delay: time.Second, Multiplier: 2}, 3, 4 * time.Second, true},
		{"capped", RetryPolicy{Delay: time.Second, Multiplier: 2, MaxDelay: 3 * time.Second}, 5, 3 * time.Second, true},
		{"within limit", RetryPolicy{Delay: time.Second, MaxAttempts: 2}, 2, time.Second, true},
		{"limit reached", RetryPolicy{Delay: time.Second, MaxAttempts: 2}, 3, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.policy.Next(tt.failures)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
