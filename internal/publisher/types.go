package publisher

import (
	"errors"
	"math"
	"time"
)

// Errors
var (
	ErrLedgerWrite        = errors.New("ledger write failed")
	ErrShutdownIncomplete = errors.New("shutdown incomplete")
	ErrClosed             = errors.New("publisher closed")
)

// Config holds batching settings.
type Config struct {
	BatchSize    int
	BatchTimeout time.Duration
	WriteTimeout time.Duration
	Retry        RetryPolicy
}

// DefaultConfig returns the default batching settings.
func DefaultConfig() Config {
	return Config{
		BatchSize:    10,
		BatchTimeout: 5 * time.Second,
		WriteTimeout: 30 * time.Second,
		Retry:        DefaultRetryPolicy(),
	}
}

// RetryPolicy controls the re-flush after a failed write.
type RetryPolicy struct {
	Delay       time.Duration
	MaxAttempts int     // 0 = unlimited
	Multiplier  float64 // < 1 treated as 1
	MaxDelay    time.Duration
}

// DefaultRetryPolicy retries every 5s forever.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Delay: 5 * time.Second, Multiplier: 1}
}

// Next returns the delay before the retry following the given number of
// consecutive failures, and false once MaxAttempts retries have been used.
func (r RetryPolicy) Next(failures int) (time.Duration, bool) {
	if r.MaxAttempts > 0 && failures > r.MaxAttempts {
		return 0, false
	}
	return r.backoff(failures), true
}

func (r RetryPolicy) backoff(failures int) time.Duration {
	mult := r.Multiplier
	if mult < 1 {
		mult = 1
	}
	if failures < 1 {
		failures = 1
	}

	d := float64(r.Delay) * math.Pow(mult, float64(failures-1))
	if r.MaxDelay > 0 && d > float64(r.MaxDelay) {
		return r.MaxDelay
	}
	if d > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// Stats holds publisher counters.
type Stats struct {
	Pending             int
	Flushes             int64
	Failures            int64
	ConsecutiveFailures int
	EntriesWritten      int64
	LastTxID            string
	LastFlush           time.Time
}

// FlushResult describes one completed ledger write attempt.
type FlushResult struct {
	Entries  int
	TxID     string
	Err      error
	Duration time.Duration
}
