package feed

import (
	"context"
	"errors"
	"time"

	"github.com/rickgao/pairstream/internal/api"
	"github.com/rickgao/pairstream/internal/model"
)

// Errors carried on Event.Err. Match with errors.Is.
var (
	ErrTransientFetch         = errors.New("transient fetch error")
	ErrMalformedPayload       = errors.New("malformed payload")
	ErrReconnectLimitExceeded = errors.New("reconnect limit exceeded")
)

// Strategy names.
const (
	StrategyPoll   = "poll"
	StrategyStream = "stream"
)

// Event is one connector output: either a payload or a classified error.
type Event struct {
	Pair       model.PairIdentity
	Payload    *api.PairsResponse // nil for error events
	Err        error
	Fatal      bool // pair is no longer monitored
	Attempt    int  // reconnect attempt scheduled after this error, 0 if none
	ReceivedAt time.Time
}

// EventSink receives connector events. Push must not block.
type EventSink interface {
	Push(Event) bool
}

// PairStatus is a snapshot of one monitored pair.
type PairStatus struct {
	Key               model.PairKey
	Connected         bool
	ReconnectAttempts int
}

// Connector manages per-pair live feeds.
type Connector interface {
	// StartPair begins monitoring. Starting a monitored pair is a no-op.
	StartPair(pair model.PairIdentity)

	// StopPair stops monitoring and cancels pending reconnects. Unknown keys are ignored.
	StopPair(key model.PairKey)

	// StopAll stops every pair and waits for their goroutines to exit.
	StopAll()

	// Status returns a snapshot for every monitored pair.
	Status() []PairStatus
}

// PairFetcher is the REST lookup the poll strategy depends on.
type PairFetcher interface {
	GetPair(ctx context.Context, chain, address string) (*api.PairsResponse, error)
}

// Config holds connector settings shared by both strategies.
type Config struct {
	PollInterval         time.Duration // poll: fetch interval (default: 10s)
	RequestTimeout       time.Duration // poll: per-request timeout (default: 10s)
	StreamURL            string        // stream: base URL, pair path appended
	ReconnectBaseDelay   time.Duration // stream: backoff base (default: 5s)
	ReconnectMaxDelay    time.Duration // stream: backoff ceiling, 0 = uncapped
	MaxReconnectAttempts int           // stream: consecutive reconnects before giving up (default: 10)
	PingInterval         time.Duration // stream: keepalive interval
	PingTimeout          time.Duration // stream: staleness timeout
	UserAgent            string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:         10 * time.Second,
		RequestTimeout:       10 * time.Second,
		ReconnectBaseDelay:   5 * time.Second,
		MaxReconnectAttempts: 10,
		PingInterval:         30 * time.Second,
		PingTimeout:          90 * time.Second,
	}
}
