package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rickgao/pairstream/internal/model"
	"github.com/rickgao/pairstream/internal/publisher"
)

// Errors
var (
	ErrPairExists  = errors.New("pair already monitored")
	ErrUnknownPair = errors.New("unknown pair")
)

// Config holds orchestrator settings.
type Config struct {
	StatusInterval time.Duration // status log interval (default: 60s)
	SinkTimeout    time.Duration // per-observation sink deadline (default: 5s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		StatusInterval: 60 * time.Second,
		SinkTimeout:    5 * time.Second,
	}
}

// Publisher is the batching stage accepted records go to.
type Publisher interface {
	Enqueue(pair model.PairIdentity, record *model.PriceRecord) error
	PendingCount() int
	Stats() publisher.Stats
	Shutdown(ctx context.Context) error
}

// PairView is the per-pair status served on /status.
type PairView struct {
	Key               model.PairKey `json:"key"`
	Symbol            string        `json:"symbol"`
	Monitored         bool          `json:"monitored"`
	Connected         bool          `json:"connected"`
	ReconnectAttempts int           `json:"reconnect_attempts"`
	Accepted          int64         `json:"accepted"`
	LastAccepted      *time.Time    `json:"last_accepted,omitempty"`
	StopReason        string        `json:"stop_reason,omitempty"`
}
