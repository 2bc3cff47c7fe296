package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/rickgao/pairstream/internal/model"
)

// NATSConfig configures the NATS sink.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	ReconnectWait time.Duration
}

// NATSSink publishes observations as JSON.
type NATSSink struct {
	nc     *nats.Conn
	prefix string
	logger *slog.Logger
}

// NewNATSSink connects to NATS. The connection retries in the background if
// the server is not reachable yet.
func NewNATSSink(cfg NATSConfig, logger *slog.Logger) (*NATSSink, error) {
	if cfg.URL == "" {
		return nil, errors.New("nats url is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	wait := cfg.ReconnectWait
	if wait <= 0 {
		wait = 2 * time.Second
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name("pairstream"),
		nats.Timeout(5*time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(wait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	return &NATSSink{nc: nc, prefix: cfg.SubjectPrefix, logger: logger}, nil
}

// Subject returns the subject an observation for key is published on.
func (s *NATSSink) Subject(key model.PairKey) string {
	// NATS tokens are dot separated; the key's colon becomes one.
	return s.prefix + "." + strings.ReplaceAll(string(key), ":", ".")
}

// Record publishes obs.
func (s *NATSSink) Record(_ context.Context, obs model.Observation) error {
	data, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("marshal observation: %w", err)
	}
	if err := s.nc.Publish(s.Subject(obs.PairKey), data); err != nil {
		return fmt.Errorf("publish observation: %w", err)
	}
	return nil
}

// Ready reports whether the connection is up.
func (s *NATSSink) Ready() bool {
	return s.nc != nil && s.nc.Status() == nats.CONNECTED
}

// Close drains and closes the connection.
func (s *NATSSink) Close() error {
	if s.nc == nil || s.nc.IsClosed() {
		return nil
	}
	if err := s.nc.Drain(); err != nil {
		s.nc.Close()
		return fmt.Errorf("drain nats: %w", err)
	}
	return nil
}
