package config

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	pairs, err := c.PairIdentities()
	if err != nil {
		return fmt.Errorf("pairs: %w", err)
	}
	if len(pairs) == 0 {
		return errors.New("at least one pair is required")
	}

	switch c.Feed.Strategy {
	case "poll", "stream":
	default:
		return fmt.Errorf("feed.strategy must be poll or stream, got %q", c.Feed.Strategy)
	}
	if c.Feed.PollInterval <= 0 {
		return errors.New("feed.poll_interval must be > 0")
	}
	if c.Feed.MaxReconnectAttempts < 1 {
		return errors.New("feed.max_reconnect_attempts must be >= 1")
	}
	if c.Feed.ReconnectMaxDelay < 0 {
		return errors.New("feed.reconnect_max_delay must be >= 0")
	}

	switch c.Normalize.Selection {
	case "first", "address", "liquidity":
	default:
		return fmt.Errorf("normalize.selection must be first, address or liquidity, got %q", c.Normalize.Selection)
	}

	if c.Dedup.MinUpdateInterval < 0 {
		return errors.New("dedup.min_update_interval must be >= 0")
	}
	if c.Dedup.PriceChangeThreshold < 0 {
		return errors.New("dedup.price_change_threshold must be >= 0")
	}

	if c.Publisher.BatchSize < 1 {
		return errors.New("publisher.batch_size must be >= 1")
	}
	if c.Publisher.BatchTimeout <= 0 {
		return errors.New("publisher.batch_timeout must be > 0")
	}
	if c.Publisher.Retry.Delay <= 0 {
		return errors.New("publisher.retry.delay must be > 0")
	}
	if c.Publisher.Retry.MaxAttempts < 0 {
		return errors.New("publisher.retry.max_attempts must be >= 0")
	}
	if c.Publisher.Retry.Multiplier < 1 {
		return errors.New("publisher.retry.multiplier must be >= 1")
	}

	if err := c.validateLedger(); err != nil {
		return err
	}

	if c.Sinks.NATS.Enabled && c.Sinks.NATS.URL == "" {
		return errors.New("sinks.nats.url is required when enabled")
	}
	if c.Sinks.Redis.Enabled && c.Sinks.Redis.Addr == "" {
		return errors.New("sinks.redis.addr is required when enabled")
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func (c *Config) validateLedger() error {
	switch c.Ledger.Driver {
	case "postgres":
		if err := c.Database.Postgres.validate("database.postgres"); err != nil {
			return err
		}
	case "clickhouse":
		if c.ClickHouse.DSN == "" {
			return errors.New("clickhouse.dsn is required")
		}
	case "memory":
	default:
		return fmt.Errorf("ledger.driver must be postgres, clickhouse or memory, got %q", c.Ledger.Driver)
	}

	if c.Ledger.Driver != "memory" && c.Ledger.PrivateKey == "" && c.Ledger.PrivateKeyPath == "" {
		return errors.New("ledger.private_key or ledger.private_key_path is required")
	}
	if c.Ledger.SchemaID != "" && len(common.FromHex(c.Ledger.SchemaID)) != common.HashLength {
		return fmt.Errorf("ledger.schema_id must be a 32-byte hex string, got %q", c.Ledger.SchemaID)
	}
	if c.Ledger.PublisherAddress != "" && !common.IsHexAddress(c.Ledger.PublisherAddress) {
		return fmt.Errorf("ledger.publisher_address is not a valid address: %q", c.Ledger.PublisherAddress)
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
