package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultRestURL              = "https://api.dexscreener.com/latest/dex/pairs"
	DefaultStreamURL            = "wss://io.dexscreener.com/dex/screener/pair"
	DefaultProviderTimeout      = 30 * time.Second
	DefaultMaxRetries           = 1
	DefaultStrategy             = "poll"
	DefaultPollInterval         = 10 * time.Second
	DefaultRequestTimeout       = 10 * time.Second
	DefaultReconnectBaseDelay   = 5 * time.Second
	DefaultMaxReconnectAttempts = 10
	DefaultPingInterval         = 30 * time.Second
	DefaultPingTimeout          = 90 * time.Second
	DefaultSelection            = "first"
	DefaultMinUpdateInterval    = 1 * time.Second
	DefaultPriceChangeThreshold = 0.001
	DefaultBatchSize            = 10
	DefaultBatchTimeout         = 5 * time.Second
	DefaultWriteTimeout         = 30 * time.Second
	DefaultShutdownTimeout      = 30 * time.Second
	DefaultRetryDelay           = 5 * time.Second
	DefaultRetryMultiplier      = 1.0
	DefaultLedgerDriver         = "postgres"
	DefaultDBPort               = 5432
	DefaultDBSSLMode            = "prefer"
	DefaultMaxConns             = 10
	DefaultMinConns             = 2
	DefaultClickHouseTable      = "stream_records"
	DefaultNATSSubjectPrefix    = "pairstream.prices"
	DefaultNATSReconnectWait    = 2 * time.Second
	DefaultRedisKeyPrefix       = "pairstream"
	DefaultRedisTTL             = 10 * time.Minute
	DefaultStatusInterval       = 60 * time.Second
	DefaultQueueCapacity        = 1024
	DefaultLogLevel             = "info"
	DefaultLogFormat            = "text"
	DefaultMetricsPort          = 9090
	DefaultMetricsPath          = "/metrics"
)

func (c *Config) applyDefaults() {
	// Provider defaults
	if c.Provider.RestURL == "" {
		c.Provider.RestURL = DefaultRestURL
	}
	if c.Provider.StreamURL == "" {
		c.Provider.StreamURL = DefaultStreamURL
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = DefaultProviderTimeout
	}
	if c.Provider.MaxRetries == 0 {
		c.Provider.MaxRetries = DefaultMaxRetries
	}

	// Feed defaults
	if c.Feed.Strategy == "" {
		c.Feed.Strategy = DefaultStrategy
	}
	if c.Feed.PollInterval == 0 {
		c.Feed.PollInterval = DefaultPollInterval
	}
	if c.Feed.RequestTimeout == 0 {
		c.Feed.RequestTimeout = DefaultRequestTimeout
	}
	if c.Feed.ReconnectBaseDelay == 0 {
		c.Feed.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Feed.MaxReconnectAttempts == 0 {
		c.Feed.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.Feed.PingInterval == 0 {
		c.Feed.PingInterval = DefaultPingInterval
	}
	if c.Feed.PingTimeout == 0 {
		c.Feed.PingTimeout = DefaultPingTimeout
	}

	if c.Normalize.Selection == "" {
		c.Normalize.Selection = DefaultSelection
	}

	// Dedup defaults
	if c.Dedup.MinUpdateInterval == 0 {
		c.Dedup.MinUpdateInterval = DefaultMinUpdateInterval
	}
	if c.Dedup.PriceChangeThreshold == 0 {
		c.Dedup.PriceChangeThreshold = DefaultPriceChangeThreshold
	}

	// Publisher defaults
	if c.Publisher.BatchSize == 0 {
		c.Publisher.BatchSize = DefaultBatchSize
	}
	if c.Publisher.BatchTimeout == 0 {
		c.Publisher.BatchTimeout = DefaultBatchTimeout
	}
	if c.Publisher.WriteTimeout == 0 {
		c.Publisher.WriteTimeout = DefaultWriteTimeout
	}
	if c.Publisher.ShutdownTimeout == 0 {
		c.Publisher.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Publisher.Retry.Delay == 0 {
		c.Publisher.Retry.Delay = DefaultRetryDelay
	}
	if c.Publisher.Retry.Multiplier == 0 {
		c.Publisher.Retry.Multiplier = DefaultRetryMultiplier
	}

	// Ledger defaults
	if c.Ledger.Driver == "" {
		c.Ledger.Driver = DefaultLedgerDriver
	}
	applyDBDefaults(&c.Database.Postgres)
	if c.ClickHouse.Table == "" {
		c.ClickHouse.Table = DefaultClickHouseTable
	}

	// Sink defaults
	if c.Sinks.NATS.SubjectPrefix == "" {
		c.Sinks.NATS.SubjectPrefix = DefaultNATSSubjectPrefix
	}
	if c.Sinks.NATS.ReconnectWait == 0 {
		c.Sinks.NATS.ReconnectWait = DefaultNATSReconnectWait
	}
	if c.Sinks.Redis.KeyPrefix == "" {
		c.Sinks.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if c.Sinks.Redis.TTL == 0 {
		c.Sinks.Redis.TTL = DefaultRedisTTL
	}

	// Pipeline defaults
	if c.Pipeline.StatusInterval == 0 {
		c.Pipeline.StatusInterval = DefaultStatusInterval
	}
	if c.Pipeline.QueueCapacity == 0 {
		c.Pipeline.QueueCapacity = DefaultQueueCapacity
	}

	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
