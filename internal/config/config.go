package config

import (
	"time"

	"github.com/rickgao/pairstream/internal/model"
)

// Config is the root configuration for a pairstream instance.
type Config struct {
	Instance   InstanceConfig   `yaml:"instance"`
	Provider   ProviderConfig   `yaml:"provider"`
	Feed       FeedConfig       `yaml:"feed"`
	Normalize  NormalizeConfig  `yaml:"normalize"`
	Dedup      DedupConfig      `yaml:"dedup"`
	Publisher  PublisherConfig  `yaml:"publisher"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Database   DatabaseConfig   `yaml:"database"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Sinks      SinksConfig      `yaml:"sinks"`
	Pairs      []PairConfig     `yaml:"pairs"`
	PairList   string           `yaml:"pair_list"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// InstanceConfig identifies this instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ProviderConfig holds market data provider endpoints.
type ProviderConfig struct {
	RestURL    string        `yaml:"rest_url"`
	StreamURL  string        `yaml:"stream_url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	UserAgent  string        `yaml:"user_agent"`
}

// FeedConfig holds connector settings.
type FeedConfig struct {
	Strategy             string        `yaml:"strategy"` // "poll" or "stream"
	PollInterval         time.Duration `yaml:"poll_interval"`
	RequestTimeout       time.Duration `yaml:"request_timeout"`
	ReconnectBaseDelay   time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay    time.Duration `yaml:"reconnect_max_delay"` // 0 = uncapped
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	PingInterval         time.Duration `yaml:"ping_interval"`
	PingTimeout          time.Duration `yaml:"ping_timeout"`
}

// NormalizeConfig selects the provider result used for a pair.
type NormalizeConfig struct {
	Selection string `yaml:"selection"` // "first", "address" or "liquidity"
}

// DedupConfig holds gate thresholds.
type DedupConfig struct {
	MinUpdateInterval    time.Duration `yaml:"min_update_interval"`
	PriceChangeThreshold float64       `yaml:"price_change_threshold"`
}

// PublisherConfig holds batch publisher settings.
type PublisherConfig struct {
	BatchSize       int           `yaml:"batch_size"`
	BatchTimeout    time.Duration `yaml:"batch_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Retry           RetryConfig   `yaml:"retry"`
}

// RetryConfig controls re-flush after a failed ledger write.
type RetryConfig struct {
	Delay       time.Duration `yaml:"delay"`
	MaxAttempts int           `yaml:"max_attempts"` // 0 = unlimited
	Multiplier  float64       `yaml:"multiplier"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// LedgerConfig holds ledger service settings.
type LedgerConfig struct {
	Driver           string `yaml:"driver"` // "postgres", "clickhouse" or "memory"
	SchemaID         string `yaml:"schema_id"`
	PrivateKey       string `yaml:"private_key"`
	PrivateKeyPath   string `yaml:"private_key_path"`
	PublisherAddress string `yaml:"publisher_address"`
}

// DatabaseConfig holds the Postgres ledger connection.
type DatabaseConfig struct {
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// ClickHouseConfig holds the ClickHouse ledger connection.
type ClickHouseConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

// SinksConfig holds observation sink settings.
type SinksConfig struct {
	NATS  NATSConfig  `yaml:"nats"`
	Redis RedisConfig `yaml:"redis"`
}

// NATSConfig configures the NATS observation sink.
type NATSConfig struct {
	Enabled       bool          `yaml:"enabled"`
	URL           string        `yaml:"url"`
	SubjectPrefix string        `yaml:"subject_prefix"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
}

// RedisConfig configures the Redis latest-price sink.
type RedisConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
}

// PairConfig is one configured pair.
type PairConfig struct {
	Chain   string `yaml:"chain"`
	Address string `yaml:"address"`
	Symbol  string `yaml:"symbol"`
}

// PipelineConfig holds orchestrator settings.
type PipelineConfig struct {
	StatusInterval time.Duration `yaml:"status_interval"`
	QueueCapacity  int           `yaml:"queue_capacity"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// MetricsConfig holds Prometheus and health endpoint settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// PairIdentities merges "pairs" and "pair_list" into one list.
func (c *Config) PairIdentities() ([]model.PairIdentity, error) {
	var b []byte
	for _, p := range c.Pairs {
		if len(b) > 0 {
			b = append(b, ',')
		}
		b = append(b, p.Chain+":"+p.Address+":"+p.Symbol...)
	}
	if c.PairList != "" {
		if len(b) > 0 {
			b = append(b, ',')
		}
		b = append(b, c.PairList...)
	}
	return model.ParsePairs(string(b))
}
