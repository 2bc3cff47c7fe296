package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/pairstream/internal/api"
	"github.com/rickgao/pairstream/internal/auth"
	"github.com/rickgao/pairstream/internal/codec"
	"github.com/rickgao/pairstream/internal/config"
	"github.com/rickgao/pairstream/internal/database"
	"github.com/rickgao/pairstream/internal/dedup"
	"github.com/rickgao/pairstream/internal/feed"
	"github.com/rickgao/pairstream/internal/ledger"
	"github.com/rickgao/pairstream/internal/metrics"
	"github.com/rickgao/pairstream/internal/normalize"
	"github.com/rickgao/pairstream/internal/pairs"
	"github.com/rickgao/pairstream/internal/pipeline"
	"github.com/rickgao/pairstream/internal/publisher"
	"github.com/rickgao/pairstream/internal/queue"
	"github.com/rickgao/pairstream/internal/sink"
	"github.com/rickgao/pairstream/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/pairstream.yaml", "path to config file")
	dryRun := flag.Bool("dry-run", false, "use the in-memory ledger instead of the configured driver")
	flag.Parse()

	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *dryRun {
		cfg.Ledger.Driver = "memory"
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting pairstream",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"instance_id", cfg.Instance.ID,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("pairstream exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("pairstream stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pairList, err := cfg.PairIdentities()
	if err != nil {
		return fmt.Errorf("parse pairs: %w", err)
	}

	schemaID := codec.SchemaID(codec.Schema)
	if cfg.Ledger.SchemaID != "" {
		schemaID = common.HexToHash(cfg.Ledger.SchemaID)
	}

	signer, err := loadSigner(cfg.Ledger)
	if err != nil {
		return fmt.Errorf("load signer: %w", err)
	}
	if signer != nil {
		logger.Info("publisher identity loaded", "address", signer.Address().Hex())
	}

	writer, err := openLedger(ctx, cfg, signer, logger)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer writer.Close()

	logger.Info("ledger ready", "driver", cfg.Ledger.Driver, "schema_id", schemaID.Hex())

	sinks, err := openSinks(ctx, cfg.Sinks, logger)
	if err != nil {
		return fmt.Errorf("open sinks: %w", err)
	}

	m := metrics.New("pairstream")

	pub := publisher.New(publisher.Config{
		BatchSize:    cfg.Publisher.BatchSize,
		BatchTimeout: cfg.Publisher.BatchTimeout,
		WriteTimeout: cfg.Publisher.WriteTimeout,
		Retry: publisher.RetryPolicy{
			Delay:       cfg.Publisher.Retry.Delay,
			MaxAttempts: cfg.Publisher.Retry.MaxAttempts,
			Multiplier:  cfg.Publisher.Retry.Multiplier,
			MaxDelay:    cfg.Publisher.Retry.MaxDelay,
		},
	}, schemaID, writer,
		publisher.WithLogger(logger.With("component", "publisher")),
		publisher.WithFlushHook(func(r publisher.FlushResult) {
			m.ObserveFlush(r.Entries, r.Duration, r.Err)
		}),
	)

	apiClient := api.NewClient(
		cfg.Provider.RestURL,
		api.WithLogger(logger),
		api.WithTimeout(cfg.Provider.Timeout),
		api.WithRetries(cfg.Provider.MaxRetries, time.Second),
		api.WithUserAgent(cfg.Provider.UserAgent),
	)

	events := queue.New[feed.Event](cfg.Pipeline.QueueCapacity)
	connector, err := feed.New(cfg.Feed.Strategy, feed.Config{
		PollInterval:         cfg.Feed.PollInterval,
		RequestTimeout:       cfg.Feed.RequestTimeout,
		StreamURL:            cfg.Provider.StreamURL,
		ReconnectBaseDelay:   cfg.Feed.ReconnectBaseDelay,
		ReconnectMaxDelay:    cfg.Feed.ReconnectMaxDelay,
		MaxReconnectAttempts: cfg.Feed.MaxReconnectAttempts,
		PingInterval:         cfg.Feed.PingInterval,
		PingTimeout:          cfg.Feed.PingTimeout,
		UserAgent:            cfg.Provider.UserAgent,
	}, apiClient, events, logger.With("component", "feed"))
	if err != nil {
		return err
	}

	selector, err := normalize.SelectorFor(cfg.Normalize.Selection)
	if err != nil {
		return err
	}

	p := pipeline.New(pipeline.Config{
		StatusInterval: cfg.Pipeline.StatusInterval,
	}, pipeline.Deps{
		Queue:      events,
		Connector:  connector,
		Normalizer: normalize.New(normalize.WithSelector(selector)),
		Gate: dedup.NewGate(dedup.Config{
			MinUpdateInterval:    cfg.Dedup.MinUpdateInterval,
			PriceChangeThreshold: cfg.Dedup.PriceChangeThreshold,
		}, nil),
		Publisher: pub,
		Sink:      sinks,
		Registry:  pairs.NewRegistry(pairList...),
		Metrics:   m,
	}, logger.With("component", "pipeline"))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           metrics.Handler(m, p, cfg.Metrics.Path, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if err := p.Start(ctx); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}

	logger.Info("pairstream running",
		"pairs", len(pairList),
		"strategy", cfg.Feed.Strategy,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting metrics server", "port", cfg.Metrics.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var runErr error
		select {
		case <-gctx.Done():
			logger.Info("shutting down...")
		case runErr = <-p.Fatal():
			logger.Error("fatal pipeline error, shutting down", "error", runErr)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Publisher.ShutdownTimeout)
		defer cancel()

		stopErr := p.Stop(shutdownCtx)
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown", "error", err)
		}
		return errors.Join(runErr, stopErr)
	})

	return g.Wait()
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func loadSigner(cfg config.LedgerConfig) (*auth.Signer, error) {
	if cfg.PrivateKey == "" && cfg.PrivateKeyPath == "" {
		return nil, nil
	}
	return auth.Load(cfg.PrivateKey, cfg.PrivateKeyPath, cfg.PublisherAddress)
}

// openLedger connects the configured backend and applies its migrations.
func openLedger(ctx context.Context, cfg *config.Config, signer *auth.Signer, logger *slog.Logger) (ledger.Writer, error) {
	// A typed nil *auth.Signer must not become a non-nil interface.
	var s ledger.Signer
	if signer != nil {
		s = signer
	}
	lg := logger.With("component", "ledger")

	switch cfg.Ledger.Driver {
	case "memory":
		logger.Warn("using in-memory ledger, nothing will be persisted")
		return ledger.NewMemoryLedger(s), nil

	case "postgres":
		db := cfg.Database.Postgres
		logger.Info("connecting to database", "host", db.Host, "port", db.Port, "database", db.Name)
		pool, err := database.Connect(ctx, db)
		if err != nil {
			return nil, err
		}
		l := ledger.NewPostgresLedger(pool, s, lg)
		if err := l.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return &pooledLedger{PostgresLedger: l, close: pool.Close}, nil

	case "clickhouse":
		conn, err := ledger.OpenClickHouse(ctx, cfg.ClickHouse.DSN)
		if err != nil {
			return nil, err
		}
		l := ledger.NewClickHouseLedger(conn, cfg.ClickHouse.Table, s, lg)
		if err := l.Migrate(ctx); err != nil {
			conn.Close()
			return nil, err
		}
		return l, nil

	default:
		return nil, fmt.Errorf("unknown ledger driver %q", cfg.Ledger.Driver)
	}
}

// pooledLedger closes the pool it owns.
type pooledLedger struct {
	*ledger.PostgresLedger
	close func()
}

func (l *pooledLedger) Close() error {
	l.close()
	return nil
}

func openSinks(ctx context.Context, cfg config.SinksConfig, logger *slog.Logger) (*sink.Fanout, error) {
	var sinks []sink.Sink
	sl := logger.With("component", "sink")

	if cfg.NATS.Enabled {
		s, err := sink.NewNATSSink(sink.NATSConfig{
			URL:           cfg.NATS.URL,
			SubjectPrefix: cfg.NATS.SubjectPrefix,
			ReconnectWait: cfg.NATS.ReconnectWait,
		}, sl)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
		logger.Info("nats sink enabled", "url", cfg.NATS.URL, "prefix", cfg.NATS.SubjectPrefix)
	}

	if cfg.Redis.Enabled {
		s, err := sink.NewRedisSink(ctx, sink.RedisConfig{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       cfg.Redis.TTL,
		})
		if err != nil {
			for _, open := range sinks {
				open.Close()
			}
			return nil, err
		}
		sinks = append(sinks, s)
		logger.Info("redis sink enabled", "addr", cfg.Redis.Addr, "prefix", cfg.Redis.KeyPrefix)
	}

	return sink.NewFanout(sl, sinks...), nil
}
