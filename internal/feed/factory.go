package feed

import (
	"fmt"
	"log/slog"
)

// New returns the connector for a strategy name.
func New(strategy string, cfg Config, fetcher PairFetcher, sink EventSink, logger *slog.Logger) (Connector, error) {
	switch strategy {
	case StrategyPoll:
		return NewPollConnector(cfg, fetcher, sink, logger), nil
	case StrategyStream:
		return NewStreamConnector(cfg, sink, logger), nil
	default:
		return nil, fmt.Errorf("unknown feed strategy %q", strategy)
	}
}
