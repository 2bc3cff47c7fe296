package sink

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/pairstream/internal/model"
)

// Sink receives accepted observations.
type Sink interface {
	Record(ctx context.Context, obs model.Observation) error
	Close() error
}

// Fanout records each observation to every sink. Errors are logged and
// joined; one failing sink never stops delivery to the others.
type Fanout struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewFanout creates a Fanout over sinks.
func NewFanout(logger *slog.Logger, sinks ...Sink) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{sinks: sinks, logger: logger}
}

// Len returns the number of sinks.
func (f *Fanout) Len() int {
	return len(f.sinks)
}

// Record delivers obs to every sink concurrently.
func (f *Fanout) Record(ctx context.Context, obs model.Observation) error {
	if len(f.sinks) == 0 {
		return nil
	}

	errs := make([]error, len(f.sinks))
	var g errgroup.Group
	for i, s := range f.sinks {
		g.Go(func() error {
			if err := s.Record(ctx, obs); err != nil {
				f.logger.Warn("sink record failed",
					"pair", obs.PairKey,
					"error", err,
				)
				errs[i] = err
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Close closes every sink.
func (f *Fanout) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
