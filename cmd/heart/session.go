package main

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/heart/internal/config"
	"github.com/vango-dev/heart/internal/demo"
	"github.com/vango-dev/heart/internal/errors"
	"github.com/vango-dev/heart/pkg/heart"
	"github.com/vango-dev/heart/pkg/inspect"
	"github.com/vango-dev/heart/pkg/metrics"
)

// session wires a scenario runner to metrics and, optionally, the
// inspector.
type session struct {
	cfg       *config.Config
	logger    *slog.Logger
	collector *metrics.Collector
	runner    *demo.Runner
	inspector *inspect.Server
}

func newSession(cfg *config.Config, scenario string, withInspector bool) (*session, error) {
	logger, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	s := &session{
		cfg:    cfg,
		logger: logger,
		collector: metrics.New(
			metrics.WithRegistry(registry),
			metrics.WithNamespace(cfg.Metrics.Namespace),
			metrics.WithSubsystem(cfg.Metrics.Subsystem),
		),
	}

	// The inspector needs the evaluator as its source, and the evaluator
	// needs the hub as an observer.
	forward := heart.ObserverFunc(func(stats heart.CycleStats) {
		if s.inspector != nil {
			s.inspector.Hub().ObserveCycle(stats)
		}
	})

	err = guard(s.collector, func() error {
		var err error
		s.runner, err = demo.NewRunner(scenario,
			heart.WithLogger(logger.With("component", "heart", "scenario", scenario)),
			heart.WithBudget(cfg.Budget()),
			heart.WithObserver(s.collector, forward),
		)
		return err
	})
	if err != nil {
		return nil, err
	}

	if withInspector {
		s.inspector = inspect.New(
			inspect.TreeSource{Tree: s.runner.Tree, Evaluator: s.runner.Evaluator},
			inspect.Config{
				AllowAllOrigins: cfg.Inspector.AllowAllOrigins,
				Gatherer:        registry,
				Logger:          logger.With("component", "inspect"),
			},
		)
	}
	return s, nil
}

// run steps the scenario until frames have run (frames <= 0 means until
// ctx is cancelled). The inspector, when present, serves for as long as
// the scenario runs.
func (s *session) run(ctx context.Context, frames int, fn func(demo.Frame)) error {
	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	g.Go(func() error {
		defer cancel()
		err := guard(s.collector, func() error {
			return s.runner.Run(runCtx, frames, s.cfg.TickDuration(), fn)
		})
		if stderrors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if s.inspector != nil {
		g.Go(func() error {
			return s.inspector.ListenAndServe(runCtx, s.cfg.Inspector.Addr)
		})
	}

	return g.Wait()
}

// guard converts a fatal engine panic into an error and counts it.
func guard(col *metrics.Collector, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			he := errors.Recovered(r)
			if he == nil {
				panic(r)
			}
			col.RecordFatal(he.Code)
			err = he
		}
	}()
	return fn()
}
