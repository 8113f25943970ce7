// Package metrics exports update cycle statistics to Prometheus.
//
// A Collector is a heart.Observer: pass it to heart.WithObserver and every
// update cycle is recorded.
//
//	reg := prometheus.NewRegistry()
//	col := metrics.New(metrics.WithRegistry(reg))
//	ev := heart.New(root, tree, heart.WithObserver(col))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/heart/pkg/heart"
)

// Config configures the collector.
type Config struct {
	// Namespace is the metrics namespace (default: "heart").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for cycle duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the duration histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "heart",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector records update cycles.
//
// Metrics collected:
//   - heart_cycles_total: Counter of cycles by result (changed, idle)
//   - heart_cycle_duration_seconds: Histogram of cycle duration
//   - heart_cells_touched_total: Counter of committed state cells
//   - heart_fragments_reevaluated_total: Counter of re-evaluations
//   - heart_fragments_evaluated_total: Counter of first evaluations
//   - heart_fragments_removed_total: Counter of torn down fragments
//   - heart_drain_iterations: Histogram of dirty-args drains per cycle
//   - heart_live_fragments: Gauge of fragments alive after the last cycle
//   - heart_live_cells: Gauge of state cells alive after the last cycle
//   - heart_fatal_errors_total: Counter of fatal errors by code
type Collector struct {
	cycles        *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	touched       prometheus.Counter
	reevaluated   prometheus.Counter
	evaluated     prometheus.Counter
	removed       prometheus.Counter
	drains        prometheus.Histogram
	liveFragments prometheus.Gauge
	liveCells     prometheus.Gauge
	fatal         *prometheus.CounterVec
}

// New creates a collector and registers its metrics.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Collector{
		cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cycles_total",
			Help:        "Total number of update cycles",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),

		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cycle_duration_seconds",
			Help:        "Update cycle duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		touched: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cells_touched_total",
			Help:        "Total number of state cells changed by commits",
			ConstLabels: config.ConstLabels,
		}),

		reevaluated: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "fragments_reevaluated_total",
			Help:        "Total number of fragment re-evaluations",
			ConstLabels: config.ConstLabels,
		}),

		evaluated: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "fragments_evaluated_total",
			Help:        "Total number of first-time fragment evaluations",
			ConstLabels: config.ConstLabels,
		}),

		removed: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "fragments_removed_total",
			Help:        "Total number of fragments torn down",
			ConstLabels: config.ConstLabels,
		}),

		drains: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "drain_iterations",
			Help:        "Dirty-args drain iterations per changed cycle",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{0, 1, 2, 4, 8, 16, 32, 64},
		}),

		liveFragments: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "live_fragments",
			Help:        "Number of live fragments",
			ConstLabels: config.ConstLabels,
		}),

		liveCells: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "live_cells",
			Help:        "Number of live state cells",
			ConstLabels: config.ConstLabels,
		}),

		fatal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "fatal_errors_total",
			Help:        "Total number of fatal engine errors by code",
			ConstLabels: config.ConstLabels,
		}, []string{"code"}),
	}
}

// ObserveCycle implements heart.Observer.
func (c *Collector) ObserveCycle(s heart.CycleStats) {
	result := "idle"
	if s.Changed {
		result = "changed"
		c.drains.Observe(float64(s.Drains))
	}
	c.cycles.WithLabelValues(result).Inc()
	c.cycleDuration.Observe(s.Duration.Seconds())
	c.touched.Add(float64(s.Touched))
	c.reevaluated.Add(float64(s.Reevaluated))
	c.evaluated.Add(float64(s.Evaluated))
	c.removed.Add(float64(s.Removed))
	c.liveFragments.Set(float64(s.LiveFragments))
	c.liveCells.Set(float64(s.LiveCells))
}

// RecordFatal counts a fatal error by its code.
func (c *Collector) RecordFatal(code string) {
	if code == "" {
		code = "unknown"
	}
	c.fatal.WithLabelValues(code).Inc()
}

var _ heart.Observer = (*Collector)(nil)
