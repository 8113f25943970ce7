package heart

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/heart/internal/errors"
	"github.com/vango-dev/heart/pkg/key"
	"github.com/vango-dev/heart/pkg/state"
)

// Default tracer name for evaluator spans.
const defaultTracerName = "heart"

// Budget bounds the work of one update cycle. Exceeding it is fatal: it
// means the argument fixpoint is not converging.
type Budget struct {
	// MaxDrainIterations caps non-empty dirty-args drains per cycle.
	// Zero disables the check.
	MaxDrainIterations int

	// MaxReevaluationsPerCycle caps fragment re-evaluations per cycle.
	// Zero disables the check.
	MaxReevaluationsPerCycle int
}

// DefaultBudget returns the budget used when none is configured.
func DefaultBudget() Budget {
	return Budget{MaxDrainIterations: 10000}
}

// budgetTracker counts the work of the running cycle against a Budget.
type budgetTracker struct {
	budget  Budget
	drains  int
	reevals int
}

func (b *budgetTracker) reset() {
	b.drains = 0
	b.reevals = 0
}

func (b *budgetTracker) drain() {
	b.drains++
	if limit := b.budget.MaxDrainIterations; limit > 0 && b.drains > limit {
		errors.Fail("H006", "more than %d dirty-args drains", limit)
	}
}

func (b *budgetTracker) reevaluate() {
	b.reevals++
	if limit := b.budget.MaxReevaluationsPerCycle; limit > 0 && b.reevals > limit {
		errors.Fail("H006", "more than %d re-evaluations", limit)
	}
}

// CycleStats describes one call to Update.
type CycleStats struct {
	// Touched is the number of cells changed by the commit.
	Touched int `json:"touched"`

	// Dependents is the number of fragments scheduled by those cells.
	Dependents int `json:"dependents"`

	// Reevaluated counts re-evaluations of existing fragments.
	Reevaluated int `json:"reevaluated"`

	// Evaluated counts first evaluations of new fragments.
	Evaluated int `json:"evaluated"`

	// Removed counts fragments torn down.
	Removed int `json:"removed"`

	// Drains counts non-empty dirty-args drains.
	Drains int `json:"drains"`

	// Changed is the result returned by Update.
	Changed bool `json:"changed"`

	// LiveFragments and LiveCells are sampled at the end of the cycle.
	LiveFragments int `json:"liveFragments"`
	LiveCells     int `json:"liveCells"`

	Duration time.Duration `json:"duration"`
}

// Observer is notified after every update cycle on the evaluator's
// goroutine. Implementations must not call back into the evaluator.
type Observer interface {
	ObserveCycle(stats CycleStats)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(stats CycleStats)

// ObserveCycle implements Observer.
func (f ObserverFunc) ObserveCycle(stats CycleStats) { f(stats) }

type options struct {
	logger    *slog.Logger
	tracer    trace.Tracer
	observers []Observer
	budget    Budget
	keys      *key.Map
	store     *state.Store
}

func defaultOptions() options {
	return options{
		logger: slog.Default().With("component", "heart"),
		tracer: otel.Tracer(defaultTracerName),
		budget: DefaultBudget(),
	}
}

// Option configures an Evaluator.
type Option func(*options)

// WithLogger sets the logger. Evaluation steps are logged at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTracer sets the tracer for update spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithObserver adds observers notified after each update cycle.
func WithObserver(obs ...Observer) Option {
	return func(o *options) {
		o.observers = append(o.observers, obs...)
	}
}

// WithBudget sets the per-cycle work limits.
func WithBudget(b Budget) Option {
	return func(o *options) {
		o.budget = b
	}
}

// WithKeyMap shares a label registry with the evaluator.
func WithKeyMap(m *key.Map) Option {
	return func(o *options) {
		o.keys = m
	}
}

// WithStore makes the evaluator use an existing state store.
func WithStore(s *state.Store) Option {
	return func(o *options) {
		o.store = s
	}
}
