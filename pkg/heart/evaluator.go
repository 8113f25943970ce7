package heart

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/heart/internal/errors"
	"github.com/vango-dev/heart/pkg/key"
	"github.com/vango-dev/heart/pkg/layout"
	"github.com/vango-dev/heart/pkg/state"
)

// Evaluator owns a fragment tree and keeps it, and the layout collaborator,
// in sync with the state store.
//
// All methods except Store, Thread, Keys and LastCycle must be called from
// a single goroutine.
type Evaluator struct {
	store     *state.Store
	frags     *FragmentStore
	keys      *key.Map
	external  *externalHooks
	callbacks []AfterFrameCallback
	layout    layout.Layouter

	root       Fragment
	rootHandle layout.Handle

	logger    *slog.Logger
	tracer    trace.Tracer
	observers []Observer
	budget    budgetTracker

	// cycle accumulates the stats of the running Update.
	cycle *CycleStats

	statsMu sync.Mutex
	last    CycleStats
}

// New evaluates root and every fragment it produces, registering their
// nodes with l. Pending args changes produced by the initial evaluation
// are discarded.
func New(root *UnevaluatedFragment, l layout.Layouter, opts ...Option) *Evaluator {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.keys == nil {
		o.keys = key.NewMap()
	}
	if o.store == nil {
		o.store = state.NewStore()
	}

	ev := &Evaluator{
		store:     o.store,
		frags:     NewFragmentStore(),
		keys:      o.keys,
		external:  &externalHooks{counts: make(map[key.Key]uint16)},
		layout:    l,
		logger:    o.logger,
		tracer:    o.tracer,
		observers: o.observers,
		budget:    budgetTracker{budget: o.budget},
		cycle:     &CycleStats{},
	}
	if _, ok := ev.keys.Label(root.Key); !ok {
		ev.keys.Register(root.Key, "root")
	}

	_, span := ev.tracer.Start(context.Background(), "heart.evaluate")
	defer span.End()

	idx := ev.frags.AllocateEmpty()
	ev.frags.Populate(idx, func() *UnevaluatedFragment { return root })
	ev.evaluateUnconditional(idx)
	ev.frags.DrainDirtyArgs()

	ev.root = idx
	ev.rootHandle = ev.frags.mustEvaluated(idx).Layout
	span.SetAttributes(attribute.Int("heart.fragments", ev.frags.Len()))
	return ev
}

// Root returns the root fragment.
func (ev *Evaluator) Root() Fragment { return ev.root }

// RootHandle returns the layout node of the root fragment.
func (ev *Evaluator) RootHandle() layout.Handle { return ev.rootHandle }

// Store returns the state store.
func (ev *Evaluator) Store() *state.Store { return ev.store }

// Keys returns the label registry.
func (ev *Evaluator) Keys() *key.Map { return ev.keys }

// Fragments returns the fragment arena.
func (ev *Evaluator) Fragments() *FragmentStore { return ev.frags }

// Layouter returns the layout collaborator.
func (ev *Evaluator) Layouter() layout.Layouter { return ev.layout }

// Thread returns a handle for writing state from other goroutines.
func (ev *Evaluator) Thread() ThreadContext {
	return ThreadContext{store: ev.store}
}

// Lookup returns the live fragment registered under k.
func (ev *Evaluator) Lookup(k key.Key) (Fragment, bool) {
	return ev.frags.Lookup(k)
}

// Evaluated returns the evaluated state of f.
func (ev *Evaluator) Evaluated(f Fragment) (*EvaluatedFragment, bool) {
	if ev.frags.IsRemoved(f) {
		return nil, false
	}
	e, ok := ev.frags.Get(f).(*EvaluatedFragment)
	return e, ok
}

// LastCycle returns the stats of the most recent Update.
func (ev *Evaluator) LastCycle() CycleStats {
	ev.statsMu.Lock()
	defer ev.statsMu.Unlock()
	return ev.last
}

// Update runs one update cycle: it commits pending writes, re-evaluates
// every fragment that read a changed cell and then re-evaluates fragments
// whose arguments changed until none remain. It reports whether any
// fragment was re-evaluated.
//
// Invariant violations panic with a fatal *errors.HeartError.
func (ev *Evaluator) Update(ctx context.Context) bool {
	start := time.Now()
	_, span := ev.tracer.Start(ctx, "heart.update")
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			if he := errors.Recovered(r); he != nil {
				span.RecordError(he)
				span.SetStatus(codes.Error, he.Message)
			}
			panic(r)
		}
	}()

	stats := &CycleStats{}
	ev.cycle = stats
	ev.budget.reset()

	touched := ev.store.Commit()
	stats.Touched = len(touched)

	scheduled := make(map[Fragment]struct{})
	for _, ref := range touched {
		for _, f := range ev.store.TakeDependents(ref) {
			scheduled[Fragment(f)] = struct{}{}
		}
	}
	stats.Dependents = len(scheduled)

	if len(scheduled) > 0 {
		order := make([]Fragment, 0, len(scheduled))
		for f := range scheduled {
			order = append(order, f)
		}
		sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

		for _, f := range order {
			ev.reevaluate(f)
		}

		for {
			dirty := ev.frags.DrainDirtyArgs()
			if len(dirty) == 0 {
				break
			}
			stats.Drains++
			ev.budget.drain()
			for _, f := range dirty {
				ev.reevaluate(f)
			}
		}
		stats.Changed = true
	}

	stats.LiveFragments = ev.frags.Len()
	stats.LiveCells = ev.store.Len()
	stats.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("heart.touched", stats.Touched),
		attribute.Int("heart.reevaluated", stats.Reevaluated),
		attribute.Int("heart.removed", stats.Removed),
		attribute.Int("heart.drains", stats.Drains),
		attribute.Bool("heart.changed", stats.Changed),
	)
	if stats.Changed {
		ev.logger.Debug("update cycle",
			"touched", stats.Touched,
			"reevaluated", stats.Reevaluated,
			"evaluated", stats.Evaluated,
			"removed", stats.Removed,
			"drains", stats.Drains,
			"duration", stats.Duration)
	}

	ev.statsMu.Lock()
	ev.last = *stats
	ev.statsMu.Unlock()
	for _, o := range ev.observers {
		o.ObserveCycle(*stats)
	}
	return stats.Changed
}

// RunAfterFrame runs and clears the registered after-frame callbacks and
// returns how many ran. Callbacks registered while running are kept for the
// next call.
func (ev *Evaluator) RunAfterFrame() int {
	cbs := ev.callbacks
	ev.callbacks = nil
	cc := CallbackContext{ev: ev}
	for _, cb := range cbs {
		cb(cc)
	}
	return len(cbs)
}

func (ev *Evaluator) evaluateUnconditional(idx Fragment) {
	u := ev.frags.mustUnevaluated(idx)
	k, gen := u.Key, u.Gen
	ev.logger.Debug("unconditionally evaluating", "key", ev.keys.Debug(k), "fragment", idx)

	desc := gen.Generate(newContext(ev, k, idx))
	ev.checkUniqueKeys(k, desc.Children)

	h := ev.layout.AddNode(desc.Style, desc.Payload, desc.Clipper)
	for _, c := range desc.Children {
		ev.evaluateUnconditional(c)
	}
	ev.layout.SetChildren(h, ev.handles(desc.Children))

	ev.frags.setEntry(idx, &EvaluatedFragment{
		Key:      k,
		Gen:      gen,
		Layout:   h,
		Index:    idx,
		Children: desc.Children,
	})
	ev.cycle.Evaluated++
}

func (ev *Evaluator) reevaluate(idx Fragment) {
	if ev.frags.IsRemoved(idx) {
		ev.logger.Debug("skipping removed fragment", "fragment", idx)
		return
	}
	e, ok := ev.frags.Get(idx).(*EvaluatedFragment)
	if !ok {
		ev.logger.Debug("skipping unevaluated fragment", "fragment", idx)
		return
	}
	ev.budget.reevaluate()
	ev.logger.Debug("re-evaluating", "key", ev.keys.Debug(e.Key), "fragment", idx)

	desc := e.Gen.Generate(newContext(ev, e.Key, idx))
	ev.checkUniqueKeys(e.Key, desc.Children)

	stale := append([]Fragment(nil), e.Children...)
	for _, c := range desc.Children {
		switch ev.frags.Get(c).(type) {
		case *UnevaluatedFragment:
			ev.evaluateUnconditional(c)
		case *EvaluatedFragment:
			for i, old := range stale {
				if old == c {
					stale = append(stale[:i], stale[i+1:]...)
					break
				}
			}
		}
	}

	if len(e.Children) > 0 || len(desc.Children) > 0 {
		ev.layout.SetChildren(e.Layout, ev.handles(desc.Children))
	}
	e.Children = desc.Children
	ev.layout.SetNode(e.Layout, desc.Style, desc.Payload, desc.Clipper)
	ev.cycle.Reevaluated++

	for _, c := range stale {
		ev.removeTree(c)
	}
}

// removeTree tears down f and its descendants, children first.
func (ev *Evaluator) removeTree(f Fragment) {
	e := ev.frags.mustEvaluated(f)
	for _, c := range e.Children {
		ev.removeTree(c)
	}
	ev.logger.Debug("removing fragment", "key", ev.keys.Debug(e.Key), "fragment", f)

	ev.store.RemoveWidget(e.Key)
	ev.external.reset(e.Key)
	ev.layout.RemoveNode(e.Layout)
	ev.keys.Remove(e.Key)
	ev.frags.Remove(f)
	ev.cycle.Removed++
}

func (ev *Evaluator) handles(children []Fragment) []layout.Handle {
	out := make([]layout.Handle, len(children))
	for i, c := range children {
		out[i] = ev.frags.mustEvaluated(c).Layout
	}
	return out
}

// checkUniqueKeys fails when two children of parent share a key.
func (ev *Evaluator) checkUniqueKeys(parent key.Key, children []Fragment) {
	if len(children) < 2 {
		return
	}
	seen := make(map[key.Key]struct{}, len(children))
	for _, c := range children {
		k := ev.frags.Get(c).FragmentKey()
		if _, dup := seen[k]; dup {
			errors.Fail("H003", "%s has two children keyed %s",
				ev.keys.Debug(parent), ev.keys.Debug(k))
		}
		seen[k] = struct{}{}
	}
}
