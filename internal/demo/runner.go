package demo

import (
	"context"
	"time"

	"github.com/vango-dev/heart/pkg/heart"
	"github.com/vango-dev/heart/pkg/key"
	"github.com/vango-dev/heart/pkg/layout"
)

// Frame is the outcome of one frame.
type Frame struct {
	Index     int
	Changed   bool
	Callbacks int
	Ops       []layout.Op
	Stats     heart.CycleStats
}

// Runner drives a scenario: each frame applies the scenario's writes, runs
// an update cycle and then the after-frame callbacks.
type Runner struct {
	Scenario  *Scenario
	Tree      *layout.Tree
	Evaluator *heart.Evaluator

	frame int
}

// NewRunner builds the named scenario and evaluates it for the first time.
func NewRunner(name string, opts ...heart.Option) (*Runner, error) {
	var src key.Source
	sc, err := Lookup(name, &src)
	if err != nil {
		return nil, err
	}
	tree := layout.NewTree()
	ev := heart.New(sc.Root, tree, opts...)
	return &Runner{Scenario: sc, Tree: tree, Evaluator: ev}, nil
}

// Step runs one frame.
func (r *Runner) Step(ctx context.Context) Frame {
	f := Frame{Index: r.frame}
	r.Scenario.Step(r.Evaluator.Thread(), r.frame)
	f.Changed = r.Evaluator.Update(ctx)
	f.Callbacks = r.Evaluator.RunAfterFrame()
	f.Ops = r.Tree.Ops()
	f.Stats = r.Evaluator.LastCycle()
	r.frame++
	return f
}

// Run steps once per tick until frames have run or ctx is cancelled.
// frames <= 0 runs until cancellation. fn, if set, receives every frame.
func (r *Runner) Run(ctx context.Context, frames int, tick time.Duration, fn func(Frame)) error {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for n := 0; frames <= 0 || n < frames; n++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		f := r.Step(ctx)
		if fn != nil {
			fn(f)
		}
	}
	return nil
}
