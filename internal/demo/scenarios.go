// Package demo contains small fragment trees used by the CLI to exercise
// the evaluator frame by frame.
package demo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vango-dev/heart/internal/errors"
	"github.com/vango-dev/heart/pkg/heart"
	"github.com/vango-dev/heart/pkg/key"
)

// Scenario is a root fragment plus the writes it receives each frame.
// Step runs after the evaluator has built the tree, so it can use hooks
// captured during the first evaluation.
type Scenario struct {
	Name string
	Root *heart.UnevaluatedFragment
	Step func(th heart.ThreadContext, frame int)
}

type builder func(root key.Key) *Scenario

var scenarios = map[string]builder{
	"counter": Counter,
	"list":    List,
	"chain":   func(root key.Key) *Scenario { return Chain(root, 8) },
}

// Names returns the registered scenario names, sorted.
func Names() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup builds the named scenario with a fresh root key from src.
func Lookup(name string, src *key.Source) (*Scenario, error) {
	b, ok := scenarios[name]
	if !ok {
		return nil, errors.New("H200").
			WithDetailf("%q is not one of %s", name, strings.Join(Names(), ", "))
	}
	return b(src.Next()), nil
}

// Counter is a counter whose value is shown by a label child, next to a
// frame counter that advances itself after every frame.
func Counter(root key.Key) *Scenario {
	var count heart.Hook[int]

	label := heart.GeneratorFunc(func(ctx *heart.Context) heart.Description {
		return heart.Description{Payload: fmt.Sprintf("count=%d", heart.Arg[int](ctx, 0))}
	})

	gen := heart.GeneratorFunc(func(ctx *heart.Context) heart.Description {
		count = heart.Listenable(ctx, 0)
		n := heart.Listen(ctx, count)
		return heart.Description{
			Style:   "column",
			Payload: "counter",
			Children: []heart.Fragment{
				ctx.Child(ctx.ChildKey("label"), label, n),
				ctx.Child(ctx.ChildKey("frames"), FrameCounter()),
			},
		}
	})

	return &Scenario{
		Name: "counter",
		Root: &heart.UnevaluatedFragment{Key: root, Gen: gen},
		Step: func(th heart.ThreadContext, frame int) {
			if frame%3 == 0 {
				heart.Modify(th, count, func(n int) int { return n + 1 })
			}
		},
	}
}

// FrameCounter shows how many frames have completed since it was created.
// It re-arms an after-frame callback on every evaluation.
func FrameCounter() heart.Generator {
	return heart.GeneratorFunc(func(ctx *heart.Context) heart.Description {
		frames := heart.Listenable(ctx, 0)
		n := heart.Listen(ctx, frames)
		ctx.AfterFrame(func(cc heart.CallbackContext) {
			heart.Shout(cc, frames, n+1)
		})
		return heart.Description{Payload: fmt.Sprintf("frames=%d", n)}
	})
}

// listFrames is the sequence of item lists the list scenario cycles through.
var listFrames = [][]string{
	{"a", "b", "c"},
	{"a", "c"},
	{"a", "c", "d"},
	{"d", "a"},
	{"a", "b", "c"},
}

// List renders one keyed row per item. Rows keep their own state while
// they stay in the list and are torn down when they leave it.
func List(root key.Key) *Scenario {
	var items heart.Hook[[]string]

	row := heart.GeneratorFunc(func(ctx *heart.Context) heart.Description {
		name := heart.Arg[string](ctx, 0)
		seen := heart.Listenable(ctx, 0)
		n := heart.Peek(ctx, seen) + 1
		heart.Shout(ctx, seen, n)
		return heart.Description{Payload: fmt.Sprintf("%s (evaluated %d)", name, n)}
	})

	gen := heart.GeneratorFunc(func(ctx *heart.Context) heart.Description {
		items = heart.Listenable(ctx, listFrames[0])
		var children []heart.Fragment
		for _, name := range heart.Listen(ctx, items) {
			children = append(children, ctx.Child(ctx.ChildKey(name), row, name))
		}
		return heart.Description{Style: "column", Payload: "list", Children: children}
	})

	return &Scenario{
		Name: "list",
		Root: &heart.UnevaluatedFragment{Key: root, Gen: gen},
		Step: func(th heart.ThreadContext, frame int) {
			heart.Shout(th, items, listFrames[(frame+1)%len(listFrames)])
		},
	}
}

// Chain passes a value from the root through depth nested fragments as an
// argument, so each change settles through depth dirty-args drains.
func Chain(root key.Key, depth int) *Scenario {
	var value heart.Hook[int]

	var link func(level int) heart.Generator
	link = func(level int) heart.Generator {
		return heart.GeneratorFunc(func(ctx *heart.Context) heart.Description {
			v := heart.Arg[int](ctx, 0)
			desc := heart.Description{Payload: fmt.Sprintf("link %d = %d", level, v)}
			if level < depth {
				desc.Children = []heart.Fragment{ctx.Child(ctx.ChildKey("next"), link(level+1), v)}
			}
			return desc
		})
	}

	gen := heart.GeneratorFunc(func(ctx *heart.Context) heart.Description {
		value = heart.Listenable(ctx, 0)
		v := heart.Listen(ctx, value)
		return heart.Description{
			Payload:  fmt.Sprintf("chain = %d", v),
			Children: []heart.Fragment{ctx.Child(ctx.ChildKey("next"), link(1), v)},
		}
	})

	return &Scenario{
		Name: "chain",
		Root: &heart.UnevaluatedFragment{Key: root, Gen: gen},
		Step: func(th heart.ThreadContext, frame int) {
			heart.Shout(th, value, frame+1)
		},
	}
}
