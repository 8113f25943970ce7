package heart

import (
	"log/slog"

	"github.com/vango-dev/heart/internal/errors"
	"github.com/vango-dev/heart/pkg/key"
	"github.com/vango-dev/heart/pkg/layout"
	"github.com/vango-dev/heart/pkg/state"
)

// StateAccess is anything that can reach the state store: a Context during
// evaluation, a ThreadContext on another goroutine or a CallbackContext
// after a frame.
type StateAccess interface {
	Store() *state.Store
}

// AfterFrameCallback runs once, after the frame in which it was registered.
type AfterFrameCallback func(cc CallbackContext)

// externalHooks counts the external slots handed out per key.
type externalHooks struct {
	counts map[key.Key]uint16
}

func (e *externalHooks) next(k key.Key) state.HookKey {
	n := e.counts[k]
	if n > state.MaxSlot {
		errors.Fail("H005", "key %s", k)
	}
	e.counts[k] = n + 1
	return state.HookKey{Key: k, Slot: n | state.ExternalBit}
}

func (e *externalHooks) reset(k key.Key) {
	delete(e.counts, k)
}

// scope is the widget whose hooks a Context allocates.
type scope struct {
	key   key.Key
	frag  Fragment
	hooks int
}

// Context is handed to a generator for the duration of one evaluation.
// It must not be retained after Generate returns.
type Context struct {
	ev    *Evaluator
	scope *scope
	local bool
}

func newContext(ev *Evaluator, k key.Key, f Fragment) *Context {
	return &Context{ev: ev, scope: &scope{key: k, frag: f}, local: true}
}

// Key returns the key of the widget whose hooks this context allocates.
func (c *Context) Key() key.Key { return c.scope.key }

// Fragment returns the fragment being evaluated.
func (c *Context) Fragment() Fragment { return c.scope.frag }

// Args returns the arguments last supplied to the fragment being evaluated.
func (c *Context) Args() Args { return c.ev.frags.Args(c.scope.frag) }

// Store implements StateAccess.
func (c *Context) Store() *state.Store { return c.ev.store }

// Keys returns the label registry.
func (c *Context) Keys() *key.Map { return c.ev.keys }

// Logger returns the evaluator's logger.
func (c *Context) Logger() *slog.Logger { return c.ev.logger }

// KeyForHook returns the next hook key. Local contexts number hooks in call
// order, so a generator that calls its hooks in the same order on every run
// gets the same cells back. External contexts hand out a new slot on every
// call.
func (c *Context) KeyForHook() state.HookKey {
	if !c.local {
		return c.ev.external.next(c.scope.key)
	}
	n := c.scope.hooks
	if n > int(state.MaxSlot) {
		errors.Fail("H004", "key %s", c.ev.keys.Debug(c.scope.key))
	}
	c.scope.hooks++
	return state.HookKey{Key: c.scope.key, Slot: uint16(n)}
}

// External returns a view of this context that allocates hooks from the
// widget's external slot space.
func (c *Context) External() *Context {
	return &Context{ev: c.ev, scope: c.scope, local: false}
}

// WithKeyWidget runs fn with a context whose local hooks belong to k.
// Reads made through it still subscribe the fragment being evaluated.
func (c *Context) WithKeyWidget(k key.Key, fn func(ctx *Context)) {
	fn(&Context{ev: c.ev, scope: &scope{key: k, frag: c.scope.frag}, local: true})
}

// Thread returns a handle for writing state from other goroutines.
func (c *Context) Thread() ThreadContext {
	return ThreadContext{store: c.ev.store}
}

// AfterFrame registers cb to run on the next RunAfterFrame.
func (c *Context) AfterFrame(cb AfterFrameCallback) {
	c.ev.callbacks = append(c.ev.callbacks, cb)
}

// ChildKey derives a stable key for a child named name and registers a
// readable label for it.
func (c *Context) ChildKey(name string) key.Key {
	k := key.Derive(c.scope.key, name)
	if _, ok := c.ev.keys.Label(k); !ok {
		c.ev.keys.Register(k, c.ev.keys.Debug(c.scope.key)+"/"+name)
	}
	return k
}

// Child returns the fragment for k, creating it from gen the first time k
// is seen. A new fragment stores args without being queued; it is
// evaluated together with its parent. When args differ from the arguments
// stored on an existing fragment they are replaced and the fragment is
// queued for re-evaluation in the current cycle. gen is ignored for
// existing fragments.
func (c *Context) Child(k key.Key, gen Generator, args ...any) Fragment {
	frags := c.ev.frags
	f, ok := frags.Lookup(k)
	if !ok {
		f = frags.AllocateEmpty()
		frags.Populate(f, func() *UnevaluatedFragment {
			return &UnevaluatedFragment{Key: k, Gen: gen}
		})
		frags.initArgs(f, args)
		c.ev.logger.Debug("initialized a new fragment",
			"key", c.ev.keys.Debug(k), "fragment", f)
		return f
	}
	if !Args(args).Equal(frags.Args(f)) {
		frags.SetArgs(f, args)
	}
	return f
}

// ThreadContext writes state from outside the evaluator's goroutine.
// It is a small value and may be copied freely.
type ThreadContext struct {
	store *state.Store
}

// Store implements StateAccess.
func (t ThreadContext) Store() *state.Store { return t.store }

// CallbackContext is passed to after-frame callbacks.
type CallbackContext struct {
	ev *Evaluator
}

// Store implements StateAccess.
func (cc CallbackContext) Store() *state.Store { return cc.ev.store }

// Keys returns the label registry.
func (cc CallbackContext) Keys() *key.Map { return cc.ev.keys }

// Layouter returns the layout collaborator.
func (cc CallbackContext) Layouter() layout.Layouter { return cc.ev.layout }

// Lookup returns the live fragment registered under k.
func (cc CallbackContext) Lookup(k key.Key) (Fragment, bool) {
	return cc.ev.frags.Lookup(k)
}

// Handle returns the layout node of an evaluated fragment.
func (cc CallbackContext) Handle(f Fragment) (layout.Handle, bool) {
	e, ok := cc.ev.Evaluated(f)
	if !ok {
		return 0, false
	}
	return e.Layout, true
}
