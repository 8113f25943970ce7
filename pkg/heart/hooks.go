package heart

import (
	"fmt"

	"github.com/vango-dev/heart/internal/errors"
	"github.com/vango-dev/heart/pkg/arena"
	"github.com/vango-dev/heart/pkg/state"
)

// Hook is a typed handle to a state cell.
type Hook[T any] struct {
	ref state.HookRef
}

// Ref returns the underlying cell reference.
func (h Hook[T]) Ref() state.HookRef { return h.ref }

// Listenable allocates the next hook of ctx, holding initial on first use.
// On later evaluations it returns the same cell with its current value.
func Listenable[T any](ctx *Context, initial T) Hook[T] {
	return Hook[T]{ref: ctx.Store().Initialize(ctx.KeyForHook(), initial)}
}

// ListenableWith is Listenable with a lazily built initial value.
func ListenableWith[T any](ctx *Context, gen func() T) Hook[T] {
	return Hook[T]{ref: ctx.Store().InitializeWith(ctx.KeyForHook(), func() any { return gen() })}
}

// Listen reads the hook and subscribes the fragment being evaluated to its
// next committed change.
func Listen[T any](ctx *Context, h Hook[T]) T {
	v := ctx.Store().Read(h.ref)
	ctx.Store().SetDependent(h.ref, arena.Idx(ctx.Fragment()))
	return cast[T](v, h.ref)
}

// Peek reads the hook without subscribing.
func Peek[T any](sa StateAccess, h Hook[T]) T {
	return cast[T](sa.Store().Read(h.ref), h.ref)
}

// Shout buffers a new value for the hook. It becomes visible to readers of
// the committed layer at the start of the next update cycle.
func Shout[T any](sa StateAccess, h Hook[T], v T) {
	sa.Store().Write(h.ref, v)
}

// Modify shouts the result of applying fn to the hook's latest value.
// Read and write are not atomic with respect to other writers.
func Modify[T any](sa StateAccess, h Hook[T], fn func(T) T) {
	Shout(sa, h, fn(Peek(sa, h)))
}

// Arg returns argument i of the fragment being evaluated. A missing
// argument yields the zero value; an argument of another type is fatal.
func Arg[T any](ctx *Context, i int) T {
	args := ctx.Args()
	var zero T
	if i < 0 || i >= len(args) || args[i] == nil {
		return zero
	}
	v, ok := args[i].(T)
	if !ok {
		errors.Fail("H007", "argument %d is %T, want %T", i, args[i], zero)
	}
	return v
}

func cast[T any](v any, ref state.HookRef) T {
	var zero T
	if v == nil {
		return zero
	}
	t, ok := v.(T)
	if !ok {
		errors.Fail("H007", "%s holds %T, want %T", describeRef(ref), v, zero)
	}
	return t
}

func describeRef(ref state.HookRef) string {
	if ref.External() {
		return fmt.Sprintf("hook %s/ext%d", ref.Key, ref.Slot&^state.ExternalBit)
	}
	return fmt.Sprintf("hook %s/%d", ref.Key, ref.Slot)
}
