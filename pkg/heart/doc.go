// Package heart is an incremental evaluation engine for trees of fragments.
//
// A fragment is a keyed node produced by a Generator. Generators read state
// through hooks, and every read records the fragment as a dependent of the
// cell it touched. Writes are buffered in the state store until the next
// update cycle, which commits them and re-evaluates exactly the fragments
// that read a changed cell, plus any fragment whose arguments changed as a
// consequence.
//
// # Building a tree
//
//	root := &heart.UnevaluatedFragment{
//	    Key: src.Next(),
//	    Gen: heart.GeneratorFunc(func(ctx *heart.Context) heart.Description {
//	        count := heart.Listenable(ctx, 0)
//	        n := heart.Listen(ctx, count)
//	        label := ctx.Child(ctx.ChildKey("label"), labelGen, n)
//	        return heart.Description{Payload: n, Children: []heart.Fragment{label}}
//	    }),
//	}
//	ev := heart.New(root, layout.NewTree())
//
// # Update cycle
//
// Writers call Shout from any goroutine; the owner of the evaluator calls
// Update once per frame:
//
//	heart.Shout(ev.Thread(), count, 5)
//	changed := ev.Update(ctx)
//	ev.RunAfterFrame()
//
// Children are matched across evaluations by key. Children that disappear
// are torn down together with their state cells and layout nodes; children
// that stay keep their state.
//
// # Failures
//
// Broken invariants such as duplicate sibling keys, exhausted hook slots
// or a non-converging update panic with a fatal *errors.HeartError from the
// internal errors package.
package heart
