package heart

// Description is what a generator produces for one evaluation: the layout
// properties of the fragment's node, an opaque render payload and the
// ordered child fragments.
type Description struct {
	Style    any
	Payload  any
	Children []Fragment
	Clipper  bool
}

// Generator builds a fragment's description. Generators run on the
// evaluator's goroutine and must be re-runnable: every call may be asked to
// produce a fresh description of the same fragment.
type Generator interface {
	Generate(ctx *Context) Description
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx *Context) Description

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx *Context) Description {
	return f(ctx)
}

// Leaf returns a generator that always produces a childless node.
func Leaf(style, payload any) Generator {
	return GeneratorFunc(func(*Context) Description {
		return Description{Style: style, Payload: payload}
	})
}
