package layout

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/vango-dev/heart/internal/errors"
	"github.com/vango-dev/heart/pkg/arena"
)

type node struct {
	style    any
	payload  any
	clipper  bool
	children []Handle
}

// Tree is an in-memory Layouter. It is safe for concurrent use so a reader
// can snapshot it while an update cycle is running.
type Tree struct {
	mu     sync.RWMutex
	nodes  arena.FreeList[node]
	ops    []Op
	record bool
}

// NewTree creates an empty tree that records every operation.
func NewTree() *Tree {
	return &Tree{record: true}
}

// SetRecording turns the operation log on or off.
func (t *Tree) SetRecording(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record = on
}

func (t *Tree) log(op Op) {
	if t.record {
		t.ops = append(t.ops, op)
	}
}

// mustNode returns the node for h. Unknown handles are fatal: the evaluator
// must never reference a node it did not add or already removed.
func (t *Tree) mustNode(h Handle) *node {
	if t.nodes.Removed(arena.Idx(h)) {
		errors.Fail("H009", "layout handle %s", h)
	}
	return t.nodes.At(arena.Idx(h))
}

// AddNode implements Layouter.
func (t *Tree) AddNode(style, payload any, clipper bool) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := Handle(t.nodes.Add(node{style: style, payload: payload, clipper: clipper}))
	t.log(Op{Kind: OpAddNode, Handle: h})
	return h
}

// SetChildren implements Layouter.
func (t *Tree) SetChildren(h Handle, children []Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.mustNode(h)
	for _, c := range children {
		t.mustNode(c)
	}
	n.children = append([]Handle(nil), children...)
	t.log(Op{Kind: OpSetChildren, Handle: h, Children: n.children})
}

// SetNode implements Layouter.
func (t *Tree) SetNode(h Handle, style, payload any, clipper bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.mustNode(h)
	n.style = style
	n.payload = payload
	n.clipper = clipper
	t.log(Op{Kind: OpSetNode, Handle: h})
}

// RemoveNode implements Layouter.
func (t *Tree) RemoveNode(h Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.mustNode(h)
	t.nodes.Remove(arena.Idx(h))
	t.log(Op{Kind: OpRemoveNode, Handle: h})
}

// Has reports whether h names a live node.
func (t *Tree) Has(h Handle) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return !t.nodes.Removed(arena.Idx(h))
}

// Children returns a copy of the children of h.
func (t *Tree) Children(h Handle) []Handle {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes.Get(arena.Idx(h))
	if !ok {
		return nil
	}
	return append([]Handle(nil), n.children...)
}

// Payload returns the render payload of h.
func (t *Tree) Payload(h Handle) any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, _ := t.nodes.Get(arena.Idx(h))
	return n.payload
}

// Style returns the layout properties of h.
func (t *Tree) Style(h Handle) any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, _ := t.nodes.Get(arena.Idx(h))
	return n.style
}

// Len returns the number of live nodes.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nodes.Len()
}

// Ops returns the operations recorded since the last call and clears the log.
func (t *Tree) Ops() []Op {
	t.mu.Lock()
	defer t.mu.Unlock()
	ops := t.ops
	t.ops = nil
	return ops
}

// Node is a serializable view of a subtree.
type Node struct {
	Handle   Handle `json:"handle"`
	Style    any    `json:"style,omitempty"`
	Payload  any    `json:"payload,omitempty"`
	Clipper  bool   `json:"clipper,omitempty"`
	Children []Node `json:"children,omitempty"`
}

// Snapshot returns the subtree rooted at h. An unknown root yields nil.
func (t *Tree) Snapshot(h Handle) *Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.nodes.Removed(arena.Idx(h)) {
		return nil
	}
	n := t.snapshot(h)
	return &n
}

func (t *Tree) snapshot(h Handle) Node {
	n := t.nodes.At(arena.Idx(h))
	out := Node{Handle: h, Style: n.style, Payload: n.payload, Clipper: n.clipper}
	for _, c := range n.children {
		out.Children = append(out.Children, t.snapshot(c))
	}
	return out
}

// Dump writes an indented outline of the subtree rooted at h.
func (t *Tree) Dump(w io.Writer, h Handle) {
	root := t.Snapshot(h)
	if root == nil {
		fmt.Fprintf(w, "%s <removed>\n", h)
		return
	}
	dump(w, *root, 0)
}

func dump(w io.Writer, n Node, depth int) {
	fmt.Fprintf(w, "%s%s", strings.Repeat("  ", depth), n.Handle)
	if n.Payload != nil {
		fmt.Fprintf(w, " %v", n.Payload)
	}
	if n.Clipper {
		fmt.Fprint(w, " [clip]")
	}
	fmt.Fprintln(w)
	for _, c := range n.Children {
		dump(w, c, depth+1)
	}
}
