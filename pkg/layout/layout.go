// Package layout defines the collaborator that receives the structure of the
// evaluated fragment tree.
//
// The engine never computes positions or sizes. It only tells a Layouter
// which nodes exist, what properties they carry and how they nest. Tree is a
// reference Layouter that keeps the structure in memory, records every
// operation and can serialize itself for inspection.
package layout

import "fmt"

// Handle names a node registered with a Layouter. The zero Handle is never
// returned by AddNode.
type Handle uint32

// String returns the handle formatted as "@n".
func (h Handle) String() string {
	return fmt.Sprintf("@%d", uint32(h))
}

// Layouter receives structural notifications from the evaluator.
//
// Children are always added before they are referenced in SetChildren, and
// RemoveNode is the last call made for a handle.
type Layouter interface {
	// AddNode registers a node and returns its handle.
	AddNode(style, payload any, clipper bool) Handle

	// SetChildren replaces the ordered children of a node.
	SetChildren(h Handle, children []Handle)

	// SetNode replaces the properties of a node.
	SetNode(h Handle, style, payload any, clipper bool)

	// RemoveNode releases a node.
	RemoveNode(h Handle)
}

// OpKind is the type of a recorded layout operation.
type OpKind uint8

const (
	OpAddNode     OpKind = 0x01 // Node registered
	OpSetChildren OpKind = 0x02 // Children replaced
	OpSetNode     OpKind = 0x03 // Properties replaced
	OpRemoveNode  OpKind = 0x04 // Node released
)

// String returns the string representation of the OpKind.
func (k OpKind) String() string {
	switch k {
	case OpAddNode:
		return "AddNode"
	case OpSetChildren:
		return "SetChildren"
	case OpSetNode:
		return "SetNode"
	case OpRemoveNode:
		return "RemoveNode"
	default:
		return "Unknown"
	}
}

// Op is one recorded call on a Tree.
type Op struct {
	Kind     OpKind
	Handle   Handle
	Children []Handle // For SetChildren
}

// String formats the op for logs and CLI output.
func (o Op) String() string {
	if o.Kind == OpSetChildren {
		return fmt.Sprintf("%s %s %v", o.Kind, o.Handle, o.Children)
	}
	return fmt.Sprintf("%s %s", o.Kind, o.Handle)
}
