package heart

import (
	"reflect"

	"github.com/vango-dev/heart/internal/errors"
	"github.com/vango-dev/heart/pkg/arena"
	"github.com/vango-dev/heart/pkg/key"
	"github.com/vango-dev/heart/pkg/layout"
)

// Fragment is a handle to a slot in the fragment arena.
type Fragment arena.Idx

// String returns the handle formatted as "#n".
func (f Fragment) String() string {
	return arena.Idx(f).String()
}

// Entry is the state held by a fragment slot: either *UnevaluatedFragment
// or *EvaluatedFragment.
type Entry interface {
	FragmentKey() key.Key
	isEntry()
}

// UnevaluatedFragment is a fragment whose generator has not run yet.
type UnevaluatedFragment struct {
	Key key.Key
	Gen Generator
}

// FragmentKey implements Entry.
func (u *UnevaluatedFragment) FragmentKey() key.Key { return u.Key }

func (*UnevaluatedFragment) isEntry() {}

// EvaluatedFragment is the result of running a fragment's generator: its
// layout node and its children in declaration order.
type EvaluatedFragment struct {
	Key key.Key
	Gen Generator

	// Layout is the node registered with the layout collaborator.
	Layout layout.Handle

	// Index is the fragment's own arena slot.
	Index Fragment

	Children []Fragment
}

// FragmentKey implements Entry.
func (e *EvaluatedFragment) FragmentKey() key.Key { return e.Key }

func (*EvaluatedFragment) isEntry() {}

// Args are the call arguments most recently supplied to a fragment.
type Args []any

// Equal reports whether two argument lists hold equal values. Values are
// compared the way signal values are: == for basic types, deep equality
// otherwise. Functions never compare equal unless both are nil.
func (a Args) Equal(b Args) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !valueEquals(a[i], b[i]) {
			return false
		}
	}
	return true
}

func valueEquals(a, b any) bool {
	switch av := a.(type) {
	case int:
		bv, ok := b.(int)
		return ok && av == bv
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	default:
		return reflect.DeepEqual(a, b)
	}
}

// FragmentInfo is the content of one arena slot. Entry is nil only while
// the slot is being constructed.
type FragmentInfo struct {
	Entry Entry
	Args  Args
}

// FragmentStore is the fragment arena. It is owned by the goroutine driving
// the evaluator and is not safe for concurrent use.
type FragmentStore struct {
	data  arena.FreeList[FragmentInfo]
	byKey map[key.Key]Fragment
	dirty []Fragment
}

// NewFragmentStore creates an empty arena.
func NewFragmentStore() *FragmentStore {
	return &FragmentStore{byKey: make(map[key.Key]Fragment)}
}

// AllocateEmpty reserves a slot without fragment state.
func (s *FragmentStore) AllocateEmpty() Fragment {
	return Fragment(s.data.Add(FragmentInfo{}))
}

// Populate fills the slot from init if it is still empty.
func (s *FragmentStore) Populate(idx Fragment, init func() *UnevaluatedFragment) Fragment {
	info := s.data.At(arena.Idx(idx))
	if info.Entry == nil {
		u := init()
		info.Entry = u
		s.byKey[u.Key] = idx
	}
	return idx
}

// Get returns the state of a populated slot. Empty slots are fatal.
func (s *FragmentStore) Get(idx Fragment) Entry {
	info, ok := s.data.Get(arena.Idx(idx))
	if !ok || info.Entry == nil {
		errors.Fail("H008", "fragment %s", idx)
	}
	return info.Entry
}

func (s *FragmentStore) mustEvaluated(idx Fragment) *EvaluatedFragment {
	e, ok := s.Get(idx).(*EvaluatedFragment)
	if !ok {
		errors.Fail("H001", "fragment %s", idx)
	}
	return e
}

func (s *FragmentStore) mustUnevaluated(idx Fragment) *UnevaluatedFragment {
	u, ok := s.Get(idx).(*UnevaluatedFragment)
	if !ok {
		errors.Fail("H002", "fragment %s", idx)
	}
	return u
}

// setEntry replaces the state of a populated slot.
func (s *FragmentStore) setEntry(idx Fragment, e Entry) {
	s.data.At(arena.Idx(idx)).Entry = e
}

// Lookup returns the live fragment registered under k.
func (s *FragmentStore) Lookup(k key.Key) (Fragment, bool) {
	idx, ok := s.byKey[k]
	if !ok || s.IsRemoved(idx) {
		return 0, false
	}
	return idx, true
}

// Args returns the arguments last stored for the fragment.
func (s *FragmentStore) Args(idx Fragment) Args {
	info, ok := s.data.Get(arena.Idx(idx))
	if !ok {
		return nil
	}
	return info.Args
}

// SetArgs stores new arguments and queues the fragment for re-evaluation.
func (s *FragmentStore) SetArgs(idx Fragment, args Args) {
	s.dirty = append(s.dirty, idx)
	s.data.At(arena.Idx(idx)).Args = args
}

// initArgs stores the arguments of a fragment that has not been evaluated.
func (s *FragmentStore) initArgs(idx Fragment, args Args) {
	s.data.At(arena.Idx(idx)).Args = args
}

// DrainDirtyArgs returns the queued fragments, most recently queued first,
// and clears the queue.
func (s *FragmentStore) DrainDirtyArgs() []Fragment {
	n := len(s.dirty)
	out := make([]Fragment, n)
	for i, f := range s.dirty {
		out[n-1-i] = f
	}
	s.dirty = s.dirty[:0]
	return out
}

// Remove clears and frees the slot.
func (s *FragmentStore) Remove(idx Fragment) {
	if info, ok := s.data.Get(arena.Idx(idx)); ok && info.Entry != nil {
		k := info.Entry.FragmentKey()
		if s.byKey[k] == idx {
			delete(s.byKey, k)
		}
	}
	s.data.Remove(arena.Idx(idx))
}

// IsRemoved reports whether the slot was freed or never populated.
func (s *FragmentStore) IsRemoved(idx Fragment) bool {
	info, ok := s.data.Get(arena.Idx(idx))
	return !ok || info.Entry == nil
}

// Len returns the number of allocated slots.
func (s *FragmentStore) Len() int {
	return s.data.Len()
}
