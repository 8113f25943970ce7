// Package state implements the versioned state store behind fragment hooks.
//
// The store keeps two layers:
//
//   - committed cells, each holding a value and the set of fragments that
//     read it since it was last consumed
//   - pending patches, buffered writes that stay invisible to the committed
//     layer until Commit
//
// Writers may run on any goroutine. Commit is called by the single
// goroutine driving an update cycle; it drains every patch atomically with
// respect to concurrent writes, so no write is lost and none is applied
// twice.
package state

import (
	"sort"
	"sync"

	"github.com/vango-dev/heart/pkg/arena"
	"github.com/vango-dev/heart/pkg/key"
)

// ExternalBit marks hook slots allocated outside a fragment's local
// sequence. Local slots use the low 15 bits only.
const ExternalBit uint16 = 1 << 15

// MaxSlot is the largest slot number available to each kind of hook.
const MaxSlot = ExternalBit - 1

// HookKey identifies one state cell within a fragment's state.
type HookKey struct {
	Key  key.Key
	Slot uint16
}

// External reports whether the slot belongs to the external hook space.
func (h HookKey) External() bool {
	return h.Slot&ExternalBit != 0
}

// HookRef is a resolved location of a state cell.
type HookRef struct {
	HookKey
	Idx arena.Idx
}

// cell is one committed state value with its readers.
type cell struct {
	dependents map[arena.Idx]struct{}
	value      any
}

// Patch is a buffered write awaiting Commit.
type Patch struct {
	Origin HookKey
	Value  any
}

// Store is the versioned state store.
type Store struct {
	// mu guards data and index.
	mu    sync.RWMutex
	data  arena.FreeList[cell]
	index map[key.Key]map[uint16]arena.Idx

	// patchMu guards patches. It is never held together with mu by
	// writers, so a Write does not wait for an evaluation pass.
	patchMu sync.Mutex
	patches map[arena.Idx]Patch
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		index:   make(map[key.Key]map[uint16]arena.Idx),
		patches: make(map[arena.Idx]Patch),
	}
}

// Initialize returns the cell for k, allocating it with value on first use.
// Later calls return the same cell and leave its value untouched.
func (s *Store) Initialize(k HookKey, value any) HookRef {
	return s.InitializeWith(k, func() any { return value })
}

// InitializeWith is Initialize with a lazily built initial value. gen runs
// only when the cell is allocated.
func (s *Store) InitializeWith(k HookKey, gen func() any) HookRef {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots, ok := s.index[k.Key]
	if !ok {
		slots = make(map[uint16]arena.Idx)
		s.index[k.Key] = slots
	}
	if idx, ok := slots[k.Slot]; ok {
		return HookRef{HookKey: k, Idx: idx}
	}

	idx := s.data.Add(cell{value: gen()})
	slots[k.Slot] = idx
	return HookRef{HookKey: k, Idx: idx}
}

// Lookup returns the cell registered for k without allocating one.
func (s *Store) Lookup(k HookKey) (HookRef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.index[k.Key][k.Slot]
	if !ok {
		return HookRef{}, false
	}
	return HookRef{HookKey: k, Idx: idx}, true
}

// Read returns the pending value of the cell if a patch exists, otherwise
// the committed value. It does not register a dependency.
func (s *Store) Read(ref HookRef) any {
	s.patchMu.Lock()
	p, ok := s.patches[ref.Idx]
	s.patchMu.Unlock()
	if ok {
		return p.Value
	}
	return s.ReadCommitted(ref)
}

// ReadCommitted returns the committed value, ignoring pending patches.
// Reading a released cell returns nil.
func (s *Store) ReadCommitted(ref HookRef) any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.data.Get(ref.Idx)
	if !ok {
		return nil
	}
	return c.value
}

// Write buffers value for the cell. The last write before Commit wins.
func (s *Store) Write(ref HookRef, value any) {
	s.patchMu.Lock()
	defer s.patchMu.Unlock()
	s.patches[ref.Idx] = Patch{Origin: ref.HookKey, Value: value}
}

// DropPatch discards the pending write for the cell, if any.
func (s *Store) DropPatch(ref HookRef) {
	s.patchMu.Lock()
	defer s.patchMu.Unlock()
	delete(s.patches, ref.Idx)
}

// Pending returns the number of buffered writes.
func (s *Store) Pending() int {
	s.patchMu.Lock()
	defer s.patchMu.Unlock()
	return len(s.patches)
}

// Commit applies every buffered write to the committed layer and returns
// the touched cells in ascending index order. Writes to cells released
// since they were buffered are discarded.
func (s *Store) Commit() []HookRef {
	s.patchMu.Lock()
	patches := s.patches
	s.patches = make(map[arena.Idx]Patch, len(patches))
	s.patchMu.Unlock()

	if len(patches) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	touched := make([]HookRef, 0, len(patches))
	for idx, p := range patches {
		if s.data.Removed(idx) {
			continue
		}
		if s.index[p.Origin.Key][p.Origin.Slot] != idx {
			continue
		}
		s.data.At(idx).value = p.Value
		touched = append(touched, HookRef{HookKey: p.Origin, Idx: idx})
	}

	sort.Slice(touched, func(i, j int) bool { return touched[i].Idx < touched[j].Idx })
	return touched
}

// SetDependent records frag as a reader of the cell.
func (s *Store) SetDependent(ref HookRef, frag arena.Idx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data.Removed(ref.Idx) {
		return
	}
	c := s.data.At(ref.Idx)
	if c.dependents == nil {
		c.dependents = make(map[arena.Idx]struct{})
	}
	c.dependents[frag] = struct{}{}
}

// TakeDependents returns the readers of the cell and clears the set.
// A fragment must read the cell again to be notified of the next change.
func (s *Store) TakeDependents(ref HookRef) []arena.Idx {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data.Removed(ref.Idx) {
		return nil
	}
	c := s.data.At(ref.Idx)
	out := make([]arena.Idx, 0, len(c.dependents))
	for f := range c.dependents {
		out = append(out, f)
	}
	c.dependents = nil

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RemoveWidget releases every cell registered under k together with any
// pending writes to them.
func (s *Store) RemoveWidget(k key.Key) {
	s.mu.Lock()
	slots, ok := s.index[k]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.index, k)
	freed := make([]arena.Idx, 0, len(slots))
	for _, idx := range slots {
		s.data.Remove(idx)
		freed = append(freed, idx)
	}
	s.mu.Unlock()

	s.patchMu.Lock()
	for _, idx := range freed {
		if p, ok := s.patches[idx]; ok && p.Origin.Key == k {
			delete(s.patches, idx)
		}
	}
	s.patchMu.Unlock()
}

// Len returns the number of live cells.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Len()
}

// Keys returns the number of keys that own at least one cell.
func (s *Store) Keys() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}
