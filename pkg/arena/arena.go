// Package arena provides an index-addressed store with a free-slot list.
//
// Slots are addressed by Idx handles instead of pointers so that cyclic
// structures (parent/child fragments, state cells and their dependents) can
// refer to each other without owning each other. Handles start at 1; the
// zero Idx never names a slot.
//
// FreeList is not safe for concurrent use. Callers that share one across
// goroutines must guard it themselves.
package arena

import "fmt"

// Idx is a handle to a slot in a FreeList.
type Idx uint32

// Valid reports whether the handle can name a slot at all.
func (i Idx) Valid() bool {
	return i != 0
}

// String returns the handle formatted as "#n".
func (i Idx) String() string {
	return fmt.Sprintf("#%d", uint32(i))
}

type slot[T any] struct {
	value T
	live  bool
}

// FreeList is a dense growable store that recycles freed slots.
type FreeList[T any] struct {
	slots []slot[T]
	free  []Idx
	live  int
}

// Add stores value in a free slot (or a new one) and returns its handle.
func (f *FreeList[T]) Add(value T) Idx {
	f.live++
	if n := len(f.free); n > 0 {
		idx := f.free[n-1]
		f.free = f.free[:n-1]
		f.slots[idx-1] = slot[T]{value: value, live: true}
		return idx
	}
	f.slots = append(f.slots, slot[T]{value: value, live: true})
	return Idx(len(f.slots))
}

// Remove frees the slot and zeroes its value. Removing a free or unknown
// slot is a no-op.
func (f *FreeList[T]) Remove(idx Idx) {
	if f.Removed(idx) {
		return
	}
	f.slots[idx-1] = slot[T]{}
	f.free = append(f.free, idx)
	f.live--
}

// Removed reports whether idx does not name a live slot.
func (f *FreeList[T]) Removed(idx Idx) bool {
	if !idx.Valid() || int(idx) > len(f.slots) {
		return true
	}
	return !f.slots[idx-1].live
}

// At returns a pointer to the value in a live slot.
// It panics if the slot is not live.
func (f *FreeList[T]) At(idx Idx) *T {
	if f.Removed(idx) {
		panic(fmt.Sprintf("arena: access to free slot %s", idx))
	}
	return &f.slots[idx-1].value
}

// Get returns the value in a slot and whether the slot is live.
func (f *FreeList[T]) Get(idx Idx) (T, bool) {
	if f.Removed(idx) {
		var zero T
		return zero, false
	}
	return f.slots[idx-1].value, true
}

// Len returns the number of live slots.
func (f *FreeList[T]) Len() int {
	return f.live
}

// Cap returns the number of slots ever allocated, live or free.
func (f *FreeList[T]) Cap() int {
	return len(f.slots)
}

// Each calls fn for every live slot in ascending handle order.
// Iteration stops early when fn returns false.
func (f *FreeList[T]) Each(fn func(Idx, *T) bool) {
	for i := range f.slots {
		if !f.slots[i].live {
			continue
		}
		if !fn(Idx(i+1), &f.slots[i].value) {
			return
		}
	}
}
