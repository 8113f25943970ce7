package arena

import "testing"

func TestFreeList_AddAndGet(t *testing.T) {
	var f FreeList[string]

	a := f.Add("a")
	b := f.Add("b")

	if a == b {
		t.Fatalf("expected distinct handles, got %v twice", a)
	}
	if !a.Valid() || !b.Valid() {
		t.Fatal("expected handles to be valid")
	}
	if got := *f.At(a); got != "a" {
		t.Errorf("At(a) = %q, want %q", got, "a")
	}
	if got, ok := f.Get(b); !ok || got != "b" {
		t.Errorf("Get(b) = %q, %v; want %q, true", got, ok, "b")
	}
	if f.Len() != 2 {
		t.Errorf("Len() = %d, want 2", f.Len())
	}
}

func TestFreeList_RemoveRecyclesSlot(t *testing.T) {
	var f FreeList[int]

	a := f.Add(1)
	f.Add(2)
	f.Remove(a)

	if !f.Removed(a) {
		t.Fatal("expected slot to be removed")
	}
	if _, ok := f.Get(a); ok {
		t.Error("Get on removed slot should report false")
	}
	if f.Len() != 1 {
		t.Errorf("Len() = %d, want 1", f.Len())
	}

	c := f.Add(3)
	if c != a {
		t.Errorf("expected freed slot %v to be reused, got %v", a, c)
	}
	if got := *f.At(c); got != 3 {
		t.Errorf("At(c) = %d, want 3", got)
	}
	if f.Cap() != 2 {
		t.Errorf("Cap() = %d, want 2", f.Cap())
	}
}

func TestFreeList_RemovedEdgeCases(t *testing.T) {
	var f FreeList[int]

	tests := []struct {
		name string
		idx  Idx
	}{
		{"zero handle", 0},
		{"never allocated", 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !f.Removed(tt.idx) {
				t.Errorf("Removed(%v) = false, want true", tt.idx)
			}
			f.Remove(tt.idx) // no-op, must not panic
		})
	}

	a := f.Add(7)
	f.Remove(a)
	f.Remove(a)
	if f.Len() != 0 {
		t.Errorf("double remove changed Len to %d", f.Len())
	}
}

func TestFreeList_AtPanicsOnFreeSlot(t *testing.T) {
	var f FreeList[int]
	a := f.Add(1)
	f.Remove(a)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	f.At(a)
}

func TestFreeList_Each(t *testing.T) {
	var f FreeList[int]
	f.Add(10)
	b := f.Add(20)
	f.Add(30)
	f.Remove(b)

	var seen []int
	f.Each(func(_ Idx, v *int) bool {
		seen = append(seen, *v)
		return true
	})
	if len(seen) != 2 || seen[0] != 10 || seen[1] != 30 {
		t.Errorf("Each visited %v, want [10 30]", seen)
	}

	count := 0
	f.Each(func(Idx, *int) bool {
		count++
		return false
	})
	if count != 1 {
		t.Errorf("Each did not stop early, visited %d", count)
	}
}
