package key

import (
	"sync"
	"testing"
)

func TestSource_Unique(t *testing.T) {
	var s Source
	seen := make(map[Key]bool)
	for i := 0; i < 1000; i++ {
		k := s.Next()
		if seen[k] {
			t.Fatalf("Source returned %v twice", k)
		}
		seen[k] = true
	}
}

func TestSource_Concurrent(t *testing.T) {
	var s Source
	var mu sync.Mutex
	seen := make(map[Key]bool)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				k := s.Next()
				mu.Lock()
				seen[k] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != 800 {
		t.Errorf("got %d unique keys, want 800", len(seen))
	}
}

func TestSources_AreIndependent(t *testing.T) {
	var a, b Source
	if a.Next() != b.Next() {
		t.Error("fresh sources should start from the same point")
	}
}

func TestDerive_Deterministic(t *testing.T) {
	parent := Key(7)

	if Derive(parent, "item") != Derive(parent, "item") {
		t.Error("Derive is not deterministic")
	}
	if Derive(parent, "a") == Derive(parent, "b") {
		t.Error("different names produced the same key")
	}
	if Derive(Key(1), "a") == Derive(Key(2), "a") {
		t.Error("different parents produced the same key")
	}
}

func TestDeriveIndex(t *testing.T) {
	parent := Key(99)
	keys := make(map[Key]bool)
	for i := 0; i < 100; i++ {
		keys[DeriveIndex(parent, i)] = true
	}
	if len(keys) != 100 {
		t.Errorf("got %d distinct positional keys, want 100", len(keys))
	}
	if DeriveIndex(parent, 3) != DeriveIndex(parent, 3) {
		t.Error("DeriveIndex is not deterministic")
	}
}

func TestMap(t *testing.T) {
	m := NewMap()
	k := Key(0xabc)

	if got := m.Debug(k); got != "0000000000000abc" {
		t.Errorf("Debug() for unknown key = %q", got)
	}

	m.Register(k, "root/counter")
	if got := m.Debug(k); got != "root/counter" {
		t.Errorf("Debug() = %q, want %q", got, "root/counter")
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}

	m.Remove(k)
	if _, ok := m.Label(k); ok {
		t.Error("label still present after Remove")
	}
}

func TestMap_NilDebug(t *testing.T) {
	var m *Map
	if got := m.Debug(Key(1)); got != "0000000000000001" {
		t.Errorf("nil Map Debug() = %q", got)
	}
}

func TestMap_Entries(t *testing.T) {
	m := NewMap()
	m.Register(Key(2), "b")
	m.Register(Key(1), "a")
	m.Register(Key(3), "c")

	entries := m.Entries()
	if len(entries) != 3 {
		t.Fatalf("Entries() len = %d, want 3", len(entries))
	}
	for i, want := range []string{"a", "b", "c"} {
		if entries[i].Label != want {
			t.Errorf("entries[%d].Label = %q, want %q", i, entries[i].Label, want)
		}
	}
}
