package heart

import (
	"testing"

	"github.com/vango-dev/heart/internal/errors"
	"github.com/vango-dev/heart/pkg/key"
)

func expectFatal(t *testing.T, code string, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		he := errors.Recovered(recover())
		if he == nil {
			t.Fatalf("expected fatal %s, got none", code)
		}
		if he.Code != code {
			t.Fatalf("expected fatal %s, got %s", code, he.Error())
		}
		if !he.Fatal {
			t.Errorf("%s not marked fatal", code)
		}
	}()
	fn()
}

func TestFragmentStore_PopulateOnce(t *testing.T) {
	s := NewFragmentStore()
	idx := s.AllocateEmpty()
	if !s.IsRemoved(idx) {
		t.Error("empty slot should report removed")
	}

	calls := 0
	init := func() *UnevaluatedFragment {
		calls++
		return &UnevaluatedFragment{Key: key.Key(7)}
	}
	s.Populate(idx, init)
	s.Populate(idx, init)

	if calls != 1 {
		t.Errorf("init ran %d times, want 1", calls)
	}
	if got, ok := s.Lookup(key.Key(7)); !ok || got != idx {
		t.Errorf("Lookup() = %v, %v", got, ok)
	}
	if s.Get(idx).FragmentKey() != key.Key(7) {
		t.Error("Get() returned wrong entry")
	}
}

func TestFragmentStore_DrainDirtyArgsReversed(t *testing.T) {
	s := NewFragmentStore()
	var frags []Fragment
	for i := 0; i < 3; i++ {
		f := s.AllocateEmpty()
		s.Populate(f, func() *UnevaluatedFragment { return &UnevaluatedFragment{Key: key.Key(i + 1)} })
		frags = append(frags, f)
	}

	s.SetArgs(frags[0], Args{1})
	s.SetArgs(frags[1], Args{2})
	s.SetArgs(frags[2], Args{3})

	got := s.DrainDirtyArgs()
	want := []Fragment{frags[2], frags[1], frags[0]}
	if len(got) != len(want) {
		t.Fatalf("DrainDirtyArgs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("drain[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if again := s.DrainDirtyArgs(); len(again) != 0 {
		t.Errorf("second drain = %v, want empty", again)
	}
	if s.Args(frags[1])[0] != 2 {
		t.Errorf("Args() = %v", s.Args(frags[1]))
	}
}

func TestFragmentStore_Remove(t *testing.T) {
	s := NewFragmentStore()
	idx := s.AllocateEmpty()
	s.Populate(idx, func() *UnevaluatedFragment { return &UnevaluatedFragment{Key: key.Key(3)} })

	s.Remove(idx)
	if !s.IsRemoved(idx) {
		t.Error("IsRemoved() false after Remove")
	}
	if _, ok := s.Lookup(key.Key(3)); ok {
		t.Error("key still registered after Remove")
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d", s.Len())
	}
	expectFatal(t, "H008", func() { s.Get(idx) })
}

func TestFragmentStore_VariantAssertions(t *testing.T) {
	s := NewFragmentStore()
	idx := s.AllocateEmpty()
	s.Populate(idx, func() *UnevaluatedFragment { return &UnevaluatedFragment{Key: key.Key(1)} })

	expectFatal(t, "H001", func() { s.mustEvaluated(idx) })

	s.setEntry(idx, &EvaluatedFragment{Key: key.Key(1), Index: idx})
	expectFatal(t, "H002", func() { s.mustUnevaluated(idx) })
}

func TestArgs_Equal(t *testing.T) {
	fn := func() {}
	tests := []struct {
		name string
		a, b Args
		want bool
	}{
		{"both empty", nil, Args{}, true},
		{"same ints", Args{1, "x"}, Args{1, "x"}, true},
		{"different length", Args{1}, Args{1, 2}, false},
		{"different value", Args{1}, Args{2}, false},
		{"int vs int64", Args{1}, Args{int64(1)}, false},
		{"slices by content", Args{[]int{1, 2}}, Args{[]int{1, 2}}, true},
		{"funcs never equal", Args{fn}, Args{fn}, false},
		{"nil values", Args{nil}, Args{nil}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}
