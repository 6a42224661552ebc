package value

import (
	"fmt"
	"testing"
)

func TestHashtableGrowth(t *testing.T) {
	h := NewHashtable()
	if h.Capacity() != 0 {
		t.Fatalf("Capacity() before first insert = %d, want 0", h.Capacity())
	}

	for i := 1; i <= 7; i++ {
		h.Insert(Int(int64(i)), Int(int64(i*10)))
	}
	if h.Capacity() != DefaultCapacity {
		t.Fatalf("Capacity() after 7 inserts = %d, want %d", h.Capacity(), DefaultCapacity)
	}

	// 8 >= 0.75 * 10 triggers a resize to ceil(8 / 0.3) slots.
	h.Insert(Int(8), Int(80))
	if h.Capacity() != 27 {
		t.Errorf("Capacity() after 8th insert = %d, want 27", h.Capacity())
	}
	if h.Len() != 8 {
		t.Errorf("Len() = %d, want 8", h.Len())
	}
	for i := 1; i <= 8; i++ {
		k := Int(int64(i))
		v, ok := h.Get(&k)
		if !ok {
			t.Errorf("key %d missing after grow", i)
			continue
		}
		if got := GetInt(v); got != int64(i*10) {
			t.Errorf("Get(%d) = %d, want %d", i, got, i*10)
		}
	}
}

func TestHashtableOverwriteKeepsCount(t *testing.T) {
	h := NewHashtable()
	h.InsertString("a", Int(1))
	h.InsertString("a", Int(2))
	if h.Len() != 1 {
		t.Errorf("Len() = %d, want 1", h.Len())
	}
	v, ok := h.GetString("a")
	if !ok || GetInt(v) != 2 {
		t.Errorf("GetString(a) = %v, %v, want 2", v, ok)
	}
}

func TestHashtableMixedNumericKeys(t *testing.T) {
	h := NewHashtable()
	h.Insert(Int(3), String("three"))
	k := Float(3.0)
	if v, ok := h.Get(&k); !ok || GetString(v) != "three" {
		t.Error("float 3.0 should find int key 3")
	}

	// ints beyond float precision stay distinct from the nearest float
	h.Insert(Int(1<<53+1), String("int"))
	h.Insert(Float(1<<53), String("float"))
	h.Insert(Int(1<<53), String("exact"))
	if h.Len() != 3 {
		t.Errorf("Len() = %d, want 3", h.Len())
	}
	k = Float(1 << 53)
	if v, ok := h.Get(&k); !ok || GetString(v) != "exact" {
		t.Errorf("Get(2^53) = %v, want exact", v)
	}
}

func TestHashtableRemove(t *testing.T) {
	h := NewHashtable()
	for i := 0; i < 100; i++ {
		h.InsertString(fmt.Sprintf("k%d", i), Int(int64(i)))
	}
	for i := 0; i < 100; i += 2 {
		if !h.RemoveString(fmt.Sprintf("k%d", i)) {
			t.Fatalf("RemoveString(k%d) = false", i)
		}
	}
	if h.Len() != 50 {
		t.Fatalf("Len() = %d, want 50", h.Len())
	}
	for i := 0; i < 100; i++ {
		_, ok := h.GetString(fmt.Sprintf("k%d", i))
		if want := i%2 == 1; ok != want {
			t.Errorf("GetString(k%d) present = %v, want %v", i, ok, want)
		}
	}
	if h.RemoveString("k0") {
		t.Error("removing a missing key should return false")
	}
}

// Removal from the middle of a probe chain must keep the tail reachable.
func TestHashtableRemoveWrappedChain(t *testing.T) {
	h := NewHashtableWithOptions(HashtableOptions{InitialCapacity: 64})
	var keys []Value
	for i := 0; i < 40; i++ {
		keys = append(keys, Int(int64(i)))
		h.Insert(Int(int64(i)), Int(int64(i)))
	}
	for i := 0; i < 40; i += 3 {
		h.Remove(&keys[i])
	}
	for i := 0; i < 40; i++ {
		_, ok := h.Get(&keys[i])
		if want := i%3 != 0; ok != want {
			t.Errorf("Get(%d) present = %v, want %v", i, ok, want)
		}
	}
}

func TestHashtableIteration(t *testing.T) {
	h := NewHashtable()
	want := map[string]int64{"a": 1, "b": 2, "c": 3}
	for k, v := range want {
		h.InsertString(k, Int(v))
	}

	for pass := 0; pass < 2; pass++ {
		seen := map[string]int64{}
		for k, v := range h.All() {
			seen[GetString(k)] = GetInt(v)
		}
		if len(seen) != len(want) {
			t.Fatalf("pass %d: saw %d entries, want %d", pass, len(seen), len(want))
		}
		for k, v := range want {
			if seen[k] != v {
				t.Errorf("pass %d: %s = %d, want %d", pass, k, seen[k], v)
			}
		}
	}
}

func TestHashtableCloneIndependent(t *testing.T) {
	before := LiveObjects()

	h := NewHashtable()
	h.InsertString("xs", NewList(Int(1)))
	c := h.Clone()

	c.InsertString("ys", Int(2))
	xs, _ := c.GetString("xs")
	xs.ListAppend(Int(2))

	if h.Len() != 1 {
		t.Errorf("original Len() = %d, want 1", h.Len())
	}
	orig, _ := h.GetString("xs")
	if got := orig.String(); got != "[1]" {
		t.Errorf("original xs = %s, want [1]", got)
	}

	h.Clear()
	c.Clear()
	if got := LiveObjects(); got != before {
		t.Errorf("LiveObjects() = %d, want %d", got, before)
	}
}

func TestHashtableCustomOptions(t *testing.T) {
	h := NewHashtableWithOptions(HashtableOptions{InitialCapacity: 4, GrowThreshold: 0.5, PostGrowLoad: 0.25})
	h.Insert(Int(1), Null())
	if h.Capacity() != 4 {
		t.Fatalf("Capacity() = %d, want 4", h.Capacity())
	}
	// 2 >= 0.5 * 4
	h.Insert(Int(2), Null())
	if h.Capacity() != 8 {
		t.Errorf("Capacity() = %d, want 8", h.Capacity())
	}
}
