package value

import (
	"sort"
	"strings"
)

// ---------------------------------------------------------------------------
// Map values: refcounted Hashtable storage
// ---------------------------------------------------------------------------

var MapType = &Type{
	Name: "map",
	Kind: KindMap,
}

func newMapStorage() *Hashtable {
	liveObjects.Add(1)
	h := NewHashtable()
	h.refs = 1
	return h
}

func initMapType() {
	MapType.Initialize = func(v *Value) {
		v.ref = newMapStorage()
	}
	MapType.Release = func(v *Value) {
		h := v.ref.(*Hashtable)
		h.refs--
		if h.refs > 0 {
			return
		}
		if h.refs < 0 {
			panic("value: map released too many times")
		}
		h.Clear()
		liveObjects.Add(-1)
	}
	MapType.Copy = func(src, dst *Value) {
		h := src.ref.(*Hashtable)
		h.refs++
		dst.ref = h
	}
	MapType.Equals = func(a, b *Value) bool {
		ha, hb := a.ref.(*Hashtable), b.ref.(*Hashtable)
		if ha == hb {
			return true
		}
		if ha.Len() != hb.Len() {
			return false
		}
		for k, va := range ha.All() {
			vb, ok := hb.Get(k)
			if !ok || !Equals(va, vb) {
				return false
			}
		}
		return true
	}
	MapType.Hash = func(v *Value) uint64 {
		// order-independent combination of entry hashes
		var h uint64
		for k, val := range v.ref.(*Hashtable).All() {
			h += mix64(Hash(k) ^ mix64(Hash(val)))
		}
		return mix64(h ^ uint64(KindMap))
	}
	MapType.ToString = func(v *Value) string {
		var entries []string
		for k, val := range v.ref.(*Hashtable).All() {
			entries = append(entries, k.Repr()+": "+val.Repr())
		}
		sort.Strings(entries)
		return "{" + strings.Join(entries, ", ") + "}"
	}
}

// SetMap overwrites v with an empty map.
func (v *Value) SetMap() {
	v.Release()
	v.install(MapType)
	v.ref = newMapStorage()
}

// NewMap returns an empty map Value.
func NewMap() Value {
	var v Value
	v.SetMap()
	return v
}

// IsMap reports whether v is a map.
func (v *Value) IsMap() bool {
	return v.Kind() == KindMap
}

// AsMap returns the table backing v for reading. Callers must Touch v
// before mutating through MapInsert/MapRemove instead of writing to it.
func (v *Value) AsMap() (*Hashtable, bool) {
	if !v.IsMap() {
		return nil, false
	}
	return v.ref.(*Hashtable), true
}

// MapGet looks up key in a map Value.
func (v *Value) MapGet(key *Value) (*Value, bool) {
	h, ok := v.AsMap()
	if !ok {
		return nil, false
	}
	return h.Get(key)
}

// MapInsert stores val under key, taking ownership of both.
func (v *Value) MapInsert(key, val Value) bool {
	if !v.IsMap() {
		key.Release()
		val.Release()
		return false
	}
	v.Touch()
	v.ref.(*Hashtable).Insert(key, val)
	return true
}

// MapRemove deletes key from a map Value.
func (v *Value) MapRemove(key *Value) bool {
	if !v.IsMap() {
		return false
	}
	if !v.ref.(*Hashtable).Contains(key) {
		return false
	}
	v.Touch()
	return v.ref.(*Hashtable).Remove(key)
}

// MapLen returns the number of entries of a map Value.
func (v *Value) MapLen() int {
	h, ok := v.AsMap()
	if !ok {
		return 0
	}
	return h.Len()
}

// MapRefs returns the share count of a map's storage.
func (v *Value) MapRefs() int {
	h, ok := v.AsMap()
	if !ok {
		return 0
	}
	return int(h.refs)
}
