package value

import (
	"iter"
	"math"
)

// ---------------------------------------------------------------------------
// Hashtable: open addressing with linear probing
// ---------------------------------------------------------------------------

const (
	// DefaultCapacity is the slot count of a table's first allocation.
	DefaultCapacity = 10

	// DefaultGrowThreshold is the load factor at which a table grows
	// before accepting a new key.
	DefaultGrowThreshold = 0.75

	// DefaultPostGrowLoad is the load factor a table is resized to.
	DefaultPostGrowLoad = 0.3
)

// HashtableOptions tunes growth. Zero fields take the defaults.
type HashtableOptions struct {
	InitialCapacity int
	GrowThreshold   float64
	PostGrowLoad    float64
}

var defaultOptions = HashtableOptions{
	InitialCapacity: DefaultCapacity,
	GrowThreshold:   DefaultGrowThreshold,
	PostGrowLoad:    DefaultPostGrowLoad,
}

// SetDefaultHashtableOptions changes the options used by NewHashtable and by
// Map values created afterwards.
func SetDefaultHashtableOptions(opts HashtableOptions) {
	defaultOptions = opts.withDefaults()
}

func (o HashtableOptions) withDefaults() HashtableOptions {
	if o.InitialCapacity <= 0 {
		o.InitialCapacity = DefaultCapacity
	}
	if o.GrowThreshold <= 0 || o.GrowThreshold >= 1 {
		o.GrowThreshold = DefaultGrowThreshold
	}
	if o.PostGrowLoad <= 0 || o.PostGrowLoad >= o.GrowThreshold {
		o.PostGrowLoad = DefaultPostGrowLoad
	}
	return o
}

type slot struct {
	used bool
	key  Value
	val  Value
}

// Hashtable maps Values to Values. Keys are unique by Equals.
type Hashtable struct {
	slots []slot
	count int
	opts  HashtableOptions
	refs  int32 // Values sharing this table when it backs a Map
}

// NewHashtable creates an empty table with the default options.
func NewHashtable() *Hashtable {
	return NewHashtableWithOptions(defaultOptions)
}

// NewHashtableWithOptions creates an empty table with opts.
func NewHashtableWithOptions(opts HashtableOptions) *Hashtable {
	return &Hashtable{opts: opts.withDefaults()}
}

// Len returns the number of entries.
func (h *Hashtable) Len() int {
	return h.count
}

// Capacity returns the number of slots currently allocated.
func (h *Hashtable) Capacity() int {
	return len(h.slots)
}

func (h *Hashtable) ideal(key *Value) int {
	return int(Hash(key) % uint64(len(h.slots)))
}

// find returns the slot holding key, or -1.
func (h *Hashtable) find(key *Value) int {
	if h.count == 0 {
		return -1
	}
	n := len(h.slots)
	i := h.ideal(key)
	for probes := 0; probes < n; probes++ {
		s := &h.slots[i]
		if !s.used {
			return -1
		}
		if Equals(&s.key, key) {
			return i
		}
		i = (i + 1) % n
	}
	return -1
}

// place stores a new entry in the first free slot of its probe chain.
func (h *Hashtable) place(key, val Value) {
	n := len(h.slots)
	i := h.ideal(&key)
	for probes := 0; probes < n; probes++ {
		if !h.slots[i].used {
			h.slots[i] = slot{used: true, key: key, val: val}
			return
		}
		i = (i + 1) % n
	}
	panic("value: hashtable has no free slot")
}

// grow resizes so that wantCount entries sit at the post-grow load factor,
// then re-inserts every entry.
func (h *Hashtable) grow(wantCount int) {
	newCap := int(math.Ceil(float64(wantCount) / h.opts.PostGrowLoad))
	if newCap <= len(h.slots) {
		newCap = len(h.slots)*2 + 1
	}
	old := h.slots
	h.slots = make([]slot, newCap)
	for i := range old {
		if old[i].used {
			h.place(old[i].key, old[i].val)
		}
	}
}

// Insert adds or replaces the entry for key, taking ownership of key and
// val. An existing key keeps its identity; only the value is overwritten.
func (h *Hashtable) Insert(key, val Value) {
	if len(h.slots) == 0 {
		h.slots = make([]slot, h.opts.InitialCapacity)
	}
	if i := h.find(&key); i >= 0 {
		Set(&h.slots[i].val, val)
		key.Release()
		return
	}
	if float64(h.count+1) >= h.opts.GrowThreshold*float64(len(h.slots)) {
		h.grow(h.count + 1)
	}
	h.place(key, val)
	h.count++
}

// Get returns the value stored for key.
func (h *Hashtable) Get(key *Value) (*Value, bool) {
	i := h.find(key)
	if i < 0 {
		return nil, false
	}
	return &h.slots[i].val, true
}

// Contains reports whether key is present.
func (h *Hashtable) Contains(key *Value) bool {
	return h.find(key) >= 0
}

// Remove deletes the entry for key, compacting its probe chain.
func (h *Hashtable) Remove(key *Value) bool {
	i := h.find(key)
	if i < 0 {
		return false
	}
	h.slots[i].key.Release()
	h.slots[i].val.Release()
	h.slots[i] = slot{}
	h.count--

	// Backward-shift: pull later chain members into the hole unless their
	// ideal slot lies between the hole and their current position.
	n := len(h.slots)
	hole := i
	j := (i + 1) % n
	for h.slots[j].used {
		ideal := h.ideal(&h.slots[j].key)
		if !cyclicBetween(hole, ideal, j) {
			h.slots[hole] = h.slots[j]
			h.slots[j] = slot{}
			hole = j
		}
		j = (j + 1) % n
	}
	return true
}

// cyclicBetween reports whether x lies in the cyclic interval (lo, hi].
func cyclicBetween(lo, x, hi int) bool {
	if lo <= hi {
		return lo < x && x <= hi
	}
	return x > lo || x <= hi
}

// All yields every entry in slot order. Each call starts a fresh pass.
func (h *Hashtable) All() iter.Seq2[*Value, *Value] {
	return func(yield func(*Value, *Value) bool) {
		for i := range h.slots {
			if !h.slots[i].used {
				continue
			}
			if !yield(&h.slots[i].key, &h.slots[i].val) {
				return
			}
		}
	}
}

// Keys returns copies of every key.
func (h *Hashtable) Keys() []Value {
	keys := make([]Value, 0, h.count)
	for k := range h.All() {
		keys = append(keys, Clone(k))
	}
	return keys
}

// Clear releases every entry and keeps the current capacity.
func (h *Hashtable) Clear() {
	for i := range h.slots {
		if h.slots[i].used {
			h.slots[i].key.Release()
			h.slots[i].val.Release()
			h.slots[i] = slot{}
		}
	}
	h.count = 0
}

// clone deep-copies the table. Entries keep their slot positions since the
// capacity is unchanged.
func (h *Hashtable) clone() *Hashtable {
	c := &Hashtable{
		slots: make([]slot, len(h.slots)),
		count: h.count,
		opts:  h.opts,
	}
	for i := range h.slots {
		if h.slots[i].used {
			c.slots[i].used = true
			Copy(&h.slots[i].key, &c.slots[i].key)
			Copy(&h.slots[i].val, &c.slots[i].val)
		}
	}
	return c
}

// Clone returns an independent deep copy of h.
func (h *Hashtable) Clone() *Hashtable {
	return h.clone()
}

// ---------------------------------------------------------------------------
// String-keyed helpers
// ---------------------------------------------------------------------------

// GetString looks up a string key.
func (h *Hashtable) GetString(key string) (*Value, bool) {
	k := String(key)
	defer k.Release()
	return h.Get(&k)
}

// InsertString stores val under a string key, taking ownership of val.
func (h *Hashtable) InsertString(key string, val Value) {
	h.Insert(String(key), val)
}

// RemoveString deletes a string key.
func (h *Hashtable) RemoveString(key string) bool {
	k := String(key)
	defer k.Release()
	return h.Remove(&k)
}
