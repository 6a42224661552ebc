package value

import (
	"strings"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// Refcounted storage accounting
// ---------------------------------------------------------------------------

// liveObjects counts refcounted backing stores (lists and maps) that have
// been allocated and not yet freed.
var liveObjects atomic.Int64

// LiveObjects returns the number of live list and map backing stores.
func LiveObjects() int64 {
	return liveObjects.Load()
}

// ---------------------------------------------------------------------------
// List storage
// ---------------------------------------------------------------------------

// listData is the shared backing store of list Values. refs counts the
// Values pointing at it; mutation requires refs == 1.
type listData struct {
	refs  int32
	items []Value
}

func newListData(n int) *listData {
	liveObjects.Add(1)
	return &listData{refs: 1, items: make([]Value, n)}
}

func (d *listData) decref() {
	d.refs--
	if d.refs > 0 {
		return
	}
	if d.refs < 0 {
		panic("value: list released too many times")
	}
	for i := range d.items {
		d.items[i].Release()
	}
	d.items = nil
	liveObjects.Add(-1)
}

var ListType = &Type{
	Name: "list",
	Kind: KindList,
}

func initListType() {
	ListType.Initialize = func(v *Value) {
		v.ref = newListData(0)
	}
	ListType.Release = func(v *Value) {
		v.ref.(*listData).decref()
	}
	ListType.Copy = func(src, dst *Value) {
		d := src.ref.(*listData)
		d.refs++
		dst.ref = d
	}
	ListType.Equals = func(a, b *Value) bool {
		da, db := a.ref.(*listData), b.ref.(*listData)
		if da == db {
			return true
		}
		if len(da.items) != len(db.items) {
			return false
		}
		for i := range da.items {
			if !Equals(&da.items[i], &db.items[i]) {
				return false
			}
		}
		return true
	}
	ListType.Hash = func(v *Value) uint64 {
		h := mix64(uint64(KindList))
		for i := range v.ref.(*listData).items {
			h = mix64(h ^ Hash(&v.ref.(*listData).items[i]))
		}
		return h
	}
	ListType.ToString = func(v *Value) string {
		var b strings.Builder
		b.WriteByte('[')
		for i := range v.ref.(*listData).items {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(v.ref.(*listData).items[i].Repr())
		}
		b.WriteByte(']')
		return b.String()
	}
}

// ---------------------------------------------------------------------------
// List operations
// ---------------------------------------------------------------------------

// SetList overwrites v with a list of n null elements.
func (v *Value) SetList(n int) {
	v.Release()
	v.install(ListType)
	v.ref = newListData(n)
}

// NewList returns a list Value that takes ownership of items.
func NewList(items ...Value) Value {
	var v Value
	v.SetList(0)
	v.ref.(*listData).items = items
	return v
}

// IsList reports whether v is a list.
func (v *Value) IsList() bool {
	return v.Kind() == KindList
}

// ListLen returns the number of elements of a list, or 0 for non-lists.
func (v *Value) ListLen() int {
	if !v.IsList() {
		return 0
	}
	return len(v.ref.(*listData).items)
}

// ListGet returns a read-only pointer to element i.
func (v *Value) ListGet(i int) (*Value, bool) {
	if !v.IsList() {
		return nil, false
	}
	items := v.ref.(*listData).items
	if i < 0 || i >= len(items) {
		return nil, false
	}
	return &items[i], true
}

// ListItems returns the elements for reading. Callers must not mutate or
// retain them.
func (v *Value) ListItems() []Value {
	if !v.IsList() {
		return nil
	}
	return v.ref.(*listData).items
}

// Touch prepares v for in-place mutation, duplicating shared list or map
// storage first.
func (v *Value) Touch() {
	switch v.Kind() {
	case KindList:
		d := v.ref.(*listData)
		if d.refs == 1 {
			return
		}
		dup := newListData(len(d.items))
		for i := range d.items {
			Copy(&d.items[i], &dup.items[i])
		}
		d.refs--
		v.ref = dup
	case KindMap:
		h := v.ref.(*Hashtable)
		if h.refs == 1 {
			return
		}
		dup := h.clone()
		dup.refs = 1
		liveObjects.Add(1)
		h.refs--
		v.ref = dup
	}
}

// ListSet overwrites element i, taking ownership of x.
func (v *Value) ListSet(i int, x Value) bool {
	if !v.IsList() {
		x.Release()
		return false
	}
	if i < 0 || i >= len(v.ref.(*listData).items) {
		x.Release()
		return false
	}
	v.Touch()
	Set(&v.ref.(*listData).items[i], x)
	return true
}

// ListAppend appends x, taking ownership of it.
func (v *Value) ListAppend(x Value) {
	if !v.IsList() {
		x.Release()
		return
	}
	v.Touch()
	d := v.ref.(*listData)
	d.items = append(d.items, x)
}

// ListResize grows or shrinks the list to n elements.
func (v *Value) ListResize(n int) {
	if !v.IsList() {
		return
	}
	v.Touch()
	d := v.ref.(*listData)
	for i := n; i < len(d.items); i++ {
		d.items[i].Release()
	}
	if n <= len(d.items) {
		d.items = d.items[:n]
		return
	}
	d.items = append(d.items, make([]Value, n-len(d.items))...)
}

// ListRefs returns the share count of a list's storage.
func (v *Value) ListRefs() int {
	if !v.IsList() {
		return 0
	}
	return int(v.ref.(*listData).refs)
}
