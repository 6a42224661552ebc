package value

import (
	"fmt"
	"math"
)

// Value is a dynamically typed data cell.
//
// The zero Value is null. The storage discriminant is the Kind of typ; the
// payload lives in n (bool, int and float bits) or ref (everything else).
type Value struct {
	typ *Type
	n   uint64
	ref any
}

// NodeHandle is implemented by graph nodes so that node references can be
// stored in Values without this package depending on the graph.
type NodeHandle interface {
	NodeID() int
	String() string
}

// ---------------------------------------------------------------------------
// Type access
// ---------------------------------------------------------------------------

// Type returns the descriptor of v. Null values report NullType.
func (v *Value) Type() *Type {
	if v == nil || v.typ == nil {
		return NullType
	}
	return v.typ
}

// Kind returns the storage discriminant of v.
func (v *Value) Kind() Kind {
	return v.Type().Kind
}

// IsNull reports whether v is null.
func (v *Value) IsNull() bool {
	return v == nil || v.typ == nil || v.typ == NullType
}

// Check verifies that the storage matches the descriptor.
func (v *Value) Check() error {
	t := v.Type()
	ok := true
	switch t.Kind {
	case KindNull, KindBool, KindInt, KindFloat:
		ok = v.ref == nil
	case KindString:
		_, ok = v.ref.(string)
	case KindList:
		_, ok = v.ref.(*listData)
	case KindMap:
		_, ok = v.ref.(*Hashtable)
	case KindType:
		_, ok = v.ref.(*Type)
	case KindNode:
		_, ok = v.ref.(NodeHandle)
	case KindError:
		_, ok = v.ref.(*errorData)
	}
	if !ok {
		return fmt.Errorf("value: storage %T does not match type %s", v.ref, t.Name)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// install sets the descriptor of a cleared value.
func (v *Value) install(t *Type) {
	v.typ = t
	t.refs.Add(1)
}

// Release discards v's storage through its descriptor and leaves v null.
func (v *Value) Release() {
	t := v.typ
	if t == nil {
		return
	}
	if t.Release != nil {
		t.Release(v)
	}
	t.refs.Add(-1)
	*v = Value{}
}

// Create releases v and installs the initial representation of t.
func Create(t *Type, v *Value) {
	v.Release()
	if t == nil || t == NullType {
		return
	}
	v.install(t)
	if t.Initialize != nil {
		t.Initialize(v)
	}
}

// Copy makes dst an independent logical copy of src. The prior contents of
// dst are released after the copy is taken, so dst may alias storage
// reachable from src.
func Copy(src, dst *Value) {
	if src == dst {
		return
	}
	var tmp Value
	if src != nil && src.typ != nil {
		tmp.install(src.typ)
		if src.typ.Copy != nil {
			src.typ.Copy(src, &tmp)
		} else {
			tmp.n = src.n
			tmp.ref = src.ref
		}
	}
	dst.Release()
	*dst = tmp
}

// Clone returns an independent copy of v.
func Clone(v *Value) Value {
	var out Value
	Copy(v, &out)
	return out
}

// Move transfers ownership of v's storage to the returned Value and leaves
// v null.
func (v *Value) Move() Value {
	out := *v
	*v = Value{}
	return out
}

// Set releases dst and moves src into it.
func Set(dst *Value, src Value) {
	dst.Release()
	*dst = src
}

// ---------------------------------------------------------------------------
// Equality, hashing, printing
// ---------------------------------------------------------------------------

// Equals reports whether a and b hold equal values. Ints and floats compare
// numerically.
func Equals(a, b *Value) bool {
	ta, tb := a.Type(), b.Type()
	if isNumeric(ta) && isNumeric(tb) && ta != tb {
		if ta == FloatType {
			a, b = b, a
		}
		i, _ := a.AsInt()
		f, _ := b.AsFloat()
		return floatIsInt(f, i)
	}
	if ta != tb {
		return false
	}
	if ta.Equals == nil {
		return a.n == b.n && a.ref == b.ref
	}
	return ta.Equals(a, b)
}

// Hash returns a hash of v consistent with Equals.
func Hash(v *Value) uint64 {
	t := v.Type()
	if t.Hash == nil {
		return mix64(uint64(t.Kind))
	}
	return t.Hash(v)
}

// String returns the display form of v (strings unquoted).
func (v *Value) String() string {
	t := v.Type()
	if t.ToString == nil {
		return "<" + t.Name + ">"
	}
	return t.ToString(v)
}

// Repr returns the source-like form of v (strings quoted).
func (v *Value) Repr() string {
	if s, ok := v.AsString(); ok {
		return fmt.Sprintf("%q", s)
	}
	return v.String()
}

// Truthy reports whether v counts as true in a condition. Only null and
// false are falsy.
func (v *Value) Truthy() bool {
	switch v.Kind() {
	case KindNull:
		return false
	case KindBool:
		return v.n != 0
	}
	return true
}

// floatIsInt reports whether f is exactly the integer i.
func floatIsInt(f float64, i int64) bool {
	if f != math.Trunc(f) || f < -1<<63 || f >= 1<<63 {
		return false
	}
	return int64(f) == i
}

func isNumeric(t *Type) bool {
	return t == IntType || t == FloatType
}
