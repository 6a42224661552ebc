package value

import (
	"math"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
)

// ---------------------------------------------------------------------------
// Builtin type descriptors
// ---------------------------------------------------------------------------

var (
	NullType = &Type{
		Name:     "null",
		Kind:     KindNull,
		Equals:   func(a, b *Value) bool { return true },
		Hash:     func(v *Value) uint64 { return 0 },
		ToString: func(v *Value) string { return "null" },
	}

	BoolType = &Type{
		Name:     "bool",
		Kind:     KindBool,
		Equals:   func(a, b *Value) bool { return a.n == b.n },
		Hash:     func(v *Value) uint64 { return mix64(v.n + 1) },
		ToString: formatBool,
	}

	IntType = &Type{
		Name:     "int",
		Kind:     KindInt,
		Equals:   func(a, b *Value) bool { return a.n == b.n },
		Hash:     func(v *Value) uint64 { return mix64(v.n) },
		ToString: func(v *Value) string { return strconv.FormatInt(int64(v.n), 10) },
	}

	FloatType = &Type{
		Name:     "float",
		Kind:     KindFloat,
		Equals:   func(a, b *Value) bool { return a.n == b.n || math.Float64frombits(a.n) == math.Float64frombits(b.n) },
		Hash:     hashFloat,
		ToString: func(v *Value) string { return FormatFloat(math.Float64frombits(v.n)) },
	}

	StringType = &Type{
		Name:     "string",
		Kind:     KindString,
		Equals:   func(a, b *Value) bool { return a.ref.(string) == b.ref.(string) },
		Hash:     func(v *Value) uint64 { return xxh3.HashString(v.ref.(string)) },
		ToString: func(v *Value) string { return v.ref.(string) },
	}

	PointerType = &Type{
		Name:     "pointer",
		Kind:     KindPointer,
		Equals:   func(a, b *Value) bool { return a.ref == b.ref },
		Hash:     func(v *Value) uint64 { return mix64(uint64(KindPointer)) },
		ToString: func(v *Value) string { return "<pointer>" },
	}

	TypeType = &Type{
		Name:     "type",
		Kind:     KindType,
		Equals:   func(a, b *Value) bool { return a.ref.(*Type) == b.ref.(*Type) },
		Hash:     func(v *Value) uint64 { return xxh3.HashString(v.ref.(*Type).Name) },
		ToString: func(v *Value) string { return "<type " + v.ref.(*Type).Name + ">" },
	}

	NodeType = &Type{
		Name:     "node",
		Kind:     KindNode,
		Equals:   func(a, b *Value) bool { return a.ref == b.ref },
		Hash:     func(v *Value) uint64 { return mix64(uint64(v.ref.(NodeHandle).NodeID())) },
		ToString: func(v *Value) string { return v.ref.(NodeHandle).String() },
	}

	ErrorType = &Type{
		Name:     "error",
		Kind:     KindError,
		Equals:   func(a, b *Value) bool { return a.ref.(*errorData).message == b.ref.(*errorData).message },
		Hash:     func(v *Value) uint64 { return xxh3.HashString(v.ref.(*errorData).message) },
		ToString: func(v *Value) string { return "error: " + v.ref.(*errorData).message },
	}

	// AnyType accepts every value in signatures and casts.
	AnyType = &Type{
		Name: "any",
		Kind: KindAny,
	}
)

// Behaviors that construct values refer back to the descriptors, so they are
// attached here rather than in the declarations.
func init() {
	IntType.Cast = castToInt
	FloatType.Cast = castToFloat
	StringType.Cast = castToString
	initListType()
	initMapType()
}

// BuiltinTypes returns every builtin descriptor.
func BuiltinTypes() []*Type {
	return []*Type{
		NullType, BoolType, IntType, FloatType, StringType, ListType, MapType,
		PointerType, TypeType, NodeType, ErrorType, AnyType,
	}
}

func formatBool(v *Value) string {
	if v.n != 0 {
		return "true"
	}
	return "false"
}

// FormatFloat renders f so that integral floats keep a trailing ".0".
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

func hashFloat(v *Value) uint64 {
	f := math.Float64frombits(v.n)
	if f == math.Trunc(f) && f >= -1<<63 && f < 1<<63 {
		// integral floats hash like the equal int
		return mix64(uint64(int64(f)))
	}
	return mix64(v.n)
}

// mix64 is the splitmix64 finalizer.
func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// ---------------------------------------------------------------------------
// Setters
// ---------------------------------------------------------------------------

// SetNull releases v.
func (v *Value) SetNull() {
	v.Release()
}

// SetBool overwrites v with b.
func (v *Value) SetBool(b bool) {
	v.Release()
	v.install(BoolType)
	if b {
		v.n = 1
	}
}

// SetInt overwrites v with i.
func (v *Value) SetInt(i int64) {
	v.Release()
	v.install(IntType)
	v.n = uint64(i)
}

// SetFloat overwrites v with f.
func (v *Value) SetFloat(f float64) {
	v.Release()
	v.install(FloatType)
	v.n = math.Float64bits(f)
}

// SetString overwrites v with s.
func (v *Value) SetString(s string) {
	v.Release()
	v.install(StringType)
	v.ref = s
}

// SetPointer overwrites v with an opaque host pointer.
func (v *Value) SetPointer(p any) {
	v.Release()
	v.install(PointerType)
	v.ref = p
}

// SetType overwrites v with a type reference.
func (v *Value) SetType(t *Type) {
	v.Release()
	v.install(TypeType)
	v.ref = t
}

// SetNode overwrites v with a node reference.
func (v *Value) SetNode(n NodeHandle) {
	v.Release()
	v.install(NodeType)
	v.ref = n
}

// ---------------------------------------------------------------------------
// Getters
// ---------------------------------------------------------------------------

// AsBool returns the bool payload of v.
func (v *Value) AsBool() (bool, bool) {
	if v.Kind() != KindBool {
		return false, false
	}
	return v.n != 0, true
}

// AsInt returns the int payload of v.
func (v *Value) AsInt() (int64, bool) {
	if v.Kind() != KindInt {
		return 0, false
	}
	return int64(v.n), true
}

// AsFloat returns v as a float; ints are widened.
func (v *Value) AsFloat() (float64, bool) {
	switch v.Kind() {
	case KindFloat:
		return math.Float64frombits(v.n), true
	case KindInt:
		return float64(int64(v.n)), true
	}
	return 0, false
}

// AsString returns the string payload of v.
func (v *Value) AsString() (string, bool) {
	if v.Kind() != KindString {
		return "", false
	}
	return v.ref.(string), true
}

// AsPointer returns the opaque pointer payload of v.
func (v *Value) AsPointer() (any, bool) {
	if v.Kind() != KindPointer {
		return nil, false
	}
	return v.ref, true
}

// AsType returns the type reference held by v.
func (v *Value) AsType() (*Type, bool) {
	if v.Kind() != KindType {
		return nil, false
	}
	return v.ref.(*Type), true
}

// AsNode returns the node reference held by v.
func (v *Value) AsNode() (NodeHandle, bool) {
	if v.Kind() != KindNode {
		return nil, false
	}
	return v.ref.(NodeHandle), true
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// Bool returns a bool Value.
func Bool(b bool) Value {
	var v Value
	v.SetBool(b)
	return v
}

// Int returns an int Value.
func Int(i int64) Value {
	var v Value
	v.SetInt(i)
	return v
}

// Float returns a float Value.
func Float(f float64) Value {
	var v Value
	v.SetFloat(f)
	return v
}

// String returns a string Value.
func String(s string) Value {
	var v Value
	v.SetString(s)
	return v
}

// Node returns a node reference Value.
func Node(n NodeHandle) Value {
	var v Value
	v.SetNode(n)
	return v
}

// Null returns the null Value.
func Null() Value {
	return Value{}
}
