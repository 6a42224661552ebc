package value

import (
	"errors"
	"math"
	"testing"
)

// ---------------------------------------------------------------------------
// Scalars
// ---------------------------------------------------------------------------

func TestScalarSetters(t *testing.T) {
	var v Value
	if !v.IsNull() {
		t.Fatal("zero Value should be null")
	}

	v.SetInt(42)
	if got, ok := v.AsInt(); !ok || got != 42 {
		t.Errorf("AsInt() = %d, %v, want 42, true", got, ok)
	}
	if v.Type() != IntType {
		t.Errorf("Type() = %s, want int", v.Type())
	}

	v.SetFloat(2.5)
	if got, ok := v.AsFloat(); !ok || got != 2.5 {
		t.Errorf("AsFloat() = %v, %v, want 2.5, true", got, ok)
	}
	if _, ok := v.AsInt(); ok {
		t.Error("AsInt should fail on a float")
	}

	v.SetString("hi")
	if got := v.String(); got != "hi" {
		t.Errorf("String() = %q, want %q", got, "hi")
	}
	if got := v.Repr(); got != `"hi"` {
		t.Errorf("Repr() = %q, want %q", got, `"hi"`)
	}

	v.SetBool(true)
	if !v.Truthy() {
		t.Error("true should be truthy")
	}
	v.SetNull()
	if v.Truthy() {
		t.Error("null should be falsy")
	}
	if err := v.Check(); err != nil {
		t.Errorf("Check() = %v", err)
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1, "1.0"},
		{2.5, "2.5"},
		{-3, "-3.0"},
		{1e21, "1e+21"},
	}
	for _, tc := range tests {
		if got := FormatFloat(tc.in); got != tc.want {
			t.Errorf("FormatFloat(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEqualsAndHashConsistency(t *testing.T) {
	pairs := []struct {
		a, b  Value
		equal bool
	}{
		{Int(1), Int(1), true},
		{Int(1), Float(1.0), true},
		{Int(1), Float(1.5), false},
		{String("a"), String("a"), true},
		{String("a"), String("b"), false},
		{Bool(true), Int(1), false},
		{NewList(Int(1), String("x")), NewList(Int(1), String("x")), true},
		{NewList(Int(1)), NewList(Int(2)), false},
		{Float(math.NaN()), Float(math.NaN()), true},
		{Int(1<<53 + 1), Float(1 << 53), false},
		{Int(1 << 53), Float(1 << 53), true},
		{Int(math.MaxInt64), Float(1 << 63), false},
		{Int(math.MinInt64), Float(-1 << 63), true},
		{Int(0), Float(math.Inf(1)), false},
	}
	for i := range pairs {
		p := &pairs[i]
		if got := Equals(&p.a, &p.b); got != p.equal {
			t.Errorf("Equals(%s, %s) = %v, want %v", p.a.Repr(), p.b.Repr(), got, p.equal)
		}
		if got := Equals(&p.b, &p.a); got != p.equal {
			t.Errorf("Equals is not symmetric for %s, %s", p.a.Repr(), p.b.Repr())
		}
		if !Equals(&p.a, &p.a) {
			t.Errorf("Equals is not reflexive for %s", p.a.Repr())
		}
		if p.equal && Hash(&p.a) != Hash(&p.b) {
			t.Errorf("equal values %s and %s hash differently", p.a.Repr(), p.b.Repr())
		}
		p.a.Release()
		p.b.Release()
	}
}

// ---------------------------------------------------------------------------
// Copy independence and refcounting
// ---------------------------------------------------------------------------

func TestCopyIndependenceList(t *testing.T) {
	before := LiveObjects()

	src := NewList(Int(1), Int(2), Int(3))
	var dst Value
	Copy(&src, &dst)

	if src.ListRefs() != 2 {
		t.Fatalf("ListRefs() after copy = %d, want 2", src.ListRefs())
	}

	dst.ListSet(0, Int(99))
	dst.ListAppend(Int(4))

	if got := src.String(); got != "[1, 2, 3]" {
		t.Errorf("source changed after mutating copy: %s", got)
	}
	if got := dst.String(); got != "[99, 2, 3, 4]" {
		t.Errorf("copy = %s, want [99, 2, 3, 4]", got)
	}
	if src.ListRefs() != 1 || dst.ListRefs() != 1 {
		t.Errorf("refs after touch = %d/%d, want 1/1", src.ListRefs(), dst.ListRefs())
	}

	src.Release()
	dst.Release()
	if got := LiveObjects(); got != before {
		t.Errorf("LiveObjects() = %d, want %d", got, before)
	}
}

func TestCopyIndependenceMap(t *testing.T) {
	before := LiveObjects()

	src := NewMap()
	src.MapInsert(String("a"), Int(1))

	var dst Value
	Copy(&src, &dst)
	dst.MapInsert(String("b"), Int(2))
	k := String("a")
	dst.MapRemove(&k)

	if src.MapLen() != 1 {
		t.Errorf("source map len = %d, want 1", src.MapLen())
	}
	if v, ok := src.MapGet(&k); !ok || GetInt(v) != 1 {
		t.Error("source lost key a")
	}
	if dst.MapLen() != 1 {
		t.Errorf("copy map len = %d, want 1", dst.MapLen())
	}

	k.Release()
	src.Release()
	dst.Release()
	if got := LiveObjects(); got != before {
		t.Errorf("LiveObjects() = %d, want %d", got, before)
	}
}

func TestCopyIndependenceNested(t *testing.T) {
	before := LiveObjects()

	inner := NewList(Int(1))
	outer := NewList(inner.Move())

	var dup Value
	Copy(&outer, &dup)

	// mutate the nested list through the copy
	dup.Touch()
	elem, _ := dup.ListGet(0)
	elem.ListAppend(Int(2))

	if got := outer.String(); got != "[[1]]" {
		t.Errorf("outer = %s, want [[1]]", got)
	}
	if got := dup.String(); got != "[[1, 2]]" {
		t.Errorf("dup = %s, want [[1, 2]]", got)
	}

	outer.Release()
	dup.Release()
	if got := LiveObjects(); got != before {
		t.Errorf("LiveObjects() = %d, want %d", got, before)
	}
}

func TestRefcountBalance(t *testing.T) {
	before := LiveObjects()

	v := NewList(NewMap(), NewList(Int(1)))
	copies := make([]Value, 10)
	for i := range copies {
		Copy(&v, &copies[i])
	}
	for i := range copies {
		if i%2 == 0 {
			copies[i].ListAppend(Int(int64(i)))
		}
	}
	for i := range copies {
		copies[i].Release()
	}
	v.Release()

	if got := LiveObjects(); got != before {
		t.Errorf("LiveObjects() = %d, want %d", got, before)
	}
}

func TestCopyOverwritesDestination(t *testing.T) {
	before := LiveObjects()

	dst := NewList(Int(1))
	src := String("x")
	Copy(&src, &dst)
	if got := dst.String(); got != "x" {
		t.Errorf("dst = %q, want x", got)
	}
	if got := LiveObjects(); got != before {
		t.Errorf("previous list storage was not released: LiveObjects() = %d, want %d", got, before)
	}
}

func TestTypeRefs(t *testing.T) {
	typ := NewObjectType("Widget")
	var a, b Value
	a.SetObject(typ, "payload")
	Copy(&a, &b)
	if typ.Refs() != 2 {
		t.Errorf("Refs() = %d, want 2", typ.Refs())
	}
	a.Release()
	b.Release()
	if typ.Refs() != 0 {
		t.Errorf("Refs() after release = %d, want 0", typ.Refs())
	}
}

// ---------------------------------------------------------------------------
// Cast
// ---------------------------------------------------------------------------

func TestCast(t *testing.T) {
	tests := []struct {
		src    Value
		target *Type
		want   string
		ok     bool
	}{
		{Int(3), FloatType, "3.0", true},
		{Float(4), IntType, "4", true},
		{Float(4.5), IntType, "", false},
		{Float(1e19), IntType, "", false},
		{Float(-1e19), IntType, "", false},
		{Float(-1 << 63), IntType, "-9223372036854775808", true},
		{String("x"), IntType, "", false},
		{Int(7), StringType, "7", true},
		{Int(7), AnyType, "7", true},
		{NewList(), MapType, "", false},
	}
	for _, tc := range tests {
		dst := String("untouched")
		if err := Cast(&tc.src, tc.target, &dst, true); (err == nil) != tc.ok {
			t.Errorf("Cast(%s -> %s, check) error = %v, want ok=%v", tc.src.Repr(), tc.target, err, tc.ok)
		}
		if dst.String() != "untouched" {
			t.Errorf("checkOnly cast mutated dst: %s", dst.Repr())
		}

		err := Cast(&tc.src, tc.target, &dst, false)
		if !tc.ok {
			if !errors.Is(err, ErrCastFailed) {
				t.Errorf("Cast(%s -> %s) error = %v, want ErrCastFailed", tc.src.Repr(), tc.target, err)
			}
		} else if err != nil {
			t.Errorf("Cast(%s -> %s) error = %v", tc.src.Repr(), tc.target, err)
		} else if dst.String() != tc.want {
			t.Errorf("Cast(%s -> %s) = %s, want %s", tc.src.Repr(), tc.target, dst.String(), tc.want)
		}
		tc.src.Release()
		dst.Release()
	}
}

// ---------------------------------------------------------------------------
// ABI
// ---------------------------------------------------------------------------

func TestMakeAndGetters(t *testing.T) {
	v, err := Make(IntType, 5)
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	if GetInt(&v) != 5 {
		t.Errorf("GetInt = %d, want 5", GetInt(&v))
	}
	if GetFloat(&v) != 5.0 {
		t.Errorf("GetFloat = %v, want 5", GetFloat(&v))
	}
	if _, err := Make(IntType, "five"); err == nil {
		t.Error("Make(int, string) should fail")
	}

	e := Errorf("bad %d", 1)
	if !IsError(&e) {
		t.Error("IsError should be true")
	}
	if msg, _ := e.ErrorMessage(); msg != "bad 1" {
		t.Errorf("ErrorMessage = %q", msg)
	}
}
