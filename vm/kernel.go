package vm

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/chazu/weft/ir"
	"github.com/chazu/weft/value"
)

// ---------------------------------------------------------------------------
// Kernel: builtin functions visible to every script
// ---------------------------------------------------------------------------

var errDivisionByZero = errors.New("division by zero")

// NewKernel builds the scope of builtin functions. print writes to out.
func NewKernel(types *value.TypeTable, out io.Writer) *ir.Scope {
	if out == nil {
		out = io.Discard
	}
	k := ir.NewScope()
	k.SetIDs(&ir.IDs{})
	reg := func(sig string, fn ir.NativeFunc) *ir.Node {
		return mustRegister(types, k, sig, fn)
	}

	// Arithmetic
	reg("add(a: any, b: any) -> any", kernelAdd)
	reg("sub(a: any, b: any) -> any", arith(func(a, b int64) (int64, error) { return a - b, nil },
		func(a, b float64) float64 { return a - b }))
	reg("mult(a: any, b: any) -> any", arith(func(a, b int64) (int64, error) { return a * b, nil },
		func(a, b float64) float64 { return a * b }))
	reg("div(a: any, b: any) -> any", arith(func(a, b int64) (int64, error) {
		if b == 0 {
			return 0, errDivisionByZero
		}
		return a / b, nil
	}, func(a, b float64) float64 { return a / b }))
	reg("mod(a: any, b: any) -> any", arith(func(a, b int64) (int64, error) {
		if b == 0 {
			return 0, errDivisionByZero
		}
		return a % b, nil
	}, math.Mod))
	reg("neg(a: any) -> any", func(args []*value.Value, out *value.Value) error {
		switch args[0].Kind() {
		case value.KindInt:
			i, _ := args[0].AsInt()
			out.SetInt(-i)
		case value.KindFloat:
			f, _ := args[0].AsFloat()
			out.SetFloat(-f)
		default:
			return fmt.Errorf("cannot negate %s", args[0].Type().Name)
		}
		return nil
	})

	// Comparison
	reg("equals(a: any, b: any) -> bool", func(args []*value.Value, out *value.Value) error {
		out.SetBool(value.Equals(args[0], args[1]))
		return nil
	})
	reg("not_equals(a: any, b: any) -> bool", func(args []*value.Value, out *value.Value) error {
		out.SetBool(!value.Equals(args[0], args[1]))
		return nil
	})
	reg("less_than(a: any, b: any) -> bool", compare(func(c int) bool { return c < 0 }))
	reg("greater_than(a: any, b: any) -> bool", compare(func(c int) bool { return c > 0 }))
	reg("less_than_eq(a: any, b: any) -> bool", compare(func(c int) bool { return c <= 0 }))
	reg("greater_than_eq(a: any, b: any) -> bool", compare(func(c int) bool { return c >= 0 }))

	// Logic
	reg("and(a: any, b: any) -> bool", func(args []*value.Value, out *value.Value) error {
		out.SetBool(args[0].Truthy() && args[1].Truthy())
		return nil
	})
	reg("or(a: any, b: any) -> bool", func(args []*value.Value, out *value.Value) error {
		out.SetBool(args[0].Truthy() || args[1].Truthy())
		return nil
	})
	reg("not(a: any) -> bool", func(args []*value.Value, out *value.Value) error {
		out.SetBool(!args[0].Truthy())
		return nil
	})

	// Introspection
	reg("to_string(v: any) -> string", func(args []*value.Value, out *value.Value) error {
		out.SetString(args[0].String())
		return nil
	})
	reg("type_of(v: any) -> string", func(args []*value.Value, out *value.Value) error {
		out.SetString(args[0].Type().Name)
		return nil
	})
	reg("len(v: any) -> int", func(args []*value.Value, out *value.Value) error {
		v := args[0]
		switch v.Kind() {
		case value.KindList:
			out.SetInt(int64(v.ListLen()))
		case value.KindMap:
			out.SetInt(int64(v.MapLen()))
		case value.KindString:
			s, _ := v.AsString()
			out.SetInt(int64(len(s)))
		default:
			return fmt.Errorf("len of %s", v.Type().Name)
		}
		return nil
	})

	// Lists and indexing
	reg("get_index(c: any, i: any) -> any", kernelGetIndex)
	reg("set_index(c: any, i: any, v: any) -> any", kernelSetIndex)
	reg("append(xs: list, v: any) -> list", func(args []*value.Value, out *value.Value) error {
		value.Copy(args[0], out)
		out.ListAppend(value.Clone(args[1]))
		return nil
	})
	reg("range(int...) -> list", kernelRange)
	reg("concat(any...) -> string", func(args []*value.Value, out *value.Value) error {
		var b strings.Builder
		for _, a := range args {
			b.WriteString(a.String())
		}
		out.SetString(b.String())
		return nil
	})

	// Maps
	reg("map_get(m: map, key: any) -> any", func(args []*value.Value, out *value.Value) error {
		if v, ok := args[0].MapGet(args[1]); ok {
			value.Copy(v, out)
		}
		return nil
	})
	reg("map_set(m: map, key: any, v: any) -> map", func(args []*value.Value, out *value.Value) error {
		value.Copy(args[0], out)
		out.MapInsert(value.Clone(args[1]), value.Clone(args[2]))
		return nil
	})
	reg("map_remove(m: map, key: any) -> map", func(args []*value.Value, out *value.Value) error {
		value.Copy(args[0], out)
		out.MapRemove(args[1])
		return nil
	})
	reg("map_keys(m: map) -> list", func(args []*value.Value, out *value.Value) error {
		h, _ := args[0].AsMap()
		value.Set(out, value.NewList(h.Keys()...))
		return nil
	})
	reg("has_key(m: map, key: any) -> bool", func(args []*value.Value, out *value.Value) error {
		_, ok := args[0].MapGet(args[1])
		out.SetBool(ok)
		return nil
	})

	// Host
	reg("print(any...) -> null", func(args []*value.Value, _ *value.Value) error {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.String()
		}
		_, err := fmt.Fprintln(out, strings.Join(parts, " "))
		return err
	})
	reg("error(msg: string) -> null", func(args []*value.Value, _ *value.Value) error {
		msg, _ := args[0].AsString()
		return errors.New(msg)
	})
	reg("assert(cond: any, any...) -> null", func(args []*value.Value, _ *value.Value) error {
		if args[0].Truthy() {
			return nil
		}
		if len(args) > 1 {
			return fmt.Errorf("assertion failed: %s", args[1].String())
		}
		return errors.New("assertion failed")
	})
	call := reg("call(f: any, any...) -> any", func(args []*value.Value, _ *value.Value) error {
		return errors.New("call must be evaluated by the stack")
	})
	call.SetProp(propDynamicCall, value.Bool(true))

	return k
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func kernelAdd(args []*value.Value, out *value.Value) error {
	a, b := args[0], args[1]
	switch {
	case a.Kind() == value.KindString && b.Kind() == value.KindString:
		x, _ := a.AsString()
		y, _ := b.AsString()
		out.SetString(x + y)
		return nil
	case a.IsList() && b.IsList():
		items := make([]value.Value, 0, a.ListLen()+b.ListLen())
		for _, it := range a.ListItems() {
			items = append(items, value.Clone(&it))
		}
		for _, it := range b.ListItems() {
			items = append(items, value.Clone(&it))
		}
		value.Set(out, value.NewList(items...))
		return nil
	}
	return arith(func(x, y int64) (int64, error) { return x + y, nil },
		func(x, y float64) float64 { return x + y })(args, out)
}

// arith builds a numeric builtin: int op int stays int, anything involving
// a float is computed in floating point.
func arith(ints func(a, b int64) (int64, error), floats func(a, b float64) float64) ir.NativeFunc {
	return func(args []*value.Value, out *value.Value) error {
		a, b := args[0], args[1]
		if a.Kind() == value.KindInt && b.Kind() == value.KindInt {
			x, _ := a.AsInt()
			y, _ := b.AsInt()
			r, err := ints(x, y)
			if err != nil {
				return err
			}
			out.SetInt(r)
			return nil
		}
		x, okA := a.AsFloat()
		y, okB := b.AsFloat()
		if !okA || !okB {
			return fmt.Errorf("unsupported operands: %s and %s", a.Type().Name, b.Type().Name)
		}
		out.SetFloat(floats(x, y))
		return nil
	}
}

func compare(pred func(c int) bool) ir.NativeFunc {
	return func(args []*value.Value, out *value.Value) error {
		a, b := args[0], args[1]
		if a.Kind() == value.KindString && b.Kind() == value.KindString {
			x, _ := a.AsString()
			y, _ := b.AsString()
			out.SetBool(pred(strings.Compare(x, y)))
			return nil
		}
		x, okA := a.AsFloat()
		y, okB := b.AsFloat()
		if !okA || !okB {
			return fmt.Errorf("cannot compare %s and %s", a.Type().Name, b.Type().Name)
		}
		c := 0
		switch {
		case x < y:
			c = -1
		case x > y:
			c = 1
		}
		out.SetBool(pred(c))
		return nil
	}
}

// normIndex resolves idx against a sequence of length n. Negative indexes
// count from the end.
func normIndex(idx *value.Value, length int) (int, error) {
	if idx.Kind() != value.KindInt {
		return 0, fmt.Errorf("index must be int, got %s", idx.Type().Name)
	}
	i, _ := idx.AsInt()
	n := int64(length)
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, fmt.Errorf("index %d out of range [0, %d)", i, n)
	}
	return int(i), nil
}

func kernelGetIndex(args []*value.Value, out *value.Value) error {
	c, idx := args[0], args[1]
	switch c.Kind() {
	case value.KindList:
		i, err := normIndex(idx, c.ListLen())
		if err != nil {
			return err
		}
		el, _ := c.ListGet(i)
		value.Copy(el, out)
	case value.KindMap:
		v, ok := c.MapGet(idx)
		if !ok {
			return fmt.Errorf("key not found: %s", idx.Repr())
		}
		value.Copy(v, out)
	case value.KindString:
		s, _ := c.AsString()
		i, err := normIndex(idx, len(s))
		if err != nil {
			return err
		}
		out.SetString(s[i : i+1])
	default:
		return fmt.Errorf("cannot index %s", c.Type().Name)
	}
	return nil
}

func kernelSetIndex(args []*value.Value, out *value.Value) error {
	c, idx, v := args[0], args[1], args[2]
	switch c.Kind() {
	case value.KindList:
		i, err := normIndex(idx, c.ListLen())
		if err != nil {
			return err
		}
		value.Copy(c, out)
		out.ListSet(i, value.Clone(v))
	case value.KindMap:
		value.Copy(c, out)
		out.MapInsert(value.Clone(idx), value.Clone(v))
	default:
		return fmt.Errorf("cannot assign into %s", c.Type().Name)
	}
	return nil
}

// kernelRange implements range(stop), range(start, stop) and
// range(start, stop, step).
func kernelRange(args []*value.Value, out *value.Value) error {
	var start, stop, step int64 = 0, 0, 1
	get := func(i int) int64 {
		n, _ := args[i].AsInt()
		return n
	}
	switch len(args) {
	case 1:
		stop = get(0)
	case 2:
		start, stop = get(0), get(1)
	case 3:
		start, stop, step = get(0), get(1), get(2)
	default:
		return fmt.Errorf("range expects 1 to 3 arguments, got %d", len(args))
	}
	if step == 0 {
		return errors.New("range step must not be zero")
	}
	var items []value.Value
	for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
		items = append(items, value.Int(i))
	}
	value.Set(out, value.NewList(items...))
	return nil
}
