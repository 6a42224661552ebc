package value

import "fmt"

// ---------------------------------------------------------------------------
// Host marshalling ABI
//
// Hosts and native functions exchange data with the runtime only through
// these helpers and the registration API.
// ---------------------------------------------------------------------------

// GetInt returns the int held by v, or 0.
func GetInt(v *Value) int64 {
	i, _ := v.AsInt()
	return i
}

// GetFloat returns v as a float (ints widened), or 0.
func GetFloat(v *Value) float64 {
	f, _ := v.AsFloat()
	return f
}

// GetBool returns the bool held by v, or false.
func GetBool(v *Value) bool {
	b, _ := v.AsBool()
	return b
}

// GetString returns the string held by v, or "".
func GetString(v *Value) string {
	s, _ := v.AsString()
	return s
}

// GetPointer returns the opaque pointer held by v, or nil.
func GetPointer(v *Value) any {
	p, _ := v.AsPointer()
	return p
}

// SetInt overwrites v with i.
func SetInt(v *Value, i int64) { v.SetInt(i) }

// SetFloat overwrites v with f.
func SetFloat(v *Value, f float64) { v.SetFloat(f) }

// SetBool overwrites v with b.
func SetBool(v *Value, b bool) { v.SetBool(b) }

// SetString overwrites v with s.
func SetString(v *Value, s string) { v.SetString(s) }

// SetPointer overwrites v with p.
func SetPointer(v *Value, p any) { v.SetPointer(p) }

// IsError reports whether v holds an error value.
func IsError(v *Value) bool {
	return v.Kind() == KindError
}

// Make builds a Value of type t from a Go value.
func Make(t *Type, x any) (Value, error) {
	var v Value
	switch t.Kind {
	case KindNull:
		return v, nil
	case KindBool:
		b, ok := x.(bool)
		if !ok {
			return v, fmt.Errorf("value: make %s from %T", t.Name, x)
		}
		v.SetBool(b)
	case KindInt:
		switch n := x.(type) {
		case int:
			v.SetInt(int64(n))
		case int64:
			v.SetInt(n)
		case int32:
			v.SetInt(int64(n))
		default:
			return v, fmt.Errorf("value: make %s from %T", t.Name, x)
		}
	case KindFloat:
		switch f := x.(type) {
		case float64:
			v.SetFloat(f)
		case float32:
			v.SetFloat(float64(f))
		case int:
			v.SetFloat(float64(f))
		default:
			return v, fmt.Errorf("value: make %s from %T", t.Name, x)
		}
	case KindString:
		s, ok := x.(string)
		if !ok {
			return v, fmt.Errorf("value: make %s from %T", t.Name, x)
		}
		v.SetString(s)
	case KindList:
		v.SetList(0)
		if items, ok := x.([]Value); ok {
			for i := range items {
				v.ListAppend(Clone(&items[i]))
			}
		}
	case KindMap:
		v.SetMap()
	case KindPointer:
		v.SetPointer(x)
	case KindType:
		tt, ok := x.(*Type)
		if !ok {
			return v, fmt.Errorf("value: make %s from %T", t.Name, x)
		}
		v.SetType(tt)
	case KindNode:
		n, ok := x.(NodeHandle)
		if !ok {
			return v, fmt.Errorf("value: make %s from %T", t.Name, x)
		}
		v.SetNode(n)
	case KindObject:
		v.SetObject(t, x)
	case KindError:
		v.SetError(fmt.Sprint(x), nil)
	default:
		return v, fmt.Errorf("value: cannot make values of type %s", t.Name)
	}
	return v, nil
}
