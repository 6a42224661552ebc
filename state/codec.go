// Package state persists the state maps threaded between runs.
package state

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/weft/value"
)

// ErrUnsupported is returned for values that have no snapshot encoding.
var ErrUnsupported = errors.New("unsupported value")

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

// Snapshots use canonical CBOR so equal state always encodes to equal bytes.
func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("state: failed to create CBOR enc mode: %v", err))
	}
	encMode = em

	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[any]any(nil)),
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("state: failed to create CBOR dec mode: %v", err))
	}
	decMode = dm
}

// Encode serializes a state tree of null, bool, int, float, string, list
// and map values.
func Encode(v *value.Value) ([]byte, error) {
	tree, err := toTree(v)
	if err != nil {
		return nil, err
	}
	return encMode.Marshal(tree)
}

// Decode deserializes a state tree produced by Encode.
func Decode(data []byte) (value.Value, error) {
	var tree any
	if err := decMode.Unmarshal(data, &tree); err != nil {
		return value.Null(), fmt.Errorf("state: unmarshal snapshot: %w", err)
	}
	return fromTree(tree)
}

func toTree(v *value.Value) (any, error) {
	switch v.Kind() {
	case value.KindNull:
		return nil, nil
	case value.KindBool:
		b, _ := v.AsBool()
		return b, nil
	case value.KindInt:
		i, _ := v.AsInt()
		return i, nil
	case value.KindFloat:
		f, _ := v.AsFloat()
		return f, nil
	case value.KindString:
		s, _ := v.AsString()
		return s, nil
	case value.KindList:
		items := v.ListItems()
		out := make([]any, len(items))
		for i := range items {
			x, err := toTree(&items[i])
			if err != nil {
				return nil, err
			}
			out[i] = x
		}
		return out, nil
	case value.KindMap:
		h, _ := v.AsMap()
		out := make(map[any]any, h.Len())
		for k, val := range h.All() {
			key, err := toTree(k)
			if err != nil {
				return nil, err
			}
			switch key.(type) {
			case []any, map[any]any:
				return nil, fmt.Errorf("%w: map key of type %s", ErrUnsupported, k.Type().Name)
			}
			x, err := toTree(val)
			if err != nil {
				return nil, err
			}
			out[key] = x
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, v.Type().Name)
}

func fromTree(x any) (value.Value, error) {
	switch x := x.(type) {
	case nil:
		return value.Null(), nil
	case bool:
		return value.Bool(x), nil
	case int64:
		return value.Int(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return value.Null(), fmt.Errorf("%w: integer %d overflows int", ErrUnsupported, x)
		}
		return value.Int(int64(x)), nil
	case float32:
		return value.Float(float64(x)), nil
	case float64:
		return value.Float(x), nil
	case string:
		return value.String(x), nil
	case []byte:
		return value.String(string(x)), nil
	case []any:
		items := make([]value.Value, 0, len(x))
		for _, el := range x {
			v, err := fromTree(el)
			if err != nil {
				for i := range items {
					items[i].Release()
				}
				return value.Null(), err
			}
			items = append(items, v)
		}
		return value.NewList(items...), nil
	case map[any]any:
		m := value.NewMap()
		for k, el := range x {
			key, err := fromTree(k)
			if err != nil {
				m.Release()
				return value.Null(), err
			}
			v, err := fromTree(el)
			if err != nil {
				key.Release()
				m.Release()
				return value.Null(), err
			}
			m.MapInsert(key, v)
		}
		return m, nil
	}
	return value.Null(), fmt.Errorf("%w: CBOR item of type %T", ErrUnsupported, x)
}
