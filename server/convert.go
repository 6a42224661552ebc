package server

import (
	"math"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/chazu/weft/value"
)

// maxExactInt is the largest integer a JSON number holds exactly.
const maxExactInt = 1 << 53

// toProto converts a runtime value to its structpb form. Values with no
// JSON counterpart are sent as their display string.
func toProto(v *value.Value) *structpb.Value {
	switch v.Kind() {
	case value.KindNull:
		return structpb.NewNullValue()
	case value.KindBool:
		b, _ := v.AsBool()
		return structpb.NewBoolValue(b)
	case value.KindInt:
		i, _ := v.AsInt()
		return structpb.NewNumberValue(float64(i))
	case value.KindFloat:
		f, _ := v.AsFloat()
		return structpb.NewNumberValue(f)
	case value.KindString:
		s, _ := v.AsString()
		return structpb.NewStringValue(s)
	case value.KindList:
		items := v.ListItems()
		list := &structpb.ListValue{Values: make([]*structpb.Value, len(items))}
		for i := range items {
			list.Values[i] = toProto(&items[i])
		}
		return structpb.NewListValue(list)
	case value.KindMap:
		h, _ := v.AsMap()
		fields := make(map[string]*structpb.Value, h.Len())
		for k, x := range h.All() {
			fields[mapKey(k)] = toProto(x)
		}
		return structpb.NewStructValue(&structpb.Struct{Fields: fields})
	default:
		return structpb.NewStringValue(v.String())
	}
}

// mapKey names a map entry in a struct. Non-string keys use their source
// form.
func mapKey(k *value.Value) string {
	if s, ok := k.AsString(); ok {
		return s
	}
	return k.Repr()
}

// fromProto converts a structpb value to a runtime value. Whole numbers in
// the exact range become ints.
func fromProto(pv *structpb.Value) value.Value {
	switch k := pv.GetKind().(type) {
	case *structpb.Value_BoolValue:
		return value.Bool(k.BoolValue)
	case *structpb.Value_NumberValue:
		f := k.NumberValue
		if f == math.Trunc(f) && math.Abs(f) <= maxExactInt {
			return value.Int(int64(f))
		}
		return value.Float(f)
	case *structpb.Value_StringValue:
		return value.String(k.StringValue)
	case *structpb.Value_ListValue:
		vals := k.ListValue.GetValues()
		items := make([]value.Value, len(vals))
		for i, x := range vals {
			items[i] = fromProto(x)
		}
		return value.NewList(items...)
	case *structpb.Value_StructValue:
		m := value.NewMap()
		for name, x := range k.StructValue.GetFields() {
			m.MapInsert(value.String(name), fromProto(x))
		}
		return m
	default:
		return value.Null()
	}
}

// ---------------------------------------------------------------------------
// Struct field access
// ---------------------------------------------------------------------------

func stringField(msg *structpb.Struct, name string) string {
	return msg.GetFields()[name].GetStringValue()
}

func listField(msg *structpb.Struct, name string) []*structpb.Value {
	return msg.GetFields()[name].GetListValue().GetValues()
}
