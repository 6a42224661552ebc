package value

import (
	"fmt"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// Kind: storage discriminant
// ---------------------------------------------------------------------------

// Kind identifies the storage layout of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindMap
	KindPointer
	KindType
	KindNode
	KindObject
	KindError
	KindAny // pseudo-kind used only by AnyType
)

var kindNames = map[Kind]string{
	KindNull:    "null",
	KindBool:    "bool",
	KindInt:     "int",
	KindFloat:   "float",
	KindString:  "string",
	KindList:    "list",
	KindMap:     "map",
	KindPointer: "pointer",
	KindType:    "type",
	KindNode:    "node",
	KindObject:  "object",
	KindError:   "error",
	KindAny:     "any",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// ---------------------------------------------------------------------------
// Type: per-type behavior table
// ---------------------------------------------------------------------------

// Type is the behavior table shared by every Value of one type.
//
// Initialize installs the zero representation. Release discards storage
// and must run exactly once per representation. Copy writes an independent
// logical copy of src into a cleared dst. Cast converts src into this type;
// it must leave dst untouched when checkOnly is set.
type Type struct {
	Name string
	Kind Kind

	Initialize func(v *Value)
	Release    func(v *Value)
	Copy       func(src, dst *Value)
	Equals     func(a, b *Value) bool
	Hash       func(v *Value) uint64
	ToString   func(v *Value) string
	Cast       func(src, dst *Value, checkOnly bool) error

	refs atomic.Int64 // number of Values currently claiming this type
}

// Refs returns the number of live Values that claim t.
func (t *Type) Refs() int64 {
	return t.refs.Load()
}

func (t *Type) String() string {
	if t == nil {
		return "null"
	}
	return t.Name
}

// ---------------------------------------------------------------------------
// Type table
// ---------------------------------------------------------------------------

// TypeTable maps type names to descriptors. The builtin types are always
// present; hosts add object types with Register.
type TypeTable struct {
	byName map[string]*Type
}

// NewTypeTable creates a table preloaded with the builtin types.
func NewTypeTable() *TypeTable {
	tt := &TypeTable{byName: make(map[string]*Type)}
	for _, t := range BuiltinTypes() {
		tt.byName[t.Name] = t
	}
	return tt
}

// Register adds t to the table, replacing any previous type of that name.
func (tt *TypeTable) Register(t *Type) {
	tt.byName[t.Name] = t
}

// Lookup finds a type by name.
func (tt *TypeTable) Lookup(name string) (*Type, bool) {
	t, ok := tt.byName[name]
	return t, ok
}
