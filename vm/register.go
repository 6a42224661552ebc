package vm

import (
	"fmt"

	"github.com/chazu/weft/compiler"
	"github.com/chazu/weft/ir"
	"github.com/chazu/weft/value"
)

// RegisterFunction parses signature, e.g. "add(int, int) -> int", and
// appends a native function node implementing it to scope. Parameter and
// return type names must be known to types.
func RegisterFunction(types *value.TypeTable, scope *ir.Scope, signature string, fn ir.NativeFunc) (*ir.Node, error) {
	sig, err := compiler.ParseSignature(signature)
	if err != nil {
		return nil, err
	}
	if types == nil {
		types = value.NewTypeTable()
	}
	for _, p := range sig.Params {
		if _, ok := types.Lookup(p.Type); !ok {
			return nil, fmt.Errorf("%s: unknown type: %s", sig.Name, p.Type)
		}
	}
	if _, ok := types.Lookup(sig.Returns); !ok {
		return nil, fmt.Errorf("%s: unknown type: %s", sig.Name, sig.Returns)
	}

	node := ir.NewFunction(sig.Name)
	for _, p := range sig.Params {
		in := node.Nested.Append(ir.NewNode(ir.OpInput, p.Name))
		in.SetProp(ir.PropType, value.String(p.Type))
	}
	if sig.Variadic {
		node.SetProp(ir.PropVariadic, value.Bool(true))
	}
	node.SetProp(ir.PropReturns, value.String(sig.Returns))
	node.Native = fn
	return scope.Append(node), nil
}

// mustRegister is RegisterFunction for the kernel's own builtins.
func mustRegister(types *value.TypeTable, scope *ir.Scope, signature string, fn ir.NativeFunc) *ir.Node {
	n, err := RegisterFunction(types, scope, signature, fn)
	if err != nil {
		panic(err)
	}
	return n
}
