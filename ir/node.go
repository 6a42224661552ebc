package ir

import (
	"fmt"

	"github.com/chazu/weft/value"
)

// NativeFunc implements a builtin. args are read-only; the result is
// written to out. A returned error becomes a runtime error at the call.
type NativeFunc func(args []*value.Value, out *value.Value) error

// IDs hands out node ids. Every VM owns one through its kernel scope, so
// ids are unique within a VM and start over in the next.
type IDs struct {
	last int
}

// number gives n and the nodes nested under it their ids.
func (g *IDs) number(n *Node) {
	if n.id == 0 {
		g.last++
		n.id = g.last
	}
	if n.Nested == nil {
		return
	}
	for _, c := range n.Nested.nodes {
		if c != nil {
			g.number(c)
		}
	}
}

// Node is one compiled operation or definition.
type Node struct {
	id int

	Op       Op
	Name     string  // binding name, unique per position in the owning scope
	Function *Node   // callee of an OpCall
	Inputs   []*Node // positional inputs; nil entries read as null
	Nested   *Scope  // body of functions, branches and loops

	// Value holds the literal of an OpValue node and the function reference
	// of an OpFunction node.
	Value value.Value

	// Native is set on builtin OpFunction nodes.
	Native NativeFunc

	props *value.Hashtable
	owner *Scope
	index int
}

// NewNode creates a detached node. It receives its id once it is attached
// under a scope that belongs to an id space.
func NewNode(op Op, name string, inputs ...*Node) *Node {
	return &Node{
		Op:     op,
		Name:   name,
		Inputs: inputs,
		index:  -1,
	}
}

// ID returns the node's id, unique within its VM, or 0 while detached.
func (n *Node) ID() int { return n.id }

// NodeID implements value.NodeHandle.
func (n *Node) NodeID() int { return n.id }

// Owner returns the scope holding n, or nil once detached.
func (n *Node) Owner() *Scope { return n.owner }

// Index returns n's position in its owner.
func (n *Node) Index() int { return n.index }

// Erased reports whether n was removed from its scope.
func (n *Node) Erased() bool { return n.owner == nil }

// Input returns input i or nil.
func (n *Node) Input(i int) *Node {
	if i < 0 || i >= len(n.Inputs) {
		return nil
	}
	return n.Inputs[i]
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	if n.Name != "" {
		return fmt.Sprintf("#%d %s %s", n.id, n.Op, n.Name)
	}
	return fmt.Sprintf("#%d %s", n.id, n.Op)
}

// UniqueName returns the binding name, or for anonymous nodes a name built
// from the op and its ordinal among same-op anonymous nodes of the scope,
// e.g. "_for0". It is stable as long as no same-op node is inserted before n.
func (n *Node) UniqueName() string {
	if n.Name != "" {
		return n.Name
	}
	ordinal := 0
	if n.owner != nil {
		for _, other := range n.owner.nodes[:max(n.index, 0)] {
			if other != nil && other.Op == n.Op && other.Name == "" {
				ordinal++
			}
		}
	}
	return fmt.Sprintf("_%s%d", n.Op, ordinal)
}

// ---------------------------------------------------------------------------
// Properties
// ---------------------------------------------------------------------------

// SetProp stores v under key, taking ownership of v.
func (n *Node) SetProp(key string, v value.Value) {
	if n.props == nil {
		n.props = value.NewHashtable()
	}
	n.props.InsertString(key, v)
}

// Prop returns the property stored under key.
func (n *Node) Prop(key string) (*value.Value, bool) {
	if n.props == nil {
		return nil, false
	}
	return n.props.GetString(key)
}

// HasProp reports whether key is set.
func (n *Node) HasProp(key string) bool {
	_, ok := n.Prop(key)
	return ok
}

// RemoveProp deletes key.
func (n *Node) RemoveProp(key string) {
	if n.props != nil {
		n.props.RemoveString(key)
	}
}

// PropString returns a string property or "".
func (n *Node) PropString(key string) string {
	if v, ok := n.Prop(key); ok {
		return value.GetString(v)
	}
	return ""
}

// PropInt returns an int property or def.
func (n *Node) PropInt(key string, def int) int {
	if v, ok := n.Prop(key); ok {
		if i, ok := v.AsInt(); ok {
			return int(i)
		}
	}
	return def
}

// PropBool returns a bool property or false.
func (n *Node) PropBool(key string) bool {
	if v, ok := n.Prop(key); ok {
		return value.GetBool(v)
	}
	return false
}

// SetPos records a source location.
func (n *Node) SetPos(line, col int) {
	n.SetProp(PropLine, value.Int(int64(line)))
	n.SetProp(PropCol, value.Int(int64(col)))
}

// Pos returns the recorded source location, or 0, 0.
func (n *Node) Pos() (line, col int) {
	return n.PropInt(PropLine, 0), n.PropInt(PropCol, 0)
}

// release drops the node's values and properties.
func (n *Node) release() {
	n.Value.Release()
	if n.props != nil {
		n.props.Clear()
	}
	if n.Nested != nil {
		n.Nested.Clear()
	}
}

// ---------------------------------------------------------------------------
// Functions
// ---------------------------------------------------------------------------

// NewFunction creates an OpFunction node with an empty body whose Value is
// a reference to itself.
func NewFunction(name string) *Node {
	fn := NewNode(OpFunction, name)
	NewNestedScope(fn)
	fn.Value = value.Node(fn)
	return fn
}

// Params returns the visible input placeholders of a function body.
func (n *Node) Params() []*Node {
	if n.Nested == nil {
		return nil
	}
	return n.Nested.Inputs()
}

// AsFunction returns the function node referenced by v.
func AsFunction(v *value.Value) (*Node, bool) {
	h, ok := v.AsNode()
	if !ok {
		return nil, false
	}
	fn, ok := h.(*Node)
	if !ok || fn.Op != OpFunction {
		return nil, false
	}
	return fn, true
}
