package ir

import (
	"strings"

	"github.com/chazu/weft/value"
)

// Scope is an ordered, name-indexed sequence of nodes. Order is execution
// order, and the latest binding of a name before a position wins.
type Scope struct {
	nodes  []*Node // nil entries are erased nodes awaiting Compact
	names  *value.Hashtable
	owner  *Node
	parent *Scope // used when there is no owner, e.g. toplevel -> kernel
	ids    *IDs
}

// NewScope creates an empty detached scope.
func NewScope() *Scope {
	return &Scope{names: value.NewHashtable()}
}

// NewNestedScope creates an empty scope owned by n and installs it as n's
// nested scope.
func NewNestedScope(n *Node) *Scope {
	s := NewScope()
	s.owner = n
	n.Nested = s
	return s
}

// Owner returns the node owning s, or nil for a root scope.
func (s *Scope) Owner() *Node { return s.owner }

// Parent returns the lexically enclosing scope.
func (s *Scope) Parent() *Scope {
	if s.owner != nil {
		return s.owner.owner
	}
	return s.parent
}

// SetParent links a root scope to an enclosing scope for name lookup. The
// scope joins the parent's id space.
func (s *Scope) SetParent(p *Scope) {
	s.parent = p
	s.ids = nil
}

// SetIDs makes s the root of an id space. Nodes attached under s, or under
// root scopes whose parent chain reaches s, are numbered by g.
func (s *Scope) SetIDs(g *IDs) { s.ids = g }

// idSource returns the id space of s, or nil while s hangs off a detached
// node.
func (s *Scope) idSource() *IDs {
	sc := s
	for {
		switch {
		case sc.ids != nil:
			return sc.ids
		case sc.owner != nil:
			if sc.owner.owner == nil {
				return nil
			}
			sc = sc.owner.owner
		case sc.parent != nil:
			sc = sc.parent
		default:
			// a standalone root numbers its own nodes
			sc.ids = &IDs{}
			return sc.ids
		}
	}
}

func (s *Scope) attach(n *Node) {
	n.owner = s
	if g := s.idSource(); g != nil {
		g.number(n)
	}
}

// Len returns the number of slots, including erased ones.
func (s *Scope) Len() int { return len(s.nodes) }

// At returns the node in slot i, or nil.
func (s *Scope) At(i int) *Node {
	if i < 0 || i >= len(s.nodes) {
		return nil
	}
	return s.nodes[i]
}

// Nodes returns the live nodes in order.
func (s *Scope) Nodes() []*Node {
	out := make([]*Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Append adds n at the end of s.
func (s *Scope) Append(n *Node) *Node {
	s.attach(n)
	n.index = len(s.nodes)
	s.nodes = append(s.nodes, n)
	if n.Name != "" {
		s.bind(n)
	}
	return n
}

// Insert places n at position at, shifting later nodes.
func (s *Scope) Insert(at int, n *Node) *Node {
	if at >= len(s.nodes) {
		return s.Append(n)
	}
	at = max(at, 0)
	s.nodes = append(s.nodes, nil)
	copy(s.nodes[at+1:], s.nodes[at:])
	s.nodes[at] = n
	s.attach(n)
	s.reindex(at)
	if n.Name != "" {
		s.rebuildNames()
	}
	return n
}

// Erase removes n, leaving an empty slot until Compact.
func (s *Scope) Erase(n *Node) {
	if n.owner != s {
		return
	}
	s.nodes[n.index] = nil
	n.owner = nil
	n.release()
	if n.Name != "" {
		s.rebuildNames()
	}
}

// Compact drops erased slots.
func (s *Scope) Compact() {
	live := s.nodes[:0]
	for _, n := range s.nodes {
		if n != nil {
			live = append(live, n)
		}
	}
	clear(s.nodes[len(live):])
	s.nodes = live
	s.reindex(0)
}

// Rename changes n's binding name.
func (s *Scope) Rename(n *Node, name string) {
	n.Name = name
	s.rebuildNames()
}

// RemapInputs replaces every input reference to from with to, in s and in
// all scopes nested under it.
func (s *Scope) RemapInputs(from, to *Node) {
	for _, n := range s.nodes {
		if n == nil {
			continue
		}
		for i, in := range n.Inputs {
			if in == from {
				n.Inputs[i] = to
			}
		}
		if n.Function == from {
			n.Function = to
		}
		if n.Nested != nil {
			n.Nested.RemapInputs(from, to)
		}
	}
}

func (s *Scope) reindex(from int) {
	for i := from; i < len(s.nodes); i++ {
		if s.nodes[i] != nil {
			s.nodes[i].index = i
		}
	}
}

func (s *Scope) bind(n *Node) {
	if n.Op == OpOutput {
		return
	}
	s.names.InsertString(n.Name, value.Node(n))
}

func (s *Scope) rebuildNames() {
	s.names.Clear()
	for _, n := range s.nodes {
		if n != nil && n.Name != "" {
			s.bind(n)
		}
	}
}

// ---------------------------------------------------------------------------
// Name lookup
// ---------------------------------------------------------------------------

// Lookup finds the binding of name visible at the end of s.
func (s *Scope) Lookup(name string) *Node {
	if v, ok := s.names.GetString(name); ok {
		if h, ok := v.AsNode(); ok {
			return h.(*Node)
		}
	}
	return s.lookupOuter(name)
}

// LookupAt finds the binding of name visible just before position pos:
// the latest binding strictly before pos, else the binding visible in the
// enclosing scope at the owner's position. Names starting with '#' do not
// cross function boundaries.
func (s *Scope) LookupAt(name string, pos int) *Node {
	pos = min(pos, len(s.nodes))
	for i := pos - 1; i >= 0; i-- {
		n := s.nodes[i]
		if n != nil && n.Name == name && n.Op != OpOutput {
			return n
		}
	}
	return s.lookupOuter(name)
}

func (s *Scope) lookupOuter(name string) *Node {
	if s.owner == nil {
		if s.parent == nil {
			return nil
		}
		return s.parent.Lookup(name)
	}
	if s.owner.Op == OpFunction && strings.HasPrefix(name, "#") {
		return nil
	}
	outer := s.owner.owner
	if outer == nil {
		return nil
	}
	pos := s.owner.index
	if s.owner.Op == OpFunction {
		// a function sees its own name so it can recurse
		pos++
	}
	return outer.LookupAt(name, pos)
}

// ---------------------------------------------------------------------------
// Interface placeholders
// ---------------------------------------------------------------------------

// Inputs returns the visible input placeholders in order.
func (s *Scope) Inputs() []*Node {
	var out []*Node
	for _, n := range s.nodes {
		if n != nil && n.Op == OpInput && !n.PropBool(PropHidden) {
			out = append(out, n)
		}
	}
	return out
}

// Outputs returns the output placeholders in order.
func (s *Scope) Outputs() []*Node {
	var out []*Node
	for _, n := range s.nodes {
		if n != nil && n.Op == OpOutput {
			out = append(out, n)
		}
	}
	return out
}

// OutputNames returns the names of the output placeholders.
func (s *Scope) OutputNames() []string {
	outs := s.Outputs()
	names := make([]string, len(outs))
	for i, o := range outs {
		names[i] = o.Name
	}
	return names
}

// Output returns the output placeholder called name.
func (s *Scope) Output(name string) *Node {
	for _, n := range s.nodes {
		if n != nil && n.Op == OpOutput && n.Name == name {
			return n
		}
	}
	return nil
}

// Clear erases every node, releasing its values.
func (s *Scope) Clear() {
	for _, n := range s.nodes {
		if n != nil {
			n.owner = nil
			n.release()
		}
	}
	s.nodes = nil
	s.names.Clear()
}

// Walk calls fn for every node of s and of every nested scope, depth first
// in program order. Returning false skips the node's nested scope.
func (s *Scope) Walk(fn func(n *Node) bool) {
	for _, n := range s.nodes {
		if n == nil {
			continue
		}
		if fn(n) && n.Nested != nil {
			n.Nested.Walk(fn)
		}
	}
}
