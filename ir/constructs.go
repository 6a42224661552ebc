package ir

import (
	"slices"

	"github.com/chazu/weft/value"
)

// ---------------------------------------------------------------------------
// Construct layout
//
// if:    Nested = [cond nodes, case, cond nodes, case, ..., case(else),
//                  output per joined name]
//        each case's Nested ends with an output per joined name.
// for:   Inputs = [iterable, initial carried...]
//        Nested = [input iterator, input carried..., body..., output iterator,
//                  output carried...]
// while: Inputs = [nil, initial carried...]
//        Nested = [input carried..., cond nodes, while_cond, body...,
//                  output carried...]
//
// A construct evaluates to a list [primary, joined...]: primary is null for
// an if, the collected iterator values for a for loop and null for a while
// loop. Extract nodes directly after the construct rebind the joined names.
// ---------------------------------------------------------------------------

// NewIf creates an if node and its interior scope.
func NewIf() *Node {
	n := NewNode(OpIf, "")
	NewNestedScope(n)
	return n
}

// AddCase appends a case to an if's interior. cond may be nil for else.
func AddCase(ifNode, cond *Node) *Node {
	c := NewNode(OpCase, "")
	if cond != nil {
		c.Inputs = []*Node{cond}
	}
	NewNestedScope(c)
	// cases go before the interior outputs
	pos := ifNode.Nested.Len()
	for i := 0; i < ifNode.Nested.Len(); i++ {
		if n := ifNode.Nested.At(i); n != nil && n.Op == OpOutput {
			pos = i
			break
		}
	}
	return ifNode.Nested.Insert(pos, c)
}

// Cases returns the case nodes of an if.
func Cases(ifNode *Node) []*Node {
	var out []*Node
	if ifNode.Nested == nil {
		return nil
	}
	for _, n := range ifNode.Nested.nodes {
		if n != nil && n.Op == OpCase {
			out = append(out, n)
		}
	}
	return out
}

// NewLoop creates a for or while node with an empty body. For a for loop,
// iterator names the loop variable bound to each element.
func NewLoop(op Op, iterable *Node, iterator string) *Node {
	n := NewNode(op, "", iterable)
	body := NewNestedScope(n)
	if op == OpFor {
		n.SetProp(PropIterator, value.String(iterator))
		body.Append(NewNode(OpInput, iterator))
		body.Append(NewNode(OpOutput, iterator))
	}
	return n
}

// Iterator returns the loop variable name of a for loop.
func Iterator(loop *Node) string {
	return loop.PropString(PropIterator)
}

// ConstructOutputNames returns the names a construct joins, in result-list
// order starting at index 1.
func ConstructOutputNames(n *Node) []string {
	switch {
	case n.Op == OpIf:
		return n.Nested.OutputNames()
	case n.Op.IsLoop():
		return LoopCarried(n)
	}
	return nil
}

// LoopCarried returns the names carried between iterations of a loop.
func LoopCarried(loop *Node) []string {
	it := Iterator(loop)
	var names []string
	for _, in := range loop.Nested.Inputs() {
		if loop.Op == OpFor && in.Name == it {
			continue
		}
		names = append(names, in.Name)
	}
	return names
}

// AddConstructOutput makes construct n also produce name, rebinding it in
// n's scope through a new extract. It returns false if n already joins
// name.
func AddConstructOutput(n *Node, name string) bool {
	if slices.Contains(ConstructOutputNames(n), name) {
		return false
	}
	switch {
	case n.Op == OpIf:
		n.Nested.Append(NewNode(OpOutput, name))
		for _, c := range Cases(n) {
			c.Nested.Append(NewNode(OpOutput, name))
		}
	case n.Op.IsLoop():
		if n.Op == OpFor && name == Iterator(n) {
			return false
		}
		var initial *Node
		if n.owner != nil {
			initial = n.owner.LookupAt(name, n.index)
		}
		if len(n.Inputs) == 0 {
			n.Inputs = []*Node{nil}
		}
		n.Inputs = append(n.Inputs, initial)
		body := n.Nested
		pos := 0
		for i := 0; i < body.Len(); i++ {
			if in := body.At(i); in != nil && in.Op == OpInput {
				pos = i + 1
			}
		}
		body.Insert(pos, NewNode(OpInput, name))
		body.Append(NewNode(OpOutput, name))
	default:
		return false
	}
	if n.owner != nil {
		addExtract(n, name, len(ConstructOutputNames(n)))
	}
	return true
}

// addExtract inserts an extract of element index of n's result after the
// extracts that already follow n.
func addExtract(n *Node, name string, index int) *Node {
	e := NewNode(OpExtract, name, n)
	e.SetProp(PropIndex, value.Int(int64(index)))
	return n.owner.Insert(extractRunEnd(n), e)
}

// extractRunEnd returns the position just past the extracts of n.
func extractRunEnd(n *Node) int {
	s := n.owner
	i := n.index + 1
	for ; i < s.Len(); i++ {
		e := s.At(i)
		if e == nil {
			continue
		}
		if e.Op != OpExtract || e.Input(0) != n {
			break
		}
	}
	return i
}

// Extracts returns the extract nodes that follow construct n.
func Extracts(n *Node) []*Node {
	var out []*Node
	if n.owner == nil {
		return nil
	}
	for i := n.index + 1; i < extractRunEnd(n); i++ {
		if e := n.owner.At(i); e != nil {
			out = append(out, e)
		}
	}
	return out
}

// sealOutputs moves the outputs of s to its end and points each named
// output at the binding visible there. If interiors are left alone since
// their outputs are filled from the taken case.
func sealOutputs(s *Scope) {
	if s.owner != nil && s.owner.Op == OpIf {
		return
	}
	outs := s.Outputs()
	if len(outs) == 0 {
		return
	}
	rest := make([]*Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		if n != nil && n.Op != OpOutput {
			rest = append(rest, n)
		}
	}
	s.nodes = append(rest, outs...)
	s.reindex(0)
	for _, o := range outs {
		if o.Name == "" {
			continue
		}
		if src := s.LookupAt(o.Name, o.index); src != nil {
			o.Inputs = []*Node{src}
		} else {
			o.Inputs = nil
		}
	}
}
