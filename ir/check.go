package ir

import (
	"errors"
	"fmt"
)

// Check validates structural invariants of s and its nested scopes: every
// node knows its slot, and every input refers to a node that is visible
// from the reading node's position.
func Check(s *Scope) error {
	var errs []error
	check(s, &errs)
	return errors.Join(errs...)
}

func check(s *Scope, errs *[]error) {
	for i, n := range s.nodes {
		if n == nil {
			continue
		}
		if n.owner != s || n.index != i {
			*errs = append(*errs, fmt.Errorf("%s: owner/index out of sync (index %d, slot %d)", n, n.index, i))
		}
		for _, in := range n.Inputs {
			if in != nil && !visibleFrom(in, s, i) {
				*errs = append(*errs, fmt.Errorf("%s: input %s is not visible", n, in))
			}
		}
		if n.Nested != nil {
			if n.Nested.owner != n {
				*errs = append(*errs, fmt.Errorf("%s: nested scope has a different owner", n))
			}
			check(n.Nested, errs)
		}
	}
}

// visibleFrom reports whether target sits strictly before pos in s or in
// an enclosing scope before the enclosing construct.
func visibleFrom(target *Node, s *Scope, pos int) bool {
	for s != nil {
		if target.owner == s {
			return target.index < pos
		}
		if s.owner == nil {
			s = s.parent
			pos = len(s.nodesOrNil())
			continue
		}
		pos = s.owner.index
		if s.owner.Op == OpFunction {
			pos++
		}
		s = s.owner.owner
	}
	return false
}

func (s *Scope) nodesOrNil() []*Node {
	if s == nil {
		return nil
	}
	return s.nodes
}
