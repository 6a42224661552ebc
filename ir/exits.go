package ir

import (
	"github.com/chazu/weft/value"
)

// ---------------------------------------------------------------------------
// Exit levels
// ---------------------------------------------------------------------------

// ExitLevel ranks how far an early exit unwinds.
type ExitLevel int

const (
	ExitLevelNone     ExitLevel = iota
	ExitLevelLoop               // break, continue, discard, loop end
	ExitLevelFunction           // return
)

func (l ExitLevel) String() string {
	switch l {
	case ExitLevelNone:
		return "none"
	case ExitLevelLoop:
		return "loop"
	case ExitLevelFunction:
		return "function"
	}
	return "invalid"
}

// MaxExitLevel returns the higher of a and b.
func MaxExitLevel(a, b ExitLevel) ExitLevel {
	return max(a, b)
}

// FindHighestEscapingExitLevel returns the highest exit level that can
// leave n. Loops absorb loop-level exits and function definitions absorb
// everything.
func FindHighestEscapingExitLevel(n *Node) ExitLevel {
	switch n.Op {
	case OpReturn:
		return ExitLevelFunction
	case OpBreak, OpContinue, OpDiscard, OpWhileCond:
		return ExitLevelLoop
	case OpFunction:
		return ExitLevelNone
	}
	if n.Nested == nil {
		return ExitLevelNone
	}
	lvl := scopeExitLevel(n.Nested)
	if n.Op.IsLoop() && lvl == ExitLevelLoop {
		return ExitLevelNone
	}
	return lvl
}

func scopeExitLevel(s *Scope) ExitLevel {
	lvl := ExitLevelNone
	for _, n := range s.nodes {
		if n == nil {
			continue
		}
		lvl = MaxExitLevel(lvl, FindHighestEscapingExitLevel(n))
		if lvl == ExitLevelFunction {
			break
		}
	}
	return lvl
}

// ---------------------------------------------------------------------------
// Exit point pass
// ---------------------------------------------------------------------------

// UpdateExitPoints makes every early exit in s explicit. Each node that can
// exit early is followed (after its extracts) by an exit point whose input
// 0 is the node and whose remaining inputs capture the scope's outputs as
// of that point. Constructs that can exit are made to join the enclosing
// scope's outputs so those captures are well defined. Running it again
// leaves the graph unchanged.
func UpdateExitPoints(s *Scope) {
	addExitPoints(s)
	fixExitPoints(s)
}

func addExitPoints(s *Scope) {
	outputs := s.OutputNames()
	for i := 0; i < s.Len(); i++ {
		n := s.At(i)
		if n == nil || n.Op == OpExitPoint || n.Op == OpOutput {
			continue
		}
		lvl := FindHighestEscapingExitLevel(n)
		if lvl != ExitLevelNone && s.owner != nil && s.owner.Op == OpIf {
			// if interiors hold cases and conditions only; exits inside a
			// case are marked in the case body
			lvl = ExitLevelNone
		}
		if lvl != ExitLevelNone {
			if n.Op.IsConstruct() {
				for _, name := range outputs {
					AddConstructOutput(n, name)
				}
			}
			ensureExitPoint(n, lvl)
		}
		if n.Nested != nil {
			addExitPoints(n.Nested)
		}
	}
}

func ensureExitPoint(n *Node, lvl ExitLevel) *Node {
	s := n.owner
	pos := n.index + 1
	if n.Op.IsConstruct() {
		pos = extractRunEnd(n)
	}
	marker := s.At(pos)
	if marker == nil || marker.Op != OpExitPoint || marker.Input(0) != n {
		marker = NewNode(OpExitPoint, "", n)
		marker.SetProp(PropSynthetic, value.Bool(true))
		s.Insert(pos, marker)
	}
	marker.SetProp(PropHighestExitLevel, value.Int(int64(lvl)))
	return marker
}

// fixExitPoints seals every scope's outputs and rewires each exit point
// to the nodes supplying the scope's outputs at its position.
func fixExitPoints(s *Scope) {
	sealOutputs(s)
	outputs := s.OutputNames()
	for i := 0; i < s.Len(); i++ {
		n := s.At(i)
		if n == nil {
			continue
		}
		if n.Op == OpExitPoint {
			inputs := []*Node{n.Input(0)}
			for _, name := range outputs {
				inputs = append(inputs, s.LookupAt(name, i))
			}
			n.Inputs = inputs
		}
		if n.Nested != nil {
			fixExitPoints(n.Nested)
		}
	}
}

// ExitPoints returns the exit markers of s (not of nested scopes).
func ExitPoints(s *Scope) []*Node {
	var out []*Node
	for _, n := range s.nodes {
		if n != nil && n.Op == OpExitPoint {
			out = append(out, n)
		}
	}
	return out
}
