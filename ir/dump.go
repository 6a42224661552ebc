package ir

import (
	"fmt"
	"io"
	"strings"
)

// Dump renders s and its nested scopes, one node per line.
//
//	#12 c = call add(#10, #11)
func Dump(w io.Writer, s *Scope) {
	dump(w, s, 0)
}

// DumpString returns Dump's output as a string.
func DumpString(s *Scope) string {
	var b strings.Builder
	Dump(&b, s)
	return b.String()
}

func dump(w io.Writer, s *Scope, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, n := range s.nodes {
		if n == nil {
			fmt.Fprintf(w, "%s<erased>\n", indent)
			continue
		}
		fmt.Fprintf(w, "%s%s\n", indent, describe(n))
		if n.Nested != nil {
			dump(w, n.Nested, depth+1)
		}
	}
}

func describe(n *Node) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d ", n.id)
	if n.Name != "" {
		fmt.Fprintf(&b, "%s = ", n.Name)
	}
	b.WriteString(n.Op.String())
	switch n.Op {
	case OpValue:
		b.WriteString(" " + n.Value.Repr())
	case OpCall:
		if n.Function != nil {
			b.WriteString(" " + n.Function.Name)
		}
	case OpExtract:
		fmt.Fprintf(&b, " [%d]", n.PropInt(PropIndex, 0))
	}
	if len(n.Inputs) > 0 {
		refs := make([]string, len(n.Inputs))
		for i, in := range n.Inputs {
			if in == nil {
				refs[i] = "_"
			} else {
				refs[i] = fmt.Sprintf("#%d", in.id)
			}
		}
		b.WriteString("(" + strings.Join(refs, ", ") + ")")
	}
	if lvl := n.PropInt(PropHighestExitLevel, 0); lvl != 0 {
		fmt.Fprintf(&b, " exit=%s", ExitLevel(lvl))
	}
	if msg := n.PropString(PropStaticError); msg != "" {
		fmt.Fprintf(&b, " !%s", msg)
	}
	return b.String()
}
