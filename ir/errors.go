package ir

import (
	"fmt"

	"github.com/chazu/weft/value"
)

// StaticError is a compile-time problem recorded on a node.
type StaticError struct {
	Node    *Node
	Line    int
	Col     int
	Message string
}

func (e StaticError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// MarkStaticError records msg on n. The first error on a node is kept.
func MarkStaticError(n *Node, msg string) {
	if n.HasProp(PropStaticError) {
		return
	}
	n.SetProp(PropStaticError, value.String(msg))
}

// HasStaticError reports whether n carries a static error.
func HasStaticError(n *Node) bool {
	return n.HasProp(PropStaticError)
}

// StaticErrors collects the static errors of s and its nested scopes in
// program order.
func StaticErrors(s *Scope) []StaticError {
	var errs []StaticError
	s.Walk(func(n *Node) bool {
		if msg := n.PropString(PropStaticError); msg != "" {
			line, col := n.Pos()
			errs = append(errs, StaticError{Node: n, Line: line, Col: col, Message: msg})
		}
		return true
	})
	return errs
}
