package vm

import (
	"errors"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Runtime errors
// ---------------------------------------------------------------------------

var (
	// ErrInterrupted is reported when the host interrupts a run.
	ErrInterrupted = errors.New("interrupted")

	// ErrStackOverflow is reported when the frame stack exceeds MaxDepth.
	ErrStackOverflow = errors.New("stack overflow")

	// ErrScopeBusy is returned by a reload while frames still execute the
	// script's scope.
	ErrScopeBusy = errors.New("scope is in use by the stack")
)

// RuntimeError is a failure raised while executing a node. Trace lists the
// ids of the nodes that pushed the enclosing frames, innermost first.
type RuntimeError struct {
	NodeID  int
	Line    int
	Message string
	Trace   []int
	Err     error
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	if e.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", e.Line)
	}
	b.WriteString(e.Message)
	if e.NodeID != 0 {
		fmt.Fprintf(&b, " (node #%d)", e.NodeID)
	}
	return b.String()
}

// Unwrap returns the underlying cause, if any.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// FormatTrace renders the error followed by one line per enclosing node.
func (e *RuntimeError) FormatTrace() string {
	var b strings.Builder
	b.WriteString(e.Error())
	for _, id := range e.Trace {
		fmt.Fprintf(&b, "\n  in #%d", id)
	}
	return b.String()
}
