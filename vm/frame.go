package vm

import (
	"github.com/chazu/weft/ir"
	"github.com/chazu/weft/value"
)

// ---------------------------------------------------------------------------
// Frame: one activation of a scope
// ---------------------------------------------------------------------------

// frameKind says how a finished frame hands its outputs back.
type frameKind int

const (
	frameRoot frameKind = iota // toplevel run or host call
	frameCall                  // script function call
	frameIf                    // if interior, picks a case
	frameCase                  // taken case of an if
	frameLoop                  // one loop iteration
)

func (k frameKind) String() string {
	switch k {
	case frameRoot:
		return "root"
	case frameCall:
		return "call"
	case frameIf:
		return "if"
	case frameCase:
		return "case"
	case frameLoop:
		return "loop"
	}
	return "unknown"
}

// exitKind is the pending early exit of a frame.
type exitKind int

const (
	exitNone exitKind = iota
	exitReturn
	exitBreak
	exitContinue
	exitDiscard
	exitLoopEnd // while condition turned false
)

func (e exitKind) String() string {
	switch e {
	case exitNone:
		return "none"
	case exitReturn:
		return "return"
	case exitBreak:
		return "break"
	case exitContinue:
		return "continue"
	case exitDiscard:
		return "discard"
	case exitLoopEnd:
		return "loop end"
	}
	return "unknown"
}

// Frame holds the registers of one scope activation. Registers has one
// slot per node of Scope.
type Frame struct {
	Scope     *ir.Scope
	Registers []value.Value
	Parent    *Frame

	kind frameKind
	node *ir.Node // node of Parent that pushed this frame
	fn   *ir.Node // called function for call and root call frames
	pc   int
	exit exitKind

	stateKey string      // key under the parent's state, "" for the toplevel
	stateIn  value.Value // map (or list for if frames) from the previous run
	stateOut value.Value // map (or list for if frames) built by this run

	caseIndex int        // for case frames
	loop      *loopState // for loop frames
}

func newFrame(scope *ir.Scope, kind frameKind, parent *Frame, node *ir.Node) *Frame {
	f := &Frame{
		Scope:     scope,
		Registers: make([]value.Value, scope.Len()),
		Parent:    parent,
		kind:      kind,
		node:      node,
	}
	f.stateOut = value.NewMap()
	return f
}

// Node returns the node that pushed f, nil for a root frame.
func (f *Frame) Node() *ir.Node { return f.node }

// PC returns the index of the node f executes next.
func (f *Frame) PC() int { return f.pc }

// Register returns the value computed for n if n belongs to f's scope.
func (f *Frame) Register(n *ir.Node) (*value.Value, bool) {
	if n == nil || n.Owner() != f.Scope || n.Index() >= len(f.Registers) {
		return nil, false
	}
	return &f.Registers[n.Index()], true
}

// release drops every value held by f.
func (f *Frame) release() {
	for i := range f.Registers {
		f.Registers[i].Release()
	}
	f.stateIn.Release()
	f.stateOut.Release()
	if f.loop != nil && f.loop.owner == f {
		f.loop.release()
	}
}

// stateFor returns the previous-run state stored under key, or nil.
func (f *Frame) stateFor(key string) *value.Value {
	k := value.String(key)
	defer k.Release()
	v, ok := f.stateIn.MapGet(&k)
	if !ok {
		return nil
	}
	return v
}

// storeState records child state under key when it holds anything.
func (f *Frame) storeState(key string, child value.Value) {
	if isEmptyState(&child) {
		child.Release()
		return
	}
	f.stateOut.MapInsert(value.String(key), child)
}

// commitState adds the final value of each state declaration of the scope
// to stateOut.
func (f *Frame) commitState() {
	for _, n := range f.Scope.Nodes() {
		if n.Op != ir.OpState || n.Index() >= f.pc {
			continue
		}
		b := f.Scope.LookupAt(n.Name, f.pc)
		reg, ok := f.Register(b)
		if !ok {
			continue
		}
		f.stateOut.MapInsert(value.String(n.Name), value.Clone(reg))
	}
}

// outputs reads the registers of the scope's output placeholders.
func (f *Frame) outputs() []value.Value {
	outs := f.Scope.Outputs()
	vals := make([]value.Value, len(outs))
	for i, o := range outs {
		vals[i] = value.Clone(&f.Registers[o.Index()])
	}
	return vals
}

// isEmptyState reports whether v carries no state worth persisting.
func isEmptyState(v *value.Value) bool {
	switch v.Kind() {
	case value.KindNull:
		return true
	case value.KindMap:
		return v.MapLen() == 0
	case value.KindList:
		for _, item := range v.ListItems() {
			if !isEmptyState(&item) {
				return false
			}
		}
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Loop iteration state
// ---------------------------------------------------------------------------

// loopState is shared by the successive iteration frames of one loop run.
type loopState struct {
	node      *ir.Node
	owner     *Frame      // current iteration frame
	iterable  value.Value // list being iterated, null for while loops
	index     int
	carried   []string
	values    []value.Value // current carried values, parallel to carried
	collected value.Value   // iterator values of a for loop
	stateIn   value.Value   // list of per-iteration state
	stateOut  value.Value
}

func (ls *loopState) release() {
	ls.iterable.Release()
	for i := range ls.values {
		ls.values[i].Release()
	}
	ls.collected.Release()
	ls.stateIn.Release()
	ls.stateOut.Release()
}

// more reports whether another iteration should run.
func (ls *loopState) more() bool {
	if ls.node.Op == ir.OpWhile {
		return true
	}
	return ls.index < ls.iterable.ListLen()
}
