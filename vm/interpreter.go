package vm

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/chazu/weft/ir"
	"github.com/chazu/weft/value"
)

// DefaultMaxDepth bounds the frame stack unless configured otherwise.
const DefaultMaxDepth = 512

// propDynamicCall marks the kernel function that calls its first argument.
const propDynamicCall = "dynamic_call"

var nullValue value.Value

// ---------------------------------------------------------------------------
// Stack: the interpreter state machine
// ---------------------------------------------------------------------------

// Stack executes scopes on an explicit stack of frames. It is not safe for
// concurrent use; the interrupt flag is the only exception.
type Stack struct {
	MaxDepth int

	types       *value.TypeTable
	frames      []*Frame
	last        *Frame // retained toplevel frame of the last finished run
	result      value.Value
	state       value.Value
	err         *RuntimeError
	interrupted atomic.Bool
}

// NewStack creates an empty stack resolving declared types through types.
func NewStack(types *value.TypeTable) *Stack {
	if types == nil {
		types = value.NewTypeTable()
	}
	return &Stack{
		MaxDepth: DefaultMaxDepth,
		types:    types,
		state:    value.NewMap(),
	}
}

// Interrupt asks the running stack to stop at the next frame push. It may
// be called from any goroutine.
func (s *Stack) Interrupt() {
	s.interrupted.Store(true)
}

// Errored reports whether the last run failed.
func (s *Stack) Errored() bool {
	return s.err != nil
}

// Err returns the error of the last run, or nil.
func (s *Stack) Err() *RuntimeError {
	return s.err
}

// Depth returns the number of active frames.
func (s *Stack) Depth() int {
	return len(s.frames)
}

// Frames returns the active frames, outermost first. After a runtime
// error they describe where execution stopped.
func (s *Stack) Frames() []*Frame {
	return s.frames
}

// Restart clears an errored or interrupted stack. Persisted state is kept.
func (s *Stack) Restart() {
	for i := len(s.frames) - 1; i >= 0; i-- {
		s.frames[i].release()
	}
	s.frames = nil
	s.err = nil
	s.interrupted.Store(false)
}

// State returns a copy of the persisted state map.
func (s *Stack) State() value.Value {
	return value.Clone(&s.state)
}

// SetState replaces the persisted state. A non-map value resets it.
func (s *Stack) SetState(v value.Value) {
	if !v.IsMap() {
		v.Release()
		v = value.NewMap()
	}
	value.Set(&s.state, v)
}

// Register returns the value computed for a toplevel node by the last
// completed run of its scope.
func (s *Stack) Register(n *ir.Node) (*value.Value, bool) {
	if s.last == nil {
		return nil, false
	}
	return s.last.Register(n)
}

// References reports whether any active or retained frame executes scope
// or a scope nested in it.
func (s *Stack) References(scope *ir.Scope) bool {
	within := func(sc *ir.Scope) bool {
		for sc != nil {
			if sc == scope {
				return true
			}
			if sc.Owner() == nil {
				return false
			}
			sc = sc.Owner().Owner()
		}
		return false
	}
	for _, f := range s.frames {
		if within(f.Scope) {
			return true
		}
	}
	return false
}

// Forget drops the retained registers of the last run.
func (s *Stack) Forget() {
	if s.last != nil {
		s.last.release()
		s.last = nil
	}
}

// RunScope executes scope as a toplevel program. State from the previous
// run is threaded in and, on success, replaced by this run's state.
func (s *Stack) RunScope(ctx context.Context, scope *ir.Scope) error {
	if s.err != nil {
		return s.err
	}
	f := newFrame(scope, frameRoot, nil, nil)
	value.Copy(&s.state, &f.stateIn)
	if err := s.push(ctx, f); err != nil {
		f.release()
		return s.fail(nil, err)
	}
	return s.Run(ctx)
}

// Call invokes fn with args as a root frame and returns its result. The
// function's state lives under its name in the persisted state.
func (s *Stack) Call(ctx context.Context, fn *ir.Node, args ...value.Value) (value.Value, error) {
	if s.err != nil {
		return value.Null(), s.err
	}
	if fn == nil || fn.Op != ir.OpFunction {
		return value.Null(), fmt.Errorf("call of %v: not a function", fn)
	}

	argp := make([]*value.Value, len(args))
	for i := range args {
		argp[i] = &args[i]
	}
	if fn.Native != nil {
		var out value.Value
		if err := s.callNative(fn, argp, &out); err != nil {
			return value.Null(), s.fail(fn, err)
		}
		return out, nil
	}

	f := newFrame(fn.Nested, frameRoot, nil, nil)
	f.fn = fn
	f.stateKey = fn.Name
	if prev := rootState(&s.state, fn.Name); prev != nil {
		value.Copy(prev, &f.stateIn)
	}
	if err := s.bindParams(f, fn, argp); err != nil {
		f.release()
		return value.Null(), s.fail(fn, err)
	}
	if err := s.push(ctx, f); err != nil {
		f.release()
		return value.Null(), s.fail(fn, err)
	}
	if err := s.Run(ctx); err != nil {
		return value.Null(), err
	}
	return s.result.Move(), nil
}

func rootState(state *value.Value, key string) *value.Value {
	k := value.String(key)
	defer k.Release()
	v, ok := state.MapGet(&k)
	if !ok {
		return nil
	}
	return v
}

func (s *Stack) push(ctx context.Context, f *Frame) error {
	if s.interrupted.Load() {
		return ErrInterrupted
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	if len(s.frames) >= s.MaxDepth {
		return fmt.Errorf("%w: depth %d", ErrStackOverflow, s.MaxDepth)
	}
	s.frames = append(s.frames, f)
	return nil
}

func (s *Stack) pop() *Frame {
	f := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return f
}

func (s *Stack) top() *Frame {
	return s.frames[len(s.frames)-1]
}

// Run executes until the stack is empty or a runtime error occurs.
func (s *Stack) Run(ctx context.Context) error {
	if s.err != nil {
		return s.err
	}
	for len(s.frames) > 0 {
		f := s.top()
		if f.pc >= f.Scope.Len() {
			if err := s.finish(ctx, f, nil); err != nil {
				return err
			}
			continue
		}
		n := f.Scope.At(f.pc)
		if n == nil {
			f.pc++
			continue
		}
		// after an exit only the construct's extracts run before its marker
		if f.exit != exitNone && n.Op != ir.OpExtract && n.Op != ir.OpExitPoint {
			f.pc++
			continue
		}
		if err := s.step(ctx, f, n); err != nil {
			var rerr *RuntimeError
			if errors.As(err, &rerr) && rerr == s.err {
				return err
			}
			return s.fail(n, err)
		}
	}
	return nil
}

// fail records err as the stack's runtime error raised at n.
func (s *Stack) fail(n *ir.Node, err error) *RuntimeError {
	rerr := &RuntimeError{Message: err.Error(), Err: err}
	if n != nil {
		rerr.NodeID = n.ID()
		rerr.Line, _ = n.Pos()
		if len(s.frames) > 0 {
			if reg, ok := s.top().Register(n); ok {
				reg.SetError(err.Error(), n)
			}
		}
	}
	for i := len(s.frames) - 1; i >= 0; i-- {
		if node := s.frames[i].node; node != nil {
			rerr.Trace = append(rerr.Trace, node.ID())
		}
	}
	s.err = rerr
	log.Debugf("runtime error: %s", rerr.FormatTrace())
	return rerr
}

// ---------------------------------------------------------------------------
// Step: evaluate one node
// ---------------------------------------------------------------------------

// read returns the register holding n's value as seen from f: f's own
// registers or those of the nearest enclosing frame running n's scope,
// then the retained toplevel frame of the last run. Function nodes and
// literals outside any frame read their value directly.
func (s *Stack) read(f *Frame, n *ir.Node) *value.Value {
	if n == nil {
		return &nullValue
	}
	if n.Op == ir.OpFunction {
		return &n.Value
	}
	owner := n.Owner()
	for fr := f; fr != nil; fr = fr.Parent {
		if fr.Scope == owner && n.Index() < len(fr.Registers) {
			return &fr.Registers[n.Index()]
		}
	}
	if s.last != nil && s.last.Scope == owner && n.Index() < len(s.last.Registers) {
		return &s.last.Registers[n.Index()]
	}
	if n.Op == ir.OpValue {
		return &n.Value
	}
	return &nullValue
}

func (s *Stack) step(ctx context.Context, f *Frame, n *ir.Node) error {
	reg := &f.Registers[n.Index()]
	if msg := n.PropString(ir.PropStaticError); msg != "" {
		return errors.New(msg)
	}

	switch n.Op {
	case ir.OpValue, ir.OpFunction:
		value.Copy(&n.Value, reg)

	case ir.OpInput:
		// bound when the frame was pushed

	case ir.OpOutput, ir.OpCopy:
		if len(n.Inputs) > 0 {
			value.Copy(s.read(f, n.Inputs[0]), reg)
		}

	case ir.OpUnknown:
		return errors.New("unknown node")

	case ir.OpList:
		items := make([]value.Value, len(n.Inputs))
		for i, in := range n.Inputs {
			value.Copy(s.read(f, in), &items[i])
		}
		value.Set(reg, value.NewList(items...))

	case ir.OpMap:
		m := value.NewMap()
		for i := 0; i+1 < len(n.Inputs); i += 2 {
			m.MapInsert(value.Clone(s.read(f, n.Inputs[i])), value.Clone(s.read(f, n.Inputs[i+1])))
		}
		value.Set(reg, m)

	case ir.OpExtract:
		src := s.read(f, n.Input(0))
		if el, ok := src.ListGet(n.PropInt(ir.PropIndex, 0)); ok {
			value.Copy(el, reg)
		} else {
			reg.SetNull()
		}

	case ir.OpState:
		if err := s.evalState(f, n, reg); err != nil {
			return err
		}

	case ir.OpReturn:
		value.Copy(s.read(f, n.Input(0)), reg)
		f.exit = exitReturn

	case ir.OpBreak:
		f.exit = exitBreak
	case ir.OpContinue:
		f.exit = exitContinue
	case ir.OpDiscard:
		f.exit = exitDiscard

	case ir.OpWhileCond:
		if !s.read(f, n.Input(0)).Truthy() {
			f.exit = exitLoopEnd
		}

	case ir.OpExitPoint:
		if f.exit == exitNone {
			break
		}
		captured := make([]value.Value, 0, len(n.Inputs))
		for _, in := range n.Inputs[1:] {
			captured = append(captured, value.Clone(s.read(f, in)))
		}
		return s.finish(ctx, f, captured)

	case ir.OpCall:
		return s.call(ctx, f, n)

	case ir.OpIf:
		return s.enterIf(ctx, f, n)

	case ir.OpCase:
		cond := n.Input(0)
		if cond == nil || s.read(f, cond).Truthy() {
			return s.enterCase(ctx, f, n)
		}

	case ir.OpFor, ir.OpWhile:
		return s.enterLoop(ctx, f, n)

	default:
		return fmt.Errorf("cannot evaluate %s", n.Op)
	}

	f.pc++
	return nil
}

// evalState binds a state declaration to its previous-run value, or to
// its initial value on the first run.
func (s *Stack) evalState(f *Frame, n *ir.Node, reg *value.Value) error {
	src := f.stateFor(n.Name)
	if src == nil {
		src = s.read(f, n.Input(0))
	}
	typ, err := s.declaredType(n.PropString(ir.PropType))
	if err != nil {
		return err
	}
	if err := value.Cast(src, typ, reg, false); err != nil {
		return fmt.Errorf("state %s: %w", n.Name, err)
	}
	return nil
}

func (s *Stack) declaredType(name string) (*value.Type, error) {
	if name == "" {
		return value.AnyType, nil
	}
	t, ok := s.types.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown type: %s", name)
	}
	return t, nil
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

func (s *Stack) call(ctx context.Context, f *Frame, n *ir.Node) error {
	fn := n.Function
	inputs := n.Inputs
	// dynamic calls and the kernel's call(f, args...) take the callee from
	// input 0
	if fn == nil || fn.PropBool(propDynamicCall) {
		callee := s.read(f, n.Input(0))
		target, ok := ir.AsFunction(callee)
		if !ok {
			return fmt.Errorf("%s is not callable", callee.Repr())
		}
		fn, inputs = target, n.Inputs[1:]
	}

	args := make([]*value.Value, len(inputs))
	for i, in := range inputs {
		args[i] = s.read(f, in)
	}

	if fn.Native != nil {
		reg := &f.Registers[n.Index()]
		if err := s.callNative(fn, args, reg); err != nil {
			return err
		}
		f.pc++
		return nil
	}

	child := newFrame(fn.Nested, frameCall, f, n)
	child.fn = fn
	child.stateKey = callStateKey(n, fn)
	if prev := f.stateFor(child.stateKey); prev != nil {
		value.Copy(prev, &child.stateIn)
	}
	if err := s.bindParams(child, fn, args); err != nil {
		child.release()
		return err
	}
	if err := s.push(ctx, child); err != nil {
		child.release()
		return err
	}
	return nil
}

// callStateKey names the state of a call site: the function name, with
// "#k" appended for the k-th later call of the same function in a scope.
func callStateKey(call, fn *ir.Node) string {
	k := 0
	if owner := call.Owner(); owner != nil {
		for _, other := range owner.Nodes() {
			if other == call {
				break
			}
			if other.Op == ir.OpCall && other.Function == fn {
				k++
			}
		}
	}
	if k == 0 {
		return fn.Name
	}
	return fmt.Sprintf("%s#%d", fn.Name, k)
}

// bindParams copies args into the parameter registers of f, casting to
// declared parameter types.
func (s *Stack) bindParams(f *Frame, fn *ir.Node, args []*value.Value) error {
	params := fn.Params()
	if len(args) > len(params) {
		return fmt.Errorf("%s expects %d arguments, got %d", fn.Name, len(params), len(args))
	}
	for i, p := range params {
		src := &nullValue
		if i < len(args) {
			src = args[i]
		}
		typ, err := s.declaredType(p.PropString(ir.PropType))
		if err != nil {
			return err
		}
		if err := value.Cast(src, typ, &f.Registers[p.Index()], false); err != nil {
			return fmt.Errorf("argument %d of %s: %w", i+1, fn.Name, err)
		}
	}
	return nil
}

// callNative runs a builtin, casting arguments and the result to the
// declared types. Panics inside the builtin become errors.
func (s *Stack) callNative(fn *ir.Node, args []*value.Value, out *value.Value) (err error) {
	params := fn.Params()
	variadic := fn.PropBool(ir.PropVariadic)
	switch {
	case variadic && len(args) < len(params)-1:
		return fmt.Errorf("%s expects at least %d arguments, got %d", fn.Name, len(params)-1, len(args))
	case !variadic && len(args) != len(params):
		return fmt.Errorf("%s expects %d arguments, got %d", fn.Name, len(params), len(args))
	}

	cast := make([]value.Value, len(args))
	defer func() {
		for i := range cast {
			cast[i].Release()
		}
	}()
	for i, a := range args {
		if len(params) == 0 {
			break
		}
		p := params[min(i, len(params)-1)]
		typ, err := s.declaredType(p.PropString(ir.PropType))
		if err != nil {
			return err
		}
		if typ == value.AnyType {
			continue
		}
		if err := value.Cast(a, typ, &cast[i], false); err != nil {
			return fmt.Errorf("argument %d of %s: %w", i+1, fn.Name, err)
		}
		args[i] = &cast[i]
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: %v", fn.Name, r)
		}
	}()

	out.SetNull()
	if err := fn.Native(args, out); err != nil {
		return err
	}
	if msg, ok := out.ErrorMessage(); ok {
		return errors.New(msg)
	}
	if ret := fn.PropString(ir.PropReturns); ret != "" {
		typ, err := s.declaredType(ret)
		if err != nil {
			return err
		}
		if typ != value.AnyType && typ != value.NullType {
			var tmp value.Value
			if err := value.Cast(out, typ, &tmp, false); err != nil {
				return fmt.Errorf("result of %s: %w", fn.Name, err)
			}
			value.Set(out, tmp)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Branches
// ---------------------------------------------------------------------------

func (s *Stack) enterIf(ctx context.Context, f *Frame, n *ir.Node) error {
	interior := newFrame(n.Nested, frameIf, f, n)
	interior.stateKey = n.UniqueName()
	cases := len(ir.Cases(n))

	states := make([]value.Value, cases)
	if prev := f.stateFor(interior.stateKey); prev != nil {
		value.Copy(prev, &interior.stateIn)
		for i := range states {
			if el, ok := prev.ListGet(i); ok {
				value.Copy(el, &states[i])
			}
		}
	}
	value.Set(&interior.stateOut, value.NewList(states...))

	if err := s.push(ctx, interior); err != nil {
		interior.release()
		return err
	}
	return nil
}

func (s *Stack) enterCase(ctx context.Context, interior *Frame, n *ir.Node) error {
	c := newFrame(n.Nested, frameCase, interior, n)
	for _, other := range ir.Cases(interior.Scope.Owner()) {
		if other == n {
			break
		}
		c.caseIndex++
	}
	if prev, ok := interior.stateIn.ListGet(c.caseIndex); ok && prev.IsMap() {
		value.Copy(prev, &c.stateIn)
	}
	if err := s.push(ctx, c); err != nil {
		c.release()
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Loops
// ---------------------------------------------------------------------------

func (s *Stack) enterLoop(ctx context.Context, f *Frame, n *ir.Node) error {
	ls := &loopState{node: n, carried: ir.LoopCarried(n)}
	ls.values = make([]value.Value, len(ls.carried))
	for i := range ls.carried {
		value.Copy(s.read(f, n.Input(i+1)), &ls.values[i])
	}
	ls.collected = value.NewList()
	ls.stateOut = value.NewList()
	if prev := f.stateFor(n.UniqueName()); prev != nil {
		value.Copy(prev, &ls.stateIn)
	}

	if n.Op == ir.OpFor {
		src := s.read(f, n.Input(0))
		switch src.Kind() {
		case value.KindList:
			value.Copy(src, &ls.iterable)
		case value.KindMap:
			h, _ := src.AsMap()
			ls.iterable = value.NewList(h.Keys()...)
		case value.KindNull:
			ls.iterable = value.NewList()
		default:
			ls.release()
			return fmt.Errorf("cannot iterate over %s", src.Type().Name)
		}
	}

	if !ls.more() {
		s.endLoop(f, ls, exitNone)
		return nil
	}
	return s.pushIteration(ctx, f, ls)
}

func (s *Stack) pushIteration(ctx context.Context, parent *Frame, ls *loopState) error {
	body := newFrame(ls.node.Nested, frameLoop, parent, ls.node)
	body.loop = ls
	if prev, ok := ls.stateIn.ListGet(ls.index); ok && prev.IsMap() {
		value.Copy(prev, &body.stateIn)
	}

	iterator := ir.Iterator(ls.node)
	for _, in := range body.Scope.Inputs() {
		reg := &body.Registers[in.Index()]
		if ls.node.Op == ir.OpFor && in.Name == iterator {
			if el, ok := ls.iterable.ListGet(ls.index); ok {
				value.Copy(el, reg)
			}
			continue
		}
		for i, name := range ls.carried {
			if name == in.Name {
				value.Copy(&ls.values[i], reg)
				break
			}
		}
	}

	if err := s.push(ctx, body); err != nil {
		body.release()
		return err
	}
	ls.owner = body
	return nil
}

// iterationDone folds a finished iteration into the loop and either starts
// the next one or ends the loop.
func (s *Stack) iterationDone(ctx context.Context, body *Frame, outs []value.Value) error {
	ls := body.loop
	parent := body.Parent
	names := body.Scope.OutputNames()
	iterator := ir.Iterator(ls.node)

	for i, name := range names {
		if ls.node.Op == ir.OpFor && name == iterator {
			switch body.exit {
			case exitNone, exitContinue:
				ls.collected.ListAppend(value.Clone(&outs[i]))
			}
			continue
		}
		for j, c := range ls.carried {
			if c == name {
				value.Copy(&outs[i], &ls.values[j])
			}
		}
	}

	state := body.stateOut.Move()
	if isEmptyState(&state) {
		state.Release()
	}
	ls.stateOut.ListAppend(state)
	ls.index++

	switch body.exit {
	case exitBreak, exitLoopEnd, exitReturn:
		s.endLoop(parent, ls, body.exit)
		return nil
	}
	if !ls.more() {
		s.endLoop(parent, ls, exitNone)
		return nil
	}
	return s.pushIteration(ctx, parent, ls)
}

// endLoop stores the loop result [collected, carried...] in the parent.
func (s *Stack) endLoop(parent *Frame, ls *loopState, exit exitKind) {
	items := make([]value.Value, 0, len(ls.values)+1)
	if ls.node.Op == ir.OpFor {
		items = append(items, ls.collected.Move())
	} else {
		items = append(items, value.Null())
	}
	for i := range ls.values {
		items = append(items, ls.values[i].Move())
	}
	value.Set(&parent.Registers[ls.node.Index()], value.NewList(items...))

	parent.storeState(ls.node.UniqueName(), ls.stateOut.Move())
	if exit == exitReturn {
		parent.exit = exitReturn
	}
	ls.owner = nil
	ls.release()
	parent.pc++
}

// ---------------------------------------------------------------------------
// Finish: hand a frame's outputs back
// ---------------------------------------------------------------------------

// finish pops f. captured holds the outputs taken at an exit point, or nil
// when f ran to its end.
func (s *Stack) finish(ctx context.Context, f *Frame, captured []value.Value) error {
	outs := captured
	if outs == nil {
		outs = f.outputs()
	}
	defer func() {
		for i := range outs {
			outs[i].Release()
		}
	}()
	if f.kind != frameIf {
		f.commitState()
	}
	s.pop()

	switch f.kind {
	case frameRoot:
		return s.finishRoot(f, outs)

	case frameCall:
		defer f.release()
		parent := f.Parent
		reg := &parent.Registers[f.node.Index()]
		if err := s.returnValue(f, outs, reg); err != nil {
			return s.failAt(parent, f.node, err)
		}
		parent.storeState(f.stateKey, f.stateOut.Move())
		parent.pc++
		return nil

	case frameCase:
		defer f.release()
		interior := f.Parent
		interior.stateOut.ListSet(f.caseIndex, f.stateOut.Move())
		interior.exit = f.exit
		return s.finish(ctx, interior, cloneAll(outs))

	case frameIf:
		defer f.release()
		parent := f.Parent
		items := make([]value.Value, 0, len(outs)+1)
		items = append(items, value.Null())
		items = append(items, cloneAll(outs)...)
		value.Set(&parent.Registers[f.node.Index()], value.NewList(items...))
		parent.storeState(f.stateKey, f.stateOut.Move())
		if f.exit != exitNone {
			parent.exit = f.exit
		}
		parent.pc++
		return nil

	case frameLoop:
		defer f.release()
		if err := s.iterationDone(ctx, f, outs); err != nil {
			return s.failAt(f.Parent, f.node, err)
		}
		return nil
	}
	return fmt.Errorf("unknown frame kind %s", f.kind)
}

func (s *Stack) finishRoot(f *Frame, outs []value.Value) error {
	if f.fn == nil {
		value.Set(&s.state, f.stateOut.Move())
		s.Forget()
		s.last = f
		return nil
	}
	defer f.release()
	if err := s.returnValue(f, outs, &s.result); err != nil {
		return s.fail(f.fn, err)
	}
	if st := f.stateOut.Move(); isEmptyState(&st) {
		st.Release()
		s.state.MapRemove(ptr(value.String(f.stateKey)))
	} else {
		s.state.MapInsert(value.String(f.stateKey), st)
	}
	return nil
}

// returnValue writes the "#return" output of a function frame to dst,
// casting to the declared return type.
func (s *Stack) returnValue(f *Frame, outs []value.Value, dst *value.Value) error {
	src := &nullValue
	for i, name := range f.Scope.OutputNames() {
		if name == ir.ReturnName && i < len(outs) {
			src = &outs[i]
		}
	}
	typ, err := s.declaredType(f.fn.PropString(ir.PropReturns))
	if err != nil {
		return err
	}
	if typ == value.NullType {
		typ = value.AnyType
	}
	if err := value.Cast(src, typ, dst, false); err != nil {
		return fmt.Errorf("result of %s: %w", f.fn.Name, err)
	}
	return nil
}

// failAt records err at n once the frame that raised it has been popped;
// parent becomes the top of the stack again so the error stays inspectable.
func (s *Stack) failAt(parent *Frame, n *ir.Node, err error) error {
	if len(s.frames) == 0 || s.top() != parent {
		s.frames = append(s.frames, parent)
	}
	return s.fail(n, err)
}

func cloneAll(vals []value.Value) []value.Value {
	out := make([]value.Value, len(vals))
	for i := range vals {
		value.Copy(&vals[i], &out[i])
	}
	return out
}

func ptr(v value.Value) *value.Value {
	return &v
}
