package vm

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/weft/compiler"
	"github.com/chazu/weft/ir"
	"github.com/chazu/weft/value"
)

var log = commonlog.GetLogger("weft.vm")

// ---------------------------------------------------------------------------
// VM: compiler, kernel and stack wired together
// ---------------------------------------------------------------------------

// Options configures a VM. Zero values select defaults.
type Options struct {
	MaxDepth int
	Out      io.Writer        // destination of print
	Files    FileSource       // script loader, OSFileSource by default
	Types    *value.TypeTable // builtin types only when nil
}

// VM owns a toplevel scope, the kernel it sees and the stack running it.
type VM struct {
	Types    *value.TypeTable
	Kernel   *ir.Scope
	Toplevel *ir.Scope
	Stack    *Stack
	Files    FileSource
	Out      io.Writer

	compiler *compiler.Compiler
	scripts  map[string]*script
}

// script is a file loaded into a scope.
type script struct {
	scope   *ir.Scope
	modTime time.Time
}

// New creates a VM with an empty toplevel.
func New(opts Options) *VM {
	types := opts.Types
	if types == nil {
		types = value.NewTypeTable()
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	files := opts.Files
	if files == nil {
		files = OSFileSource{}
	}

	kernel := NewKernel(types, out)
	top := ir.NewScope()
	top.SetParent(kernel)

	stack := NewStack(types)
	if opts.MaxDepth > 0 {
		stack.MaxDepth = opts.MaxDepth
	}

	return &VM{
		Types:    types,
		Kernel:   kernel,
		Toplevel: top,
		Stack:    stack,
		Files:    files,
		Out:      out,
		compiler: compiler.NewCompiler(types),
		scripts:  make(map[string]*script),
	}
}

// Compile appends source to the toplevel scope and returns the node of its
// last statement. Problems are recorded as static errors; see StaticErrors.
func (vm *VM) Compile(source string) *ir.Node {
	return vm.compiler.Compile(vm.Toplevel, source)
}

// StaticErrors returns the static errors of the toplevel scope.
func (vm *VM) StaticErrors() []ir.StaticError {
	return ir.StaticErrors(vm.Toplevel)
}

// Check compiles source into a scratch scope that sees the toplevel and
// returns its static errors. The toplevel is left as it was.
func (vm *VM) Check(source string) []ir.StaticError {
	scratch := ir.NewScope()
	scratch.SetParent(vm.Toplevel)
	vm.compiler.Compile(scratch, source)
	errs := ir.StaticErrors(scratch)
	scratch.Clear()
	return errs
}

// Run executes the toplevel scope once, threading state from the previous
// run.
func (vm *VM) Run(ctx context.Context) error {
	return vm.Stack.RunScope(ctx, vm.Toplevel)
}

// Eval compiles source into a fresh toplevel, runs it and returns the value
// of its last statement. The persisted state carries over between calls.
func (vm *VM) Eval(ctx context.Context, source string) (value.Value, error) {
	vm.Stack.Forget()
	vm.Toplevel.Clear()
	last := vm.Compile(source)
	if err := vm.Run(ctx); err != nil {
		return value.Null(), err
	}
	if last == nil {
		return value.Null(), nil
	}
	reg, ok := vm.Stack.Register(last)
	if !ok {
		return value.Null(), nil
	}
	return value.Clone(reg), nil
}

// Result returns the value computed for n by the last toplevel run.
func (vm *VM) Result(n *ir.Node) (value.Value, bool) {
	reg, ok := vm.Stack.Register(n)
	if !ok {
		return value.Null(), false
	}
	return value.Clone(reg), true
}

// Lookup finds a toplevel or kernel binding.
func (vm *VM) Lookup(name string) *ir.Node {
	return vm.Toplevel.Lookup(name)
}

// Call invokes the function bound to name with args.
func (vm *VM) Call(ctx context.Context, name string, args ...value.Value) (value.Value, error) {
	fn := vm.Toplevel.Lookup(name)
	if fn == nil || fn.Op != ir.OpFunction {
		return value.Null(), fmt.Errorf("unknown function: %s", name)
	}
	return vm.Stack.Call(ctx, fn, args...)
}

// RegisterFunction adds a native function to the kernel.
func (vm *VM) RegisterFunction(signature string, fn ir.NativeFunc) (*ir.Node, error) {
	return RegisterFunction(vm.Types, vm.Kernel, signature, fn)
}

// Interrupt stops the running stack at its next frame push.
func (vm *VM) Interrupt() {
	vm.Stack.Interrupt()
}

// Restart clears a failed or interrupted run. State is kept.
func (vm *VM) Restart() {
	vm.Stack.Restart()
}

// State returns a copy of the state persisted between runs.
func (vm *VM) State() value.Value {
	return vm.Stack.State()
}

// SetState replaces the state persisted between runs.
func (vm *VM) SetState(v value.Value) {
	vm.Stack.SetState(v)
}
