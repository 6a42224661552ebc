package compiler

import (
	"fmt"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/weft/ir"
	"github.com/chazu/weft/value"
)

var log = commonlog.GetLogger("weft.compiler")

// ---------------------------------------------------------------------------
// Codegen: AST to node graph
// ---------------------------------------------------------------------------

// operatorFuncs maps operators to the kernel functions implementing them.
var operatorFuncs = map[TokenType]string{
	TokenPlus:      "add",
	TokenMinus:     "sub",
	TokenStar:      "mult",
	TokenSlash:     "div",
	TokenPercent:   "mod",
	TokenEq:        "equals",
	TokenNotEq:     "not_equals",
	TokenLess:      "less_than",
	TokenGreater:   "greater_than",
	TokenLessEq:    "less_than_eq",
	TokenGreaterEq: "greater_than_eq",
	TokenAnd:       "and",
	TokenOr:        "or",
	TokenPlusEq:    "add",
	TokenMinusEq:   "sub",
	TokenStarEq:    "mult",
	TokenSlashEq:   "div",
}

// Compiler turns source text into nodes appended to a scope.
type Compiler struct {
	types *value.TypeTable
	block *block
}

// block is the codegen context of the scope being filled.
type block struct {
	scope    *ir.Scope
	inLoop   bool     // break/continue/discard are allowed
	function *ir.Node // enclosing function, nil at toplevel
}

// NewCompiler creates a compiler resolving type names through types. A nil
// table means the builtin types only.
func NewCompiler(types *value.TypeTable) *Compiler {
	if types == nil {
		types = value.NewTypeTable()
	}
	return &Compiler{types: types}
}

// Compile parses source and appends the resulting nodes to scope using the
// builtin types. See Compiler.Compile.
func Compile(scope *ir.Scope, source string) *ir.Node {
	return NewCompiler(nil).Compile(scope, source)
}

// Compile parses source, appends the generated nodes to scope and makes
// early exits explicit. Syntax errors, unknown names and arity or literal
// type mismatches become static errors on the offending nodes; compilation
// always completes. It returns the node of the last statement, or nil for
// an empty program.
func (c *Compiler) Compile(scope *ir.Scope, source string) *ir.Node {
	prog, errs := Parse(source)
	c.block = &block{scope: scope}
	last := c.statements(prog.Stmts)
	ir.UpdateExitPoints(scope)
	log.Debugf("compiled %d statements (%d parse errors)", len(prog.Stmts), len(errs))
	return last
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (c *Compiler) emit(n *ir.Node, pos Position) *ir.Node {
	if pos.Line > 0 {
		n.SetPos(pos.Line, pos.Column)
	}
	return c.block.scope.Append(n)
}

func (c *Compiler) staticError(pos Position, format string, args ...any) *ir.Node {
	n := c.emit(ir.NewNode(ir.OpUnknown, ""), pos)
	ir.MarkStaticError(n, fmt.Sprintf(format, args...))
	return n
}

func (c *Compiler) literal(v value.Value, pos Position) *ir.Node {
	n := ir.NewNode(ir.OpValue, "")
	n.Value = v
	return c.emit(n, pos)
}

// within runs fn with b as the current block.
func (c *Compiler) within(b *block, fn func()) {
	saved := c.block
	c.block = b
	defer func() { c.block = saved }()
	fn()
}

// bind makes name refer to n at the current position. Fresh anonymous
// nodes of the current scope are renamed; anything else gets a copy.
func (c *Compiler) bind(name string, n *ir.Node, pos Position) *ir.Node {
	if n.Owner() == c.block.scope && n.Name == "" && n.Op != ir.OpInput && n.Op != ir.OpExitPoint {
		c.block.scope.Rename(n, name)
		return n
	}
	return c.emit(ir.NewNode(ir.OpCopy, name, n), pos)
}

func (c *Compiler) resolveType(name string) (*value.Type, bool) {
	if name == "" {
		return value.AnyType, true
	}
	return c.types.Lookup(name)
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (c *Compiler) statements(stmts []Stmt) *ir.Node {
	var last *ir.Node
	for _, s := range stmts {
		last = c.statement(s)
	}
	return last
}

func (c *Compiler) statement(s Stmt) *ir.Node {
	switch s := s.(type) {
	case *ExprStmt:
		return c.expr(s.Expr)
	case *Assign:
		return c.assign(s)
	case *StateDecl:
		return c.stateDecl(s)
	case *FuncDef:
		return c.funcDef(s)
	case *IfStmt:
		return c.ifStmt(s)
	case *ForStmt:
		return c.forLoop(s)
	case *WhileStmt:
		return c.whileLoop(s)
	case *ReturnStmt:
		var val *ir.Node
		if s.Value != nil {
			val = c.expr(s.Value)
		}
		return c.emit(ir.NewNode(ir.OpReturn, ir.ReturnName, val), s.At)
	case *ExitStmt:
		return c.exitStmt(s)
	case *BadStmt:
		return c.staticError(s.At, "%s", s.Message)
	}
	return c.staticError(s.Pos(), "unsupported statement %T", s)
}

func (c *Compiler) assign(s *Assign) *ir.Node {
	switch target := s.Target.(type) {
	case *Ident:
		val := c.expr(s.Value)
		if s.Op != TokenAssign {
			cur := c.lookup(target.Name, target.At)
			val = c.callNamed(operatorFuncs[s.Op], s.At, cur, val)
		}
		return c.bind(target.Name, val, s.At)

	case *Index:
		root, ok := target.Target.(*Ident)
		if !ok {
			return c.staticError(s.At, "only name[index] can be assigned")
		}
		xs := c.lookup(root.Name, root.At)
		idx := c.expr(target.Index)
		val := c.expr(s.Value)
		if s.Op != TokenAssign {
			cur := c.callNamed("get_index", s.At, xs, idx)
			val = c.callNamed(operatorFuncs[s.Op], s.At, cur, val)
		}
		return c.bind(root.Name, c.callNamed("set_index", s.At, xs, idx, val), s.At)
	}
	return c.staticError(s.At, "cannot assign to %T", s.Target)
}

func (c *Compiler) stateDecl(s *StateDecl) *ir.Node {
	var initial *ir.Node
	if s.Initial != nil {
		initial = c.expr(s.Initial)
	}
	n := ir.NewNode(ir.OpState, s.Name, initial)
	if s.Type != "" {
		n.SetProp(ir.PropType, value.String(s.Type))
	}
	c.emit(n, s.At)
	if _, ok := c.resolveType(s.Type); !ok {
		ir.MarkStaticError(n, "unknown type: "+s.Type)
	}
	return n
}

func (c *Compiler) funcDef(s *FuncDef) *ir.Node {
	fn := ir.NewFunction(s.Name)
	c.emit(fn, s.At)
	if s.Returns != "" {
		fn.SetProp(ir.PropReturns, value.String(s.Returns))
		if _, ok := c.resolveType(s.Returns); !ok {
			ir.MarkStaticError(fn, "unknown type: "+s.Returns)
		}
	}

	c.within(&block{scope: fn.Nested, function: fn}, func() {
		for _, p := range s.Params {
			in := c.emit(ir.NewNode(ir.OpInput, p.Name), p.At)
			if p.Type != "" {
				in.SetProp(ir.PropType, value.String(p.Type))
				if _, ok := c.resolveType(p.Type); !ok {
					ir.MarkStaticError(in, "unknown type: "+p.Type)
				}
			}
		}
		c.statements(s.Body)
		fn.Nested.Append(ir.NewNode(ir.OpOutput, ir.ReturnName))
	})
	return fn
}

func (c *Compiler) exitStmt(s *ExitStmt) *ir.Node {
	op := map[TokenType]ir.Op{
		TokenBreak:    ir.OpBreak,
		TokenContinue: ir.OpContinue,
		TokenDiscard:  ir.OpDiscard,
	}[s.Kind]
	if !c.block.inLoop {
		return c.staticError(s.At, "%s outside of a loop", s.Kind)
	}
	return c.emit(ir.NewNode(op, ""), s.At)
}

func (c *Compiler) ifStmt(s *IfStmt) *ir.Node {
	ifn := c.emit(ir.NewIf(), s.At)
	interior := &block{scope: ifn.Nested, inLoop: c.block.inLoop, function: c.block.function}

	hasElse := false
	for _, br := range s.Branches {
		var cond *ir.Node
		if br.Cond != nil {
			c.within(interior, func() { cond = c.expr(br.Cond) })
		} else {
			hasElse = true
		}
		cs := ir.AddCase(ifn, cond)
		cs.SetPos(br.At.Line, br.At.Column)
		c.within(&block{scope: cs.Nested, inLoop: c.block.inLoop, function: c.block.function}, func() {
			c.statements(br.Body)
		})
	}
	if !hasElse {
		ir.AddCase(ifn, nil)
	}

	var bodies [][]Stmt
	for _, br := range s.Branches {
		bodies = append(bodies, br.Body)
	}
	for _, name := range assignedNames(bodies...) {
		ir.AddConstructOutput(ifn, name)
	}
	return ifn
}

// carriedNames returns the names a loop body rebinds that already exist
// before the loop.
func (c *Compiler) carriedNames(body []Stmt, exclude string) []string {
	var names []string
	for _, name := range assignedNames(body) {
		if name != exclude && c.block.scope.Lookup(name) != nil {
			names = append(names, name)
		}
	}
	return names
}

func (c *Compiler) forLoop(s *ForStmt) *ir.Node {
	iterable := c.expr(s.Iterable)
	loop := c.emit(ir.NewLoop(ir.OpFor, iterable, s.Var), s.At)
	for _, name := range c.carriedNames(s.Body, s.Var) {
		ir.AddConstructOutput(loop, name)
	}
	c.within(&block{scope: loop.Nested, inLoop: true, function: c.block.function}, func() {
		c.statements(s.Body)
	})
	return loop
}

func (c *Compiler) whileLoop(s *WhileStmt) *ir.Node {
	loop := c.emit(ir.NewLoop(ir.OpWhile, nil, ""), s.At)
	for _, name := range c.carriedNames(s.Body, "") {
		ir.AddConstructOutput(loop, name)
	}
	c.within(&block{scope: loop.Nested, inLoop: true, function: c.block.function}, func() {
		cond := c.expr(s.Cond)
		c.emit(ir.NewNode(ir.OpWhileCond, "", cond), s.Cond.Pos())
		c.statements(s.Body)
	})
	return loop
}

// assignedNames lists, in first-seen order, the names bound by the given
// statement lists, descending into branches and loops but not into
// function bodies.
func assignedNames(bodies ...[]Stmt) []string {
	var names []string
	seen := map[string]bool{}
	add := func(name string) {
		if name != "" && !strings.HasPrefix(name, "#") && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	var walk func(stmts []Stmt)
	walk = func(stmts []Stmt) {
		for _, s := range stmts {
			switch s := s.(type) {
			case *Assign:
				switch t := s.Target.(type) {
				case *Ident:
					add(t.Name)
				case *Index:
					if root, ok := t.Target.(*Ident); ok {
						add(root.Name)
					}
				}
			case *StateDecl:
				add(s.Name)
			case *FuncDef:
				add(s.Name)
			case *IfStmt:
				for _, br := range s.Branches {
					walk(br.Body)
				}
			case *ForStmt:
				inner := assignedNames(s.Body)
				for _, name := range inner {
					if name != s.Var {
						add(name)
					}
				}
			case *WhileStmt:
				walk(s.Body)
			}
		}
	}
	for _, body := range bodies {
		walk(body)
	}
	return names
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (c *Compiler) expr(e Expr) *ir.Node {
	switch e := e.(type) {
	case *IntLiteral:
		return c.literal(value.Int(e.Value), e.At)
	case *FloatLiteral:
		return c.literal(value.Float(e.Value), e.At)
	case *StringLiteral:
		return c.literal(value.String(e.Value), e.At)
	case *BoolLiteral:
		return c.literal(value.Bool(e.Value), e.At)
	case *NullLiteral:
		return c.literal(value.Null(), e.At)
	case *Ident:
		return c.lookup(e.Name, e.At)
	case *ListLiteral:
		inputs := make([]*ir.Node, len(e.Elements))
		for i, el := range e.Elements {
			inputs[i] = c.expr(el)
		}
		return c.emit(ir.NewNode(ir.OpList, "", inputs...), e.At)
	case *MapLiteral:
		inputs := make([]*ir.Node, 0, 2*len(e.Keys))
		for i := range e.Keys {
			inputs = append(inputs, c.expr(e.Keys[i]), c.expr(e.Values[i]))
		}
		return c.emit(ir.NewNode(ir.OpMap, "", inputs...), e.At)
	case *Call:
		return c.call(e)
	case *Binary:
		left := c.expr(e.Left)
		right := c.expr(e.Right)
		return c.callNamed(operatorFuncs[e.Op], e.At, left, right)
	case *Unary:
		operand := c.expr(e.Operand)
		if e.Op == TokenNot {
			return c.callNamed("not", e.At, operand)
		}
		return c.callNamed("neg", e.At, operand)
	case *Index:
		target := c.expr(e.Target)
		idx := c.expr(e.Index)
		return c.callNamed("get_index", e.At, target, idx)
	case *ForExpr:
		loop := c.forLoop(e.Loop)
		ex := ir.NewNode(ir.OpExtract, "", loop)
		ex.SetProp(ir.PropIndex, value.Int(0))
		return c.emit(ex, e.Loop.At)
	case *BadExpr:
		return c.staticError(e.At, "%s", e.Message)
	}
	return c.staticError(e.Pos(), "unsupported expression %T", e)
}

// lookup resolves a name at the current position.
func (c *Compiler) lookup(name string, pos Position) *ir.Node {
	if n := c.block.scope.Lookup(name); n != nil {
		return n
	}
	return c.staticError(pos, "unknown name: %s", name)
}

// call compiles callee(args). Calls of known functions are bound
// statically and checked; anything else is a dynamic call of a value.
func (c *Compiler) call(e *Call) *ir.Node {
	if id, ok := e.Callee.(*Ident); ok {
		target := c.block.scope.Lookup(id.Name)
		if target == nil {
			for _, a := range e.Args {
				c.expr(a)
			}
			return c.staticError(id.At, "unknown function: %s", id.Name)
		}
		if target.Op == ir.OpFunction {
			args := make([]*ir.Node, len(e.Args))
			for i, a := range e.Args {
				args[i] = c.expr(a)
			}
			return c.callFunction(target, e.At, args)
		}
	}
	callee := c.expr(e.Callee)
	inputs := []*ir.Node{callee}
	for _, a := range e.Args {
		inputs = append(inputs, c.expr(a))
	}
	return c.emit(ir.NewNode(ir.OpCall, "", inputs...), e.At)
}

// callNamed emits a call of the function bound to name.
func (c *Compiler) callNamed(name string, pos Position, args ...*ir.Node) *ir.Node {
	fn := c.block.scope.Lookup(name)
	if fn == nil || fn.Op != ir.OpFunction {
		return c.staticError(pos, "unknown function: %s", name)
	}
	return c.callFunction(fn, pos, args)
}

func (c *Compiler) callFunction(fn *ir.Node, pos Position, args []*ir.Node) *ir.Node {
	call := c.emit(ir.NewNode(ir.OpCall, "", args...), pos)
	call.Function = fn

	params := fn.Params()
	variadic := fn.PropBool(ir.PropVariadic)
	switch {
	case variadic && len(args) < len(params)-1:
		ir.MarkStaticError(call, fmt.Sprintf("%s expects at least %d arguments, got %d", fn.Name, len(params)-1, len(args)))
	case !variadic && len(args) != len(params):
		ir.MarkStaticError(call, fmt.Sprintf("%s expects %d arguments, got %d", fn.Name, len(params), len(args)))
	}

	// literal arguments are checked against declared parameter types
	for i, arg := range args {
		if arg == nil || arg.Op != ir.OpValue || len(params) == 0 {
			continue
		}
		p := params[min(i, len(params)-1)]
		typ, ok := c.resolveType(p.PropString(ir.PropType))
		if !ok {
			continue
		}
		var scratch value.Value
		if err := value.Cast(&arg.Value, typ, &scratch, true); err != nil {
			ir.MarkStaticError(call, fmt.Sprintf("argument %d of %s: %v", i+1, fn.Name, err))
			break
		}
	}
	return call
}
