package compiler

// ---------------------------------------------------------------------------
// AST
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Pos() Position
	node() // marker method
}

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// IntLiteral represents an integer literal.
type IntLiteral struct {
	At    Position
	Value int64
}

// FloatLiteral represents a floating-point literal.
type FloatLiteral struct {
	At    Position
	Value float64
}

// StringLiteral represents a string literal.
type StringLiteral struct {
	At    Position
	Value string
}

// BoolLiteral represents true or false.
type BoolLiteral struct {
	At    Position
	Value bool
}

// NullLiteral represents null.
type NullLiteral struct {
	At Position
}

// ListLiteral represents [a, b, c].
type ListLiteral struct {
	At       Position
	Elements []Expr
}

// MapLiteral represents {k: v, ...}.
type MapLiteral struct {
	At     Position
	Keys   []Expr
	Values []Expr
}

// Ident is a name reference.
type Ident struct {
	At   Position
	Name string
}

// Call represents callee(args...).
type Call struct {
	At     Position
	Callee Expr
	Args   []Expr
}

// Binary represents a binary operator application.
type Binary struct {
	At    Position
	Op    TokenType
	Left  Expr
	Right Expr
}

// Unary represents -x or not x.
type Unary struct {
	At      Position
	Op      TokenType
	Operand Expr
}

// Index represents target[index].
type Index struct {
	At     Position
	Target Expr
	Index  Expr
}

// ForExpr is a for loop used as an expression; it yields the list of the
// iterator's final value in each iteration.
type ForExpr struct {
	Loop *ForStmt
}

// BadExpr stands in for an expression that failed to parse.
type BadExpr struct {
	At      Position
	Message string
}

func (n *IntLiteral) Pos() Position    { return n.At }
func (n *FloatLiteral) Pos() Position  { return n.At }
func (n *StringLiteral) Pos() Position { return n.At }
func (n *BoolLiteral) Pos() Position   { return n.At }
func (n *NullLiteral) Pos() Position   { return n.At }
func (n *ListLiteral) Pos() Position   { return n.At }
func (n *MapLiteral) Pos() Position    { return n.At }
func (n *Ident) Pos() Position         { return n.At }
func (n *Call) Pos() Position          { return n.At }
func (n *Binary) Pos() Position        { return n.At }
func (n *Unary) Pos() Position         { return n.At }
func (n *Index) Pos() Position         { return n.At }
func (n *ForExpr) Pos() Position       { return n.Loop.At }
func (n *BadExpr) Pos() Position       { return n.At }

func (n *IntLiteral) node()    {}
func (n *FloatLiteral) node()  {}
func (n *StringLiteral) node() {}
func (n *BoolLiteral) node()   {}
func (n *NullLiteral) node()   {}
func (n *ListLiteral) node()   {}
func (n *MapLiteral) node()    {}
func (n *Ident) node()         {}
func (n *Call) node()          {}
func (n *Binary) node()        {}
func (n *Unary) node()         {}
func (n *Index) node()         {}
func (n *ForExpr) node()       {}
func (n *BadExpr) node()       {}

func (n *IntLiteral) expr()    {}
func (n *FloatLiteral) expr()  {}
func (n *StringLiteral) expr() {}
func (n *BoolLiteral) expr()   {}
func (n *NullLiteral) expr()   {}
func (n *ListLiteral) expr()   {}
func (n *MapLiteral) expr()    {}
func (n *Ident) expr()         {}
func (n *Call) expr()          {}
func (n *Binary) expr()        {}
func (n *Unary) expr()         {}
func (n *Index) expr()         {}
func (n *ForExpr) expr()       {}
func (n *BadExpr) expr()       {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// ExprStmt is an expression evaluated for its value or effect.
type ExprStmt struct {
	Expr Expr
}

// Assign represents name = value, name op= value and target[i] = value.
// Op is TokenAssign or one of the compound assignment tokens.
type Assign struct {
	At     Position
	Target Expr // *Ident or *Index
	Op     TokenType
	Value  Expr
}

// StateDecl represents state name[: type] = initial.
type StateDecl struct {
	At      Position
	Name    string
	Type    string
	Initial Expr // may be nil
}

// Param is one function parameter.
type Param struct {
	At   Position
	Name string
	Type string // "" means any
}

// FuncDef represents def name(params) -> type { body }.
type FuncDef struct {
	At      Position
	Name    string
	Params  []Param
	Returns string
	Body    []Stmt
}

// IfBranch is one condition/body pair; Cond is nil for else.
type IfBranch struct {
	At   Position
	Cond Expr
	Body []Stmt
}

// IfStmt represents if / elif / else.
type IfStmt struct {
	At       Position
	Branches []IfBranch
}

// ForStmt represents for name in iterable { body }.
type ForStmt struct {
	At       Position
	Var      string
	Iterable Expr
	Body     []Stmt
}

// WhileStmt represents while cond { body }.
type WhileStmt struct {
	At   Position
	Cond Expr
	Body []Stmt
}

// ReturnStmt represents return [expr].
type ReturnStmt struct {
	At    Position
	Value Expr // may be nil
}

// ExitStmt represents break, continue and discard.
type ExitStmt struct {
	At   Position
	Kind TokenType
}

// BadStmt stands in for a statement that failed to parse.
type BadStmt struct {
	At      Position
	Message string
}

func (n *ExprStmt) Pos() Position   { return n.Expr.Pos() }
func (n *Assign) Pos() Position     { return n.At }
func (n *StateDecl) Pos() Position  { return n.At }
func (n *FuncDef) Pos() Position    { return n.At }
func (n *IfStmt) Pos() Position     { return n.At }
func (n *ForStmt) Pos() Position    { return n.At }
func (n *WhileStmt) Pos() Position  { return n.At }
func (n *ReturnStmt) Pos() Position { return n.At }
func (n *ExitStmt) Pos() Position   { return n.At }
func (n *BadStmt) Pos() Position    { return n.At }

func (n *ExprStmt) node()   {}
func (n *Assign) node()     {}
func (n *StateDecl) node()  {}
func (n *FuncDef) node()    {}
func (n *IfStmt) node()     {}
func (n *ForStmt) node()    {}
func (n *WhileStmt) node()  {}
func (n *ReturnStmt) node() {}
func (n *ExitStmt) node()   {}
func (n *BadStmt) node()    {}

func (n *ExprStmt) stmt()   {}
func (n *Assign) stmt()     {}
func (n *StateDecl) stmt()  {}
func (n *FuncDef) stmt()    {}
func (n *IfStmt) stmt()     {}
func (n *ForStmt) stmt()    {}
func (n *WhileStmt) stmt()  {}
func (n *ReturnStmt) stmt() {}
func (n *ExitStmt) stmt()   {}
func (n *BadStmt) stmt()    {}

// Program is a parsed source file.
type Program struct {
	Stmts []Stmt
}
