package compiler

import (
	"fmt"
	"strings"
	"testing"
)

func mustParse(t *testing.T, input string) *Program {
	t.Helper()
	prog, errs := Parse(input)
	if len(errs) > 0 {
		t.Fatalf("Parse(%q) errors: %v", input, errs)
	}
	return prog
}

func TestParseAssignments(t *testing.T) {
	prog := mustParse(t, "a = 1; b = 2.5\ns = \"x\"; n = null")
	if len(prog.Stmts) != 4 {
		t.Fatalf("got %d statements, want 4", len(prog.Stmts))
	}

	tests := []struct {
		name string
		want string
	}{
		{"a", "*compiler.IntLiteral"},
		{"b", "*compiler.FloatLiteral"},
		{"s", "*compiler.StringLiteral"},
		{"n", "*compiler.NullLiteral"},
	}
	for i, tc := range tests {
		as, ok := prog.Stmts[i].(*Assign)
		if !ok {
			t.Fatalf("stmt[%d] = %T, want *Assign", i, prog.Stmts[i])
		}
		if id := as.Target.(*Ident); id.Name != tc.name {
			t.Errorf("stmt[%d] target = %q, want %q", i, id.Name, tc.name)
		}
		if got := fmt.Sprintf("%T", as.Value); got != tc.want {
			t.Errorf("stmt[%d] value = %s, want %s", i, got, tc.want)
		}
	}
}

func TestParsePrecedence(t *testing.T) {
	prog := mustParse(t, "x = 1 + 2 * 3 == 7 and not false")
	as := prog.Stmts[0].(*Assign)

	and, ok := as.Value.(*Binary)
	if !ok || and.Op != TokenAnd {
		t.Fatalf("top = %#v, want and", as.Value)
	}
	eq, ok := and.Left.(*Binary)
	if !ok || eq.Op != TokenEq {
		t.Fatalf("and.Left = %#v, want ==", and.Left)
	}
	plus, ok := eq.Left.(*Binary)
	if !ok || plus.Op != TokenPlus {
		t.Fatalf("eq.Left = %#v, want +", eq.Left)
	}
	if mul, ok := plus.Right.(*Binary); !ok || mul.Op != TokenStar {
		t.Errorf("plus.Right = %#v, want *", plus.Right)
	}
	if not, ok := and.Right.(*Unary); !ok || not.Op != TokenNot {
		t.Errorf("and.Right = %#v, want not", and.Right)
	}
}

func TestParseNegativeLiteralFolds(t *testing.T) {
	prog := mustParse(t, "x = -5\ny = -z")
	if lit, ok := prog.Stmts[0].(*Assign).Value.(*IntLiteral); !ok || lit.Value != -5 {
		t.Errorf("x = %#v, want IntLiteral -5", prog.Stmts[0].(*Assign).Value)
	}
	if u, ok := prog.Stmts[1].(*Assign).Value.(*Unary); !ok || u.Op != TokenMinus {
		t.Errorf("y = %#v, want unary minus", prog.Stmts[1].(*Assign).Value)
	}
}

func TestParseCallsAndIndexing(t *testing.T) {
	prog := mustParse(t, "add(a, f(b))[0]")
	idx, ok := prog.Stmts[0].(*ExprStmt).Expr.(*Index)
	if !ok {
		t.Fatalf("expr = %T, want *Index", prog.Stmts[0].(*ExprStmt).Expr)
	}
	call, ok := idx.Target.(*Call)
	if !ok {
		t.Fatalf("index target = %T, want *Call", idx.Target)
	}
	if len(call.Args) != 2 {
		t.Fatalf("got %d args, want 2", len(call.Args))
	}
	if _, ok := call.Args[1].(*Call); !ok {
		t.Errorf("arg 1 = %T, want *Call", call.Args[1])
	}
}

func TestParseMultilineArguments(t *testing.T) {
	prog := mustParse(t, "x = add(\n  1,\n  2\n)\ny = [\n1, 2]")
	if len(prog.Stmts) != 2 {
		t.Fatalf("got %d statements, want 2", len(prog.Stmts))
	}
	if l := prog.Stmts[1].(*Assign).Value.(*ListLiteral); len(l.Elements) != 2 {
		t.Errorf("got %d list elements, want 2", len(l.Elements))
	}
}

func TestParseMapLiteral(t *testing.T) {
	prog := mustParse(t, `m = {"a": 1, "b": [2]}`)
	m, ok := prog.Stmts[0].(*Assign).Value.(*MapLiteral)
	if !ok {
		t.Fatalf("value = %T, want *MapLiteral", prog.Stmts[0].(*Assign).Value)
	}
	if len(m.Keys) != 2 || len(m.Values) != 2 {
		t.Errorf("got %d keys, %d values, want 2, 2", len(m.Keys), len(m.Values))
	}
}

func TestParseCompoundAndIndexAssignment(t *testing.T) {
	prog := mustParse(t, "x += 1\nxs[0] = 2\nxs[1] *= 3")
	tests := []struct {
		op     TokenType
		target string
	}{
		{TokenPlusEq, "*compiler.Ident"},
		{TokenAssign, "*compiler.Index"},
		{TokenStarEq, "*compiler.Index"},
	}
	for i, tc := range tests {
		as := prog.Stmts[i].(*Assign)
		if as.Op != tc.op {
			t.Errorf("stmt[%d] op = %v, want %v", i, as.Op, tc.op)
		}
		var got string
		switch as.Target.(type) {
		case *Ident:
			got = "*compiler.Ident"
		case *Index:
			got = "*compiler.Index"
		}
		if got != tc.target {
			t.Errorf("stmt[%d] target = %s, want %s", i, got, tc.target)
		}
	}
}

func TestParseFuncDef(t *testing.T) {
	prog := mustParse(t, "def f(x: int, y) -> int {\n  return x + y\n}")
	def, ok := prog.Stmts[0].(*FuncDef)
	if !ok {
		t.Fatalf("stmt = %T, want *FuncDef", prog.Stmts[0])
	}
	if def.Name != "f" || def.Returns != "int" {
		t.Errorf("def = %s -> %s, want f -> int", def.Name, def.Returns)
	}
	want := []Param{{Name: "x", Type: "int"}, {Name: "y"}}
	if len(def.Params) != len(want) {
		t.Fatalf("got %d params, want %d", len(def.Params), len(want))
	}
	for i, p := range want {
		if def.Params[i].Name != p.Name || def.Params[i].Type != p.Type {
			t.Errorf("param[%d] = %s: %s, want %s: %s", i, def.Params[i].Name, def.Params[i].Type, p.Name, p.Type)
		}
	}
	if len(def.Body) != 1 {
		t.Fatalf("got %d body statements, want 1", len(def.Body))
	}
	if _, ok := def.Body[0].(*ReturnStmt); !ok {
		t.Errorf("body[0] = %T, want *ReturnStmt", def.Body[0])
	}
}

func TestParseIfElifElse(t *testing.T) {
	prog := mustParse(t, "if a { x = 1 }\nelif b { x = 2 } else {\n x = 3\n}")
	stmt, ok := prog.Stmts[0].(*IfStmt)
	if !ok {
		t.Fatalf("stmt = %T, want *IfStmt", prog.Stmts[0])
	}
	if len(stmt.Branches) != 3 {
		t.Fatalf("got %d branches, want 3", len(stmt.Branches))
	}
	if stmt.Branches[2].Cond != nil {
		t.Errorf("else branch has a condition")
	}
}

func TestParseLoops(t *testing.T) {
	prog := mustParse(t, "for i in xs { continue }\nwhile x < 3 { x += 1; break }\nys = for i in xs { discard }")
	loop, ok := prog.Stmts[0].(*ForStmt)
	if !ok || loop.Var != "i" {
		t.Fatalf("stmt[0] = %#v, want for i", prog.Stmts[0])
	}
	if ex, ok := loop.Body[0].(*ExitStmt); !ok || ex.Kind != TokenContinue {
		t.Errorf("for body[0] = %#v, want continue", loop.Body[0])
	}
	w, ok := prog.Stmts[1].(*WhileStmt)
	if !ok || len(w.Body) != 2 {
		t.Fatalf("stmt[1] = %#v, want while with 2 statements", prog.Stmts[1])
	}
	if _, ok := prog.Stmts[2].(*Assign).Value.(*ForExpr); !ok {
		t.Errorf("stmt[2] value = %T, want *ForExpr", prog.Stmts[2].(*Assign).Value)
	}
}

func TestParseStateDecl(t *testing.T) {
	prog := mustParse(t, "state s: int = 0\nstate t")
	s := prog.Stmts[0].(*StateDecl)
	if s.Name != "s" || s.Type != "int" || s.Initial == nil {
		t.Errorf("state = %+v, want s: int = 0", s)
	}
	if u := prog.Stmts[1].(*StateDecl); u.Initial != nil {
		t.Errorf("state t has an initial value")
	}
}

func TestParseErrorsRecover(t *testing.T) {
	prog, errs := Parse("a = )\nb = 2\ndef (x) {}\nc = 3")
	if len(errs) == 0 {
		t.Fatal("expected parse errors")
	}
	if !strings.HasPrefix(errs[0], "line 1:") {
		t.Errorf("errs[0] = %q, want line 1 prefix", errs[0])
	}

	var names []string
	bad := 0
	for _, s := range prog.Stmts {
		switch s := s.(type) {
		case *Assign:
			if _, ok := s.Value.(*BadExpr); !ok {
				names = append(names, s.Target.(*Ident).Name)
			}
		case *BadStmt:
			bad++
		}
	}
	if strings.Join(names, ",") != "b,c" {
		t.Errorf("parsed assignments %v, want [b c]", names)
	}
	if bad == 0 {
		t.Errorf("no BadStmt recorded")
	}
}

func TestParseInvalidAssignTarget(t *testing.T) {
	_, errs := Parse("f(x) = 1")
	if len(errs) != 1 || !strings.Contains(errs[0], "cannot assign") {
		t.Errorf("errs = %v, want one cannot assign error", errs)
	}
}
