package compiler

import (
	"fmt"
	"strconv"
)

// ---------------------------------------------------------------------------
// Parser: recursive descent
// ---------------------------------------------------------------------------

// Parser parses script source into an AST. Errors are collected rather than
// returned; the offending statement becomes a BadStmt and parsing resumes
// at the next statement boundary.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
	errors    []string
	depth     int // open parentheses/brackets; newlines are insignificant inside
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{
		lexer: NewLexer(input),
	}
	// Read two tokens to fill curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
	for p.depth > 0 && p.curToken.Type == TokenNewline {
		p.curToken = p.peekToken
		p.peekToken = p.lexer.NextToken()
	}
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// peekTokenIs checks if the peek token is of the given type.
func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

// expect advances if the current token matches, otherwise records an error.
func (p *Parser) expect(t TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorf("expected %s, got %s", t, p.curToken)
	return false
}

// errorf records a parse error at the current token and returns the
// message without the line prefix.
func (p *Parser) errorf(format string, args ...any) string {
	msg := fmt.Sprintf(format, args...)
	p.errors = append(p.errors, fmt.Sprintf("line %d: %s", p.curToken.Pos.Line, msg))
	return msg
}

// Errors returns accumulated parse errors.
func (p *Parser) Errors() []string {
	return p.errors
}

func (p *Parser) skipNewlines() {
	for p.curTokenIs(TokenNewline) {
		p.nextToken()
	}
}

func (p *Parser) open() {
	p.depth++
	p.skipNewlines()
}

func (p *Parser) close() {
	p.depth--
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// ParseProgram parses the whole input.
func (p *Parser) ParseProgram() *Program {
	prog := &Program{Stmts: p.parseStatements()}
	if !p.curTokenIs(TokenEOF) {
		at := p.curToken.Pos
		msg := p.errorf("unexpected %s", p.curToken)
		prog.Stmts = append(prog.Stmts, &BadStmt{At: at, Message: msg})
	}
	return prog
}

// Parse is a convenience wrapper returning the program and parse errors.
func Parse(input string) (*Program, []string) {
	p := NewParser(input)
	prog := p.ParseProgram()
	return prog, p.Errors()
}

// parseStatements parses until a closing brace or EOF.
func (p *Parser) parseStatements() []Stmt {
	var stmts []Stmt
	for {
		for p.curTokenIs(TokenNewline) || p.curTokenIs(TokenSemicolon) {
			p.nextToken()
		}
		if p.curTokenIs(TokenEOF) || p.curTokenIs(TokenRBrace) {
			return stmts
		}
		stmt := p.parseStatement()
		stmts = append(stmts, stmt)
		if !p.endOfStatement() {
			at := p.curToken.Pos
			msg := p.errorf("unexpected %s after statement", p.curToken)
			p.synchronize()
			stmts = append(stmts, &BadStmt{At: at, Message: msg})
		}
	}
}

// endOfStatement reports whether the current token terminates a statement.
func (p *Parser) endOfStatement() bool {
	switch p.curToken.Type {
	case TokenNewline, TokenSemicolon, TokenRBrace, TokenEOF:
		return true
	}
	return false
}

// synchronize skips to the next statement boundary.
func (p *Parser) synchronize() {
	p.depth = 0
	braces := 0
	for !p.curTokenIs(TokenEOF) {
		switch p.curToken.Type {
		case TokenLBrace:
			braces++
		case TokenRBrace:
			if braces == 0 {
				return
			}
			braces--
		case TokenNewline, TokenSemicolon:
			if braces == 0 {
				return
			}
		}
		p.nextToken()
	}
}

func (p *Parser) parseStatement() Stmt {
	switch p.curToken.Type {
	case TokenDef:
		return p.parseFuncDef()
	case TokenState:
		return p.parseStateDecl()
	case TokenIf:
		return p.parseIf()
	case TokenFor:
		return p.parseFor()
	case TokenWhile:
		return p.parseWhile()
	case TokenReturn:
		return p.parseReturn()
	case TokenBreak, TokenContinue, TokenDiscard:
		s := &ExitStmt{At: p.curToken.Pos, Kind: p.curToken.Type}
		p.nextToken()
		return s
	case TokenError:
		return p.badStmt("%s", p.curToken.Literal)
	}

	at := p.curToken.Pos
	expr := p.parseExpr()
	if bad, ok := expr.(*BadExpr); ok {
		p.synchronize()
		return &BadStmt{At: bad.At, Message: bad.Message}
	}

	switch p.curToken.Type {
	case TokenAssign, TokenPlusEq, TokenMinusEq, TokenStarEq, TokenSlashEq:
		op := p.curToken.Type
		switch expr.(type) {
		case *Ident, *Index:
		default:
			return p.badStmt("cannot assign to this expression")
		}
		p.nextToken()
		p.skipNewlines()
		val := p.parseExpr()
		return &Assign{At: at, Target: expr, Op: op, Value: val}
	}
	return &ExprStmt{Expr: expr}
}

func (p *Parser) badStmt(format string, args ...any) *BadStmt {
	at := p.curToken.Pos
	msg := p.errorf(format, args...)
	p.synchronize()
	return &BadStmt{At: at, Message: msg}
}

// parseBlock parses { statements }.
func (p *Parser) parseBlock() ([]Stmt, bool) {
	if !p.curTokenIs(TokenLBrace) {
		p.errorf("expected {, got %s", p.curToken)
		return nil, false
	}
	saved := p.depth
	p.depth = 0
	p.nextToken()
	stmts := p.parseStatements()
	ok := p.curTokenIs(TokenRBrace)
	if !ok {
		p.errorf("expected }, got %s", p.curToken)
	}
	p.depth = saved
	if ok {
		p.nextToken()
	}
	return stmts, ok
}

// parseFuncDef parses def name(a: int, b) -> type { body }.
func (p *Parser) parseFuncDef() Stmt {
	def := &FuncDef{At: p.curToken.Pos}
	p.nextToken()
	if !p.curTokenIs(TokenIdentifier) {
		return p.badStmt("expected function name, got %s", p.curToken)
	}
	def.Name = p.curToken.Literal
	p.nextToken()

	if !p.curTokenIs(TokenLParen) {
		return p.badStmt("expected (, got %s", p.curToken)
	}
	p.open()
	p.nextToken()
	for !p.curTokenIs(TokenRParen) {
		if !p.curTokenIs(TokenIdentifier) {
			p.close()
			return p.badStmt("expected parameter name, got %s", p.curToken)
		}
		param := Param{At: p.curToken.Pos, Name: p.curToken.Literal}
		p.nextToken()
		if p.curTokenIs(TokenColon) {
			p.nextToken()
			if !p.curTokenIs(TokenIdentifier) {
				p.close()
				return p.badStmt("expected type name, got %s", p.curToken)
			}
			param.Type = p.curToken.Literal
			p.nextToken()
		}
		def.Params = append(def.Params, param)
		if !p.curTokenIs(TokenComma) {
			break
		}
		p.nextToken()
	}
	p.close()
	if !p.expect(TokenRParen) {
		p.synchronize()
		return &BadStmt{At: def.At, Message: "malformed parameter list"}
	}

	if p.curTokenIs(TokenArrow) {
		p.nextToken()
		if !p.curTokenIs(TokenIdentifier) && !p.curTokenIs(TokenNull) {
			return p.badStmt("expected return type, got %s", p.curToken)
		}
		def.Returns = p.curToken.Literal
		p.nextToken()
	}

	body, ok := p.parseBlock()
	if !ok {
		p.synchronize()
		return &BadStmt{At: def.At, Message: "malformed function body"}
	}
	def.Body = body
	return def
}

// parseStateDecl parses state name[: type] [= initial].
func (p *Parser) parseStateDecl() Stmt {
	decl := &StateDecl{At: p.curToken.Pos}
	p.nextToken()
	if !p.curTokenIs(TokenIdentifier) {
		return p.badStmt("expected state name, got %s", p.curToken)
	}
	decl.Name = p.curToken.Literal
	p.nextToken()
	if p.curTokenIs(TokenColon) {
		p.nextToken()
		if !p.curTokenIs(TokenIdentifier) {
			return p.badStmt("expected type name, got %s", p.curToken)
		}
		decl.Type = p.curToken.Literal
		p.nextToken()
	}
	if p.curTokenIs(TokenAssign) {
		p.nextToken()
		decl.Initial = p.parseExpr()
	}
	return decl
}

// parseIf parses if cond { } elif cond { } else { }.
func (p *Parser) parseIf() Stmt {
	stmt := &IfStmt{At: p.curToken.Pos}
	for {
		branch := IfBranch{At: p.curToken.Pos}
		isElse := p.curTokenIs(TokenElse)
		p.nextToken()
		if !isElse {
			branch.Cond = p.parseExpr()
		}
		body, ok := p.parseBlock()
		if !ok {
			p.synchronize()
			return &BadStmt{At: branch.At, Message: "malformed if block"}
		}
		branch.Body = body
		stmt.Branches = append(stmt.Branches, branch)
		if isElse {
			return stmt
		}

		// elif/else may start on the next line
		for p.curTokenIs(TokenNewline) && (p.peekTokenIs(TokenNewline) || p.peekTokenIs(TokenElif) || p.peekTokenIs(TokenElse)) {
			p.nextToken()
		}
		if !p.curTokenIs(TokenElif) && !p.curTokenIs(TokenElse) {
			return stmt
		}
	}
}

func (p *Parser) parseForLoop() (*ForStmt, *BadStmt) {
	loop := &ForStmt{At: p.curToken.Pos}
	p.nextToken()
	if !p.curTokenIs(TokenIdentifier) {
		return nil, p.badStmt("expected loop variable, got %s", p.curToken)
	}
	loop.Var = p.curToken.Literal
	p.nextToken()
	if !p.curTokenIs(TokenIn) {
		return nil, p.badStmt("expected in, got %s", p.curToken)
	}
	p.nextToken()
	loop.Iterable = p.parseExpr()
	body, ok := p.parseBlock()
	if !ok {
		p.synchronize()
		return nil, &BadStmt{At: loop.At, Message: "malformed for block"}
	}
	loop.Body = body
	return loop, nil
}

func (p *Parser) parseFor() Stmt {
	loop, bad := p.parseForLoop()
	if bad != nil {
		return bad
	}
	return loop
}

func (p *Parser) parseWhile() Stmt {
	stmt := &WhileStmt{At: p.curToken.Pos}
	p.nextToken()
	stmt.Cond = p.parseExpr()
	body, ok := p.parseBlock()
	if !ok {
		p.synchronize()
		return &BadStmt{At: stmt.At, Message: "malformed while block"}
	}
	stmt.Body = body
	return stmt
}

func (p *Parser) parseReturn() Stmt {
	stmt := &ReturnStmt{At: p.curToken.Pos}
	p.nextToken()
	if !p.endOfStatement() {
		stmt.Value = p.parseExpr()
	}
	return stmt
}

// ---------------------------------------------------------------------------
// Expressions, lowest precedence first
// ---------------------------------------------------------------------------

// ParseExpression parses a single expression.
func (p *Parser) ParseExpression() Expr {
	return p.parseExpr()
}

func (p *Parser) parseExpr() Expr {
	return p.parseOr()
}

func (p *Parser) parseOr() Expr {
	left := p.parseAnd()
	for p.curTokenIs(TokenOr) {
		at := p.curToken.Pos
		p.nextToken()
		p.skipNewlines()
		left = &Binary{At: at, Op: TokenOr, Left: left, Right: p.parseAnd()}
	}
	return left
}

func (p *Parser) parseAnd() Expr {
	left := p.parseNot()
	for p.curTokenIs(TokenAnd) {
		at := p.curToken.Pos
		p.nextToken()
		p.skipNewlines()
		left = &Binary{At: at, Op: TokenAnd, Left: left, Right: p.parseNot()}
	}
	return left
}

func (p *Parser) parseNot() Expr {
	if p.curTokenIs(TokenNot) {
		at := p.curToken.Pos
		p.nextToken()
		return &Unary{At: at, Op: TokenNot, Operand: p.parseNot()}
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() Expr {
	left := p.parseAdditive()
	for {
		switch p.curToken.Type {
		case TokenEq, TokenNotEq, TokenLess, TokenGreater, TokenLessEq, TokenGreaterEq:
		default:
			return left
		}
		op, at := p.curToken.Type, p.curToken.Pos
		p.nextToken()
		p.skipNewlines()
		left = &Binary{At: at, Op: op, Left: left, Right: p.parseAdditive()}
	}
}

func (p *Parser) parseAdditive() Expr {
	left := p.parseMultiplicative()
	for p.curTokenIs(TokenPlus) || p.curTokenIs(TokenMinus) {
		op, at := p.curToken.Type, p.curToken.Pos
		p.nextToken()
		p.skipNewlines()
		left = &Binary{At: at, Op: op, Left: left, Right: p.parseMultiplicative()}
	}
	return left
}

func (p *Parser) parseMultiplicative() Expr {
	left := p.parseUnary()
	for p.curTokenIs(TokenStar) || p.curTokenIs(TokenSlash) || p.curTokenIs(TokenPercent) {
		op, at := p.curToken.Type, p.curToken.Pos
		p.nextToken()
		p.skipNewlines()
		left = &Binary{At: at, Op: op, Left: left, Right: p.parseUnary()}
	}
	return left
}

func (p *Parser) parseUnary() Expr {
	if p.curTokenIs(TokenMinus) {
		at := p.curToken.Pos
		p.nextToken()
		operand := p.parseUnary()
		// fold negative literals
		switch lit := operand.(type) {
		case *IntLiteral:
			lit.Value, lit.At = -lit.Value, at
			return lit
		case *FloatLiteral:
			lit.Value, lit.At = -lit.Value, at
			return lit
		}
		return &Unary{At: at, Op: TokenMinus, Operand: operand}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() Expr {
	expr := p.parsePrimary()
	for {
		switch p.curToken.Type {
		case TokenLParen:
			at := p.curToken.Pos
			args, ok := p.parseList(TokenRParen)
			if !ok {
				return &BadExpr{At: at, Message: "malformed argument list"}
			}
			expr = &Call{At: expr.Pos(), Callee: expr, Args: args}
		case TokenLBracket:
			at := p.curToken.Pos
			p.open()
			p.nextToken()
			idx := p.parseExpr()
			p.close()
			if !p.expect(TokenRBracket) {
				return &BadExpr{At: at, Message: "expected ]"}
			}
			expr = &Index{At: at, Target: expr, Index: idx}
		default:
			return expr
		}
	}
}

// parseList parses a comma separated expression list up to closing,
// starting at the opening token.
func (p *Parser) parseList(closing TokenType) ([]Expr, bool) {
	p.open()
	p.nextToken()
	var items []Expr
	for !p.curTokenIs(closing) {
		item := p.parseExpr()
		if _, bad := item.(*BadExpr); bad {
			p.close()
			return nil, false
		}
		items = append(items, item)
		if !p.curTokenIs(TokenComma) {
			break
		}
		p.nextToken()
	}
	p.close()
	if !p.expect(closing) {
		return nil, false
	}
	return items, true
}

func (p *Parser) parsePrimary() Expr {
	tok := p.curToken
	switch tok.Type {
	case TokenInteger:
		p.nextToken()
		v, err := strconv.ParseInt(tok.Literal, 0, 64)
		if err != nil {
			return &BadExpr{At: tok.Pos, Message: p.errorf("invalid integer %s", tok.Literal)}
		}
		return &IntLiteral{At: tok.Pos, Value: v}
	case TokenFloat:
		p.nextToken()
		v, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return &BadExpr{At: tok.Pos, Message: p.errorf("invalid float %s", tok.Literal)}
		}
		return &FloatLiteral{At: tok.Pos, Value: v}
	case TokenString:
		p.nextToken()
		return &StringLiteral{At: tok.Pos, Value: tok.Literal}
	case TokenTrue, TokenFalse:
		p.nextToken()
		return &BoolLiteral{At: tok.Pos, Value: tok.Type == TokenTrue}
	case TokenNull:
		p.nextToken()
		return &NullLiteral{At: tok.Pos}
	case TokenIdentifier:
		p.nextToken()
		return &Ident{At: tok.Pos, Name: tok.Literal}
	case TokenLParen:
		p.open()
		p.nextToken()
		expr := p.parseExpr()
		p.close()
		if !p.expect(TokenRParen) {
			return &BadExpr{At: tok.Pos, Message: "expected )"}
		}
		return expr
	case TokenLBracket:
		items, ok := p.parseList(TokenRBracket)
		if !ok {
			return &BadExpr{At: tok.Pos, Message: "malformed list literal"}
		}
		return &ListLiteral{At: tok.Pos, Elements: items}
	case TokenLBrace:
		return p.parseMapLiteral()
	case TokenFor:
		loop, bad := p.parseForLoop()
		if bad != nil {
			return &BadExpr{At: bad.At, Message: bad.Message}
		}
		return &ForExpr{Loop: loop}
	case TokenError:
		p.nextToken()
		return &BadExpr{At: tok.Pos, Message: p.errorf("%s", tok.Literal)}
	}
	return &BadExpr{At: tok.Pos, Message: p.errorf("unexpected %s", tok)}
}

// parseMapLiteral parses {key: value, ...}.
func (p *Parser) parseMapLiteral() Expr {
	m := &MapLiteral{At: p.curToken.Pos}
	p.open()
	p.nextToken()
	for !p.curTokenIs(TokenRBrace) {
		k := p.parseExpr()
		if !p.curTokenIs(TokenColon) {
			p.close()
			return &BadExpr{At: m.At, Message: p.errorf("expected : in map literal, got %s", p.curToken)}
		}
		p.nextToken()
		v := p.parseExpr()
		m.Keys = append(m.Keys, k)
		m.Values = append(m.Values, v)
		if !p.curTokenIs(TokenComma) {
			break
		}
		p.nextToken()
	}
	p.close()
	if !p.expect(TokenRBrace) {
		return &BadExpr{At: m.At, Message: "malformed map literal"}
	}
	return m
}
