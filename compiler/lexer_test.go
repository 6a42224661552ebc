package compiler

import (
	"testing"
)

func TestLexerBasicTokens(t *testing.T) {
	input := `( ) [ ] { } , : ; = == != < > <= >= + - * / % += -= *= /= ->`
	expected := []struct {
		typ TokenType
		lit string
	}{
		{TokenLParen, "("},
		{TokenRParen, ")"},
		{TokenLBracket, "["},
		{TokenRBracket, "]"},
		{TokenLBrace, "{"},
		{TokenRBrace, "}"},
		{TokenComma, ","},
		{TokenColon, ":"},
		{TokenSemicolon, ";"},
		{TokenAssign, "="},
		{TokenEq, "=="},
		{TokenNotEq, "!="},
		{TokenLess, "<"},
		{TokenGreater, ">"},
		{TokenLessEq, "<="},
		{TokenGreaterEq, ">="},
		{TokenPlus, "+"},
		{TokenMinus, "-"},
		{TokenStar, "*"},
		{TokenSlash, "/"},
		{TokenPercent, "%"},
		{TokenPlusEq, "+="},
		{TokenMinusEq, "-="},
		{TokenStarEq, "*="},
		{TokenSlashEq, "/="},
		{TokenArrow, "->"},
		{TokenEOF, ""},
	}

	l := NewLexer(input)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp.typ {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, exp.typ)
		}
		if tok.Literal != exp.lit {
			t.Errorf("token[%d] literal = %q, want %q", i, tok.Literal, exp.lit)
		}
	}
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
		want  string
	}{
		{"42", TokenInteger, "42"},
		{"0", TokenInteger, "0"},
		{"0xFF", TokenInteger, "0xFF"},
		{"3.14", TokenFloat, "3.14"},
		{"1e10", TokenFloat, "1e10"},
		{"2.5E-3", TokenFloat, "2.5E-3"},
	}

	for _, tc := range tests {
		tok := NewLexer(tc.input).NextToken()
		if tok.Type != tc.typ {
			t.Errorf("Lexer(%q): type = %v, want %v", tc.input, tok.Type, tc.typ)
		}
		if tok.Literal != tc.want {
			t.Errorf("Lexer(%q): literal = %q, want %q", tc.input, tok.Literal, tc.want)
		}
	}
}

func TestLexerStrings(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"hello"`, "hello"},
		{`'single'`, "single"},
		{`"a\nb"`, "a\nb"},
		{`"say \"hi\""`, `say "hi"`},
		{`'it\'s'`, "it's"},
		{`""`, ""},
	}

	for _, tc := range tests {
		tok := NewLexer(tc.input).NextToken()
		if tok.Type != TokenString {
			t.Errorf("Lexer(%q): type = %v, want STRING", tc.input, tok.Type)
		}
		if tok.Literal != tc.want {
			t.Errorf("Lexer(%q): literal = %q, want %q", tc.input, tok.Literal, tc.want)
		}
	}
}

func TestLexerUnterminatedString(t *testing.T) {
	tok := NewLexer(`"abc`).NextToken()
	if tok.Type != TokenError {
		t.Fatalf("type = %v, want ERROR", tok.Type)
	}
}

func TestLexerKeywordsAndIdentifiers(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
	}{
		{"def", TokenDef},
		{"state", TokenState},
		{"if", TokenIf},
		{"elif", TokenElif},
		{"else", TokenElse},
		{"for", TokenFor},
		{"in", TokenIn},
		{"while", TokenWhile},
		{"return", TokenReturn},
		{"break", TokenBreak},
		{"continue", TokenContinue},
		{"discard", TokenDiscard},
		{"true", TokenTrue},
		{"false", TokenFalse},
		{"null", TokenNull},
		{"and", TokenAnd},
		{"or", TokenOr},
		{"not", TokenNot},
		{"foo", TokenIdentifier},
		{"_bar2", TokenIdentifier},
		{"define", TokenIdentifier},
	}

	for _, tc := range tests {
		tok := NewLexer(tc.input).NextToken()
		if tok.Type != tc.typ {
			t.Errorf("Lexer(%q): type = %v, want %v", tc.input, tok.Type, tc.typ)
		}
	}
}

func TestLexerCommentsAndNewlines(t *testing.T) {
	input := "a = 1 -- set a\n\nb -- trailing"
	want := []TokenType{
		TokenIdentifier, TokenAssign, TokenInteger, TokenNewline,
		TokenNewline, TokenIdentifier, TokenEOF,
	}

	tokens := Tokenize(input)
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens %v, want %d", len(tokens), tokens, len(want))
	}
	for i, typ := range want {
		if tokens[i].Type != typ {
			t.Errorf("token[%d] = %v, want %v", i, tokens[i].Type, typ)
		}
	}
}

func TestLexerPositions(t *testing.T) {
	tokens := Tokenize("a\n  bc = 1")
	want := []Position{
		{Offset: 0, Line: 1, Column: 1},
		{Offset: 1, Line: 1, Column: 2},
		{Offset: 4, Line: 2, Column: 3},
		{Offset: 7, Line: 2, Column: 6},
		{Offset: 9, Line: 2, Column: 8},
	}
	for i, pos := range want {
		if tokens[i].Pos != pos {
			t.Errorf("token[%d] %v at %+v, want %+v", i, tokens[i], tokens[i].Pos, pos)
		}
	}
}

func TestLexerUnexpectedCharacter(t *testing.T) {
	tokens := Tokenize("a @ b")
	last := tokens[len(tokens)-1]
	if last.Type != TokenError {
		t.Fatalf("last token = %v, want ERROR", last)
	}
	if last.Pos.Column != 3 {
		t.Errorf("error column = %d, want 3", last.Pos.Column)
	}
}
