package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError
	TokenNewline

	// Literals
	TokenInteger    // 42, 0x2a
	TokenFloat      // 3.14, 1.5e10
	TokenString     // "hello"
	TokenIdentifier // foo, bar_2

	// Operators
	TokenPlus     // +
	TokenMinus    // -
	TokenStar     // *
	TokenSlash    // /
	TokenPercent  // %
	TokenEq       // ==
	TokenNotEq    // !=
	TokenLess     // <
	TokenGreater  // >
	TokenLessEq   // <=
	TokenGreaterEq // >=
	TokenAssign   // =
	TokenPlusEq   // +=
	TokenMinusEq  // -=
	TokenStarEq   // *=
	TokenSlashEq  // /=
	TokenArrow    // ->

	// Delimiters
	TokenLParen    // (
	TokenRParen    // )
	TokenLBracket  // [
	TokenRBracket  // ]
	TokenLBrace    // {
	TokenRBrace    // }
	TokenComma     // ,
	TokenColon     // :
	TokenSemicolon // ;

	// Keywords
	TokenDef
	TokenState
	TokenIf
	TokenElif
	TokenElse
	TokenFor
	TokenIn
	TokenWhile
	TokenReturn
	TokenBreak
	TokenContinue
	TokenDiscard
	TokenTrue
	TokenFalse
	TokenNull
	TokenAnd
	TokenOr
	TokenNot
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenNewline:    "newline",
	TokenInteger:    "INTEGER",
	TokenFloat:      "FLOAT",
	TokenString:     "STRING",
	TokenIdentifier: "IDENTIFIER",
	TokenPlus:       "+",
	TokenMinus:      "-",
	TokenStar:       "*",
	TokenSlash:      "/",
	TokenPercent:    "%",
	TokenEq:         "==",
	TokenNotEq:      "!=",
	TokenLess:       "<",
	TokenGreater:    ">",
	TokenLessEq:     "<=",
	TokenGreaterEq:  ">=",
	TokenAssign:     "=",
	TokenPlusEq:     "+=",
	TokenMinusEq:    "-=",
	TokenStarEq:     "*=",
	TokenSlashEq:    "/=",
	TokenArrow:      "->",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenLBracket:   "[",
	TokenRBracket:   "]",
	TokenLBrace:     "{",
	TokenRBrace:     "}",
	TokenComma:      ",",
	TokenColon:      ":",
	TokenSemicolon:  ";",
	TokenDef:        "def",
	TokenState:      "state",
	TokenIf:         "if",
	TokenElif:       "elif",
	TokenElse:       "else",
	TokenFor:        "for",
	TokenIn:         "in",
	TokenWhile:      "while",
	TokenReturn:     "return",
	TokenBreak:      "break",
	TokenContinue:   "continue",
	TokenDiscard:    "discard",
	TokenTrue:       "true",
	TokenFalse:      "false",
	TokenNull:       "null",
	TokenAnd:        "and",
	TokenOr:         "or",
	TokenNot:        "not",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // the raw text (unescaped for strings)
	Pos     Position // start position
}

func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "EOF"
	case TokenNewline:
		return "newline"
	case TokenError:
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Reserved words mapped to their token types.
var reservedWords = map[string]TokenType{
	"def":      TokenDef,
	"state":    TokenState,
	"if":       TokenIf,
	"elif":     TokenElif,
	"else":     TokenElse,
	"for":      TokenFor,
	"in":       TokenIn,
	"while":    TokenWhile,
	"return":   TokenReturn,
	"break":    TokenBreak,
	"continue": TokenContinue,
	"discard":  TokenDiscard,
	"true":     TokenTrue,
	"false":    TokenFalse,
	"null":     TokenNull,
	"and":      TokenAnd,
	"or":       TokenOr,
	"not":      TokenNot,
}

// IsReserved reports whether name is a keyword.
func IsReserved(name string) bool {
	_, ok := reservedWords[name]
	return ok
}
