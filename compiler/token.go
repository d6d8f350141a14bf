package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the stack language lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenNumber // 42, -1.5, 2e10
	TokenString // 'hello', "hello"
	TokenTrue   // true
	TokenFalse  // false

	// Names resolved through the namespace
	TokenWord // add, concat, my-word

	// Delimiters
	TokenLBracket // [
	TokenRBracket // ]
	TokenLBrace   // {
	TokenRBrace   // }
	TokenLParen   // (
	TokenRParen   // )
	TokenComma    // ,
)

var tokenNames = map[TokenType]string{
	TokenEOF:      "EOF",
	TokenError:    "ERROR",
	TokenNumber:   "NUMBER",
	TokenString:   "STRING",
	TokenTrue:     "true",
	TokenFalse:    "false",
	TokenWord:     "WORD",
	TokenLBracket: "[",
	TokenRBracket: "]",
	TokenLBrace:   "{",
	TokenRBrace:   "}",
	TokenLParen:   "(",
	TokenRParen:   ")",
	TokenComma:    ",",
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
	Literal string   // the raw text
	Pos     Position // start position
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Reserved words mapped to their token types.
var reservedWords = map[string]TokenType{
	"true":  TokenTrue,
	"false": TokenFalse,
}

// IsDelimiter returns true if r ends a bare word.
func IsDelimiter(r rune) bool {
	switch r {
	case '[', ']', '{', '}', '(', ')', ',':
		return true
	}
	return false
}
