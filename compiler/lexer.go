package compiler

import (
	"errors"
	"strconv"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for concatenative programs
// ---------------------------------------------------------------------------

// Lexer tokenizes program text.
type Lexer struct {
	input     string
	pos       int  // current position in input
	readPos   int  // reading position (after current char)
	ch        rune // current character
	line      int  // current line (1-based)
	lineStart int  // offset of current line start
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
	}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.lineStart = l.readPos
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
		l.pos = l.readPos
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{
		Offset: l.pos,
		Line:   l.line,
		Column: utf8.RuneCountInString(l.input[l.lineStart:l.pos]) + 1,
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	pos := l.position()

	switch {
	case l.atEOF():
		return Token{Type: TokenEOF, Literal: "", Pos: pos}

	case l.ch == '[':
		l.readChar()
		return Token{Type: TokenLBracket, Literal: "[", Pos: pos}

	case l.ch == ']':
		l.readChar()
		return Token{Type: TokenRBracket, Literal: "]", Pos: pos}

	case l.ch == '{':
		l.readChar()
		return Token{Type: TokenLBrace, Literal: "{", Pos: pos}

	case l.ch == '}':
		l.readChar()
		return Token{Type: TokenRBrace, Literal: "}", Pos: pos}

	case l.ch == '(':
		l.readChar()
		return Token{Type: TokenLParen, Literal: "(", Pos: pos}

	case l.ch == ')':
		l.readChar()
		return Token{Type: TokenRParen, Literal: ")", Pos: pos}

	case l.ch == ',':
		l.readChar()
		return Token{Type: TokenComma, Literal: ",", Pos: pos}

	case l.ch == '\'' || l.ch == '"':
		return l.readString(pos)

	default:
		return l.readWord(pos)
	}
}

// Tokenize returns every token of input up to and including EOF or the
// first error.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			return toks
		}
	}
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

// skipWhitespaceAndComments skips whitespace and line comments.
// A comment is a '#' followed by whitespace or the end of input and runs
// to the end of the line.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for !l.atEOF() && unicode.IsSpace(l.ch) {
			l.readChar()
		}

		if !l.atEOF() && l.ch == '#' {
			peek := l.peekChar()
			if peek == 0 || unicode.IsSpace(peek) {
				for !l.atEOF() && l.ch != '\n' {
					l.readChar()
				}
				continue
			}
		}

		break
	}
}

// readString reads a string delimited by matching quote characters.
// The literal keeps its delimiters; there are no escape sequences.
func (l *Lexer) readString(pos Position) Token {
	quote := l.ch
	start := l.pos
	l.readChar() // opening quote
	for !l.atEOF() && l.ch != quote {
		l.readChar()
	}
	if l.atEOF() {
		return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
	}
	l.readChar() // closing quote
	return Token{Type: TokenString, Literal: l.input[start:l.pos], Pos: pos}
}

// readWord reads a bare word and classifies it as a boolean, a number or
// a namespace name.
func (l *Lexer) readWord(pos Position) Token {
	start := l.pos
	for !l.atEOF() && !unicode.IsSpace(l.ch) && !IsDelimiter(l.ch) {
		l.readChar()
	}
	lit := l.input[start:l.pos]

	if typ, ok := reservedWords[lit]; ok {
		return Token{Type: typ, Literal: lit, Pos: pos}
	}
	if looksNumeric(lit) {
		if _, err := parseNumber(lit); err == nil {
			return Token{Type: TokenNumber, Literal: lit, Pos: pos}
		}
	}
	return Token{Type: TokenWord, Literal: lit, Pos: pos}
}

// parseNumber converts a numeric literal. Literals beyond the float64
// range become ±Inf (or 0 on underflow) rather than failing.
func parseNumber(lit string) (float64, error) {
	v, err := strconv.ParseFloat(lit, 64)
	if err != nil && errors.Is(err, strconv.ErrRange) {
		return v, nil
	}
	return v, err
}

// looksNumeric reports whether lit starts the way a number does: a digit,
// or a sign or decimal point followed by a digit. Words such as "inf" or
// "nan" stay names.
func looksNumeric(lit string) bool {
	if lit == "" {
		return false
	}
	if isDigit(lit[0]) {
		return true
	}
	switch lit[0] {
	case '+', '-':
		if len(lit) > 1 && lit[1] == '.' {
			return len(lit) > 2 && isDigit(lit[2])
		}
		return len(lit) > 1 && isDigit(lit[1])
	case '.':
		return len(lit) > 1 && isDigit(lit[1])
	}
	return false
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
