package compiler

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for token sequences
// ---------------------------------------------------------------------------

// Parser parses program text into an AST. Parsing stops at the first
// error.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
	err       *Error
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

// Parse parses a whole program.
func Parse(input string) ([]Node, error) {
	return NewParser(input).ParseProgram()
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// errorf records a parse error at the current token, keeping the first.
func (p *Parser) errorf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	p.err = &Error{
		Kind:   ErrParse,
		Pos:    p.curToken.Pos,
		Token:  p.curToken.Literal,
		Detail: fmt.Sprintf(format, args...),
	}
}

// Err returns the first parse error, or nil.
func (p *Parser) Err() error {
	if p.err == nil {
		return nil
	}
	return p.err
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseProgram parses a sequence that must run to the end of input.
func (p *Parser) ParseProgram() ([]Node, error) {
	nodes := p.parseSequence()
	if p.err == nil && !p.curTokenIs(TokenEOF) {
		switch p.curToken.Type {
		case TokenComma:
			p.errorf("',' outside of a tuple")
		default:
			p.errorf("unexpected %s", p.curToken.Type)
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return nodes, nil
}

// parseSequence parses items until a closing delimiter, a comma, EOF or
// an error.
func (p *Parser) parseSequence() []Node {
	nodes := []Node{}
	for p.err == nil {
		switch p.curToken.Type {
		case TokenEOF, TokenRBracket, TokenRBrace, TokenRParen, TokenComma:
			return nodes
		}
		n := p.parseItem()
		if n == nil {
			return nodes
		}
		nodes = append(nodes, n)
	}
	return nodes
}

// parseItem parses one token or one grouping construct.
func (p *Parser) parseItem() Node {
	tok := p.curToken
	span := Span{Start: tok.Pos, End: endOf(tok)}

	switch tok.Type {
	case TokenNumber:
		v, err := parseNumber(tok.Literal)
		if err != nil {
			p.errorf("invalid number %q", tok.Literal)
			return nil
		}
		p.nextToken()
		return &NumberLit{SpanVal: span, Text: tok.Literal, Value: v}

	case TokenTrue, TokenFalse:
		p.nextToken()
		return &BoolLit{SpanVal: span, Value: tok.Literal == "true"}

	case TokenString:
		p.nextToken()
		return &StringLit{SpanVal: span, Text: tok.Literal, Value: tok.Literal[1 : len(tok.Literal)-1]}

	case TokenWord:
		p.nextToken()
		return &Ref{SpanVal: span, Name: tok.Literal}

	case TokenLBracket:
		body, end, ok := p.parseGroup(TokenRBracket)
		if !ok {
			return nil
		}
		return &ArrayNode{SpanVal: Span{Start: tok.Pos, End: end}, Body: body}

	case TokenLBrace:
		body, end, ok := p.parseGroup(TokenRBrace)
		if !ok {
			return nil
		}
		return &WrapNode{SpanVal: Span{Start: tok.Pos, End: end}, Body: body}

	case TokenLParen:
		return p.parseTuple()

	case TokenError:
		p.errorf("%s", tok.Literal)
		return nil

	default:
		p.errorf("unexpected %s", tok.Type)
		return nil
	}
}

// parseGroup parses the body of [ ... ] or { ... }. Commas are not
// allowed inside.
func (p *Parser) parseGroup(closer TokenType) ([]Node, Position, bool) {
	open := p.curToken
	p.nextToken() // opening delimiter
	body := p.parseSequence()
	if p.err != nil {
		return nil, Position{}, false
	}
	if !p.curTokenIs(closer) {
		switch p.curToken.Type {
		case TokenComma:
			p.errorf("',' inside %s ... %s", open.Literal, closer)
		case TokenEOF:
			p.errorf("unclosed %s", open.Literal)
		default:
			p.errorf("expected %s, got %s", closer, p.curToken.Type)
		}
		return nil, Position{}, false
	}
	end := endOf(p.curToken)
	p.nextToken()
	return body, end, true
}

// parseTuple parses ( a, b, ... ). "()" is the zero-element tuple; an
// element between two commas may be empty.
func (p *Parser) parseTuple() Node {
	open := p.curToken
	p.nextToken() // (

	elems := [][]Node{}
	if !p.curTokenIs(TokenRParen) {
		for {
			elems = append(elems, p.parseSequence())
			if p.err != nil {
				return nil
			}
			if !p.curTokenIs(TokenComma) {
				break
			}
			p.nextToken()
		}
	}

	if !p.curTokenIs(TokenRParen) {
		if p.curTokenIs(TokenEOF) {
			p.errorf("unclosed (")
		} else {
			p.errorf("expected ), got %s", p.curToken.Type)
		}
		return nil
	}
	end := endOf(p.curToken)
	p.nextToken()
	return &TupleNode{SpanVal: Span{Start: open.Pos, End: end}, Elems: elems}
}

// endOf returns the position just past tok.
func endOf(tok Token) Position {
	end := tok.Pos
	end.Offset += len(tok.Literal)
	end.Column += len([]rune(tok.Literal))
	return end
}
