package compiler

import (
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// AST: the closed set of token forms
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// Node is the interface implemented by all AST nodes. The set of
// implementations is fixed: NumberLit, BoolLit, StringLit, Ref, ArrayNode,
// WrapNode and TupleNode.
type Node interface {
	Span() Span
	node() // marker method
}

// NumberLit represents a numeric literal.
type NumberLit struct {
	SpanVal Span
	Text    string
	Value   float64
}

func (n *NumberLit) Span() Span { return n.SpanVal }
func (n *NumberLit) node()      {}

// BoolLit represents true or false.
type BoolLit struct {
	SpanVal Span
	Value   bool
}

func (n *BoolLit) Span() Span { return n.SpanVal }
func (n *BoolLit) node()      {}

// StringLit represents a quoted string. Text keeps the delimiters.
type StringLit struct {
	SpanVal Span
	Text    string
	Value   string
}

func (n *StringLit) Span() Span { return n.SpanVal }
func (n *StringLit) node()      {}

// Ref names an entry of the namespace.
type Ref struct {
	SpanVal Span
	Name    string
}

func (n *Ref) Span() Span { return n.SpanVal }
func (n *Ref) node()      {}

// ArrayNode represents [ ... ].
type ArrayNode struct {
	SpanVal Span
	Body    []Node
}

func (n *ArrayNode) Span() Span { return n.SpanVal }
func (n *ArrayNode) node()      {}

// WrapNode represents { ... }.
type WrapNode struct {
	SpanVal Span
	Body    []Node
}

func (n *WrapNode) Span() Span { return n.SpanVal }
func (n *WrapNode) node()      {}

// TupleNode represents ( a, b, ... ). Each element is an independent
// sequence.
type TupleNode struct {
	SpanVal Span
	Elems   [][]Node
}

func (n *TupleNode) Span() Span { return n.SpanVal }
func (n *TupleNode) node()      {}

// ---------------------------------------------------------------------------
// Formatting
// ---------------------------------------------------------------------------

// Format renders nodes as normalized program text.
func Format(nodes []Node) string {
	var b strings.Builder
	formatSeq(&b, nodes)
	return b.String()
}

func formatSeq(b *strings.Builder, nodes []Node) {
	for i, n := range nodes {
		if i > 0 {
			b.WriteByte(' ')
		}
		formatNode(b, n)
	}
}

func formatNode(b *strings.Builder, n Node) {
	switch n := n.(type) {
	case *NumberLit:
		b.WriteString(strconv.FormatFloat(n.Value, 'g', -1, 64))
	case *BoolLit:
		b.WriteString(strconv.FormatBool(n.Value))
	case *StringLit:
		b.WriteString(n.Text)
	case *Ref:
		b.WriteString(n.Name)
	case *ArrayNode:
		b.WriteByte('[')
		formatSeq(b, n.Body)
		b.WriteByte(']')
	case *WrapNode:
		b.WriteByte('{')
		formatSeq(b, n.Body)
		b.WriteByte('}')
	case *TupleNode:
		b.WriteByte('(')
		for i, elem := range n.Elems {
			if i > 0 {
				b.WriteString(", ")
			}
			formatSeq(b, elem)
		}
		b.WriteByte(')')
	}
}

// Walk calls fn for every node in nodes, depth first. Returning false
// from fn skips the node's children.
func Walk(nodes []Node, fn func(Node) bool) {
	for _, n := range nodes {
		if !fn(n) {
			continue
		}
		switch n := n.(type) {
		case *ArrayNode:
			Walk(n.Body, fn)
		case *WrapNode:
			Walk(n.Body, fn)
		case *TupleNode:
			for _, elem := range n.Elems {
				Walk(elem, fn)
			}
		}
	}
}
