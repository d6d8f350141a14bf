package compiler

import (
	"fmt"

	"github.com/chazu/stackfx/effect"
)

// ---------------------------------------------------------------------------
// Checker: static stack-effect inference
// ---------------------------------------------------------------------------

// Signatures is the type-checking view of a namespace.
type Signatures interface {
	// Signature returns the declared effect of name, with identifiers
	// local to that entry.
	Signature(name string) (effect.Signature, bool)
}

// Checker computes stack effects of parsed programs.
type Checker struct {
	sigs Signatures
}

// NewChecker creates a checker resolving names through sigs.
func NewChecker(sigs Signatures) *Checker {
	return &Checker{sigs: sigs}
}

// TypeOf parses src and returns its stack effect.
func TypeOf(src string, sigs Signatures) (effect.Signature, error) {
	nodes, err := Parse(src)
	if err != nil {
		return effect.Signature{}, err
	}
	return NewChecker(sigs).TypeOf(nodes)
}

// TypeOf folds the effects of nodes, in order, into one signature. The
// first node's effect is the initial accumulator; each following node is
// composed onto it.
func (c *Checker) TypeOf(nodes []Node) (effect.Signature, error) {
	if len(nodes) == 0 {
		return effect.Empty(), nil
	}
	acc, err := c.typeOf(nodes[0])
	if err != nil {
		return effect.Signature{}, err
	}
	for _, n := range nodes[1:] {
		sig, err := c.typeOf(n)
		if err != nil {
			return effect.Signature{}, err
		}
		acc, err = effect.Compose(acc, sig)
		if err != nil {
			return effect.Signature{}, errorAt(ErrTypeMismatch, n, tokenText(n), err)
		}
	}
	return acc, nil
}

// typeOf returns the effect of a single node.
func (c *Checker) typeOf(n Node) (effect.Signature, error) {
	switch n := n.(type) {
	case *NumberLit:
		return effect.Literal(effect.KindNumber), nil

	case *BoolLit:
		return effect.Literal(effect.KindBoolean), nil

	case *StringLit:
		return effect.Literal(effect.KindString), nil

	case *Ref:
		if c.sigs == nil {
			return effect.Signature{}, &Error{Kind: ErrUnknownName, Pos: n.SpanVal.Start, Token: n.Name, Detail: fmt.Sprintf("%q", n.Name)}
		}
		sig, ok := c.sigs.Signature(n.Name)
		if !ok {
			return effect.Signature{}, &Error{Kind: ErrUnknownName, Pos: n.SpanVal.Start, Token: n.Name, Detail: fmt.Sprintf("%q", n.Name)}
		}
		return sig, nil

	case *ArrayNode:
		return c.composite(n.Body, effect.ArrayOf)

	case *WrapNode:
		return c.composite(n.Body, effect.WrappedOf)

	case *TupleNode:
		return c.tuple(n)
	}
	return effect.Signature{}, fmt.Errorf("compiler: unknown node %T", n)
}

// composite builds the effect of [ body ] or { body }: the body's inputs
// become the node's inputs and the node pushes one value carrying the
// body's effect.
func (c *Checker) composite(body []Node, wrap func(effect.Effect) effect.Type) (effect.Signature, error) {
	inner, err := c.TypeOf(body)
	if err != nil {
		return effect.Signature{}, err
	}
	id := inner.Next()
	types := make(effect.Table, len(inner.Types)+1)
	for k, t := range inner.Types {
		types[k] = t
	}
	types[id] = wrap(inner.Effect())
	return effect.Signature{
		Input:  inner.Effect().Input,
		Output: []effect.ID{id},
		Types:  types,
	}, nil
}

// tuple builds the effect of ( a, b, ... ). Elements do not consume each
// other's outputs; each is renumbered into its own range.
func (c *Checker) tuple(n *TupleNode) (effect.Signature, error) {
	elems := make([]effect.Signature, len(n.Elems))
	for i, body := range n.Elems {
		sig, err := c.TypeOf(body)
		if err != nil {
			return effect.Signature{}, err
		}
		elems[i] = sig
	}

	combined, shifted := effect.Collect(elems...)
	id := combined.Next()
	effects := make([]effect.Effect, len(shifted))
	for i, s := range shifted {
		effects[i] = s.Effect()
	}
	combined.Types[id] = effect.TupleOf(effects...)
	combined.Output = []effect.ID{id}
	return combined, nil
}

// tokenText returns a short source rendering of n for error reports.
func tokenText(n Node) string {
	switch n := n.(type) {
	case *Ref:
		return n.Name
	case *ArrayNode, *WrapNode, *TupleNode:
		text := Format([]Node{n})
		if len(text) > 24 {
			text = text[:24] + "..."
		}
		return text
	}
	return Format([]Node{n})
}
