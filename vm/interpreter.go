package vm

import (
	"fmt"

	"github.com/chazu/stackfx/compiler"
)

// ---------------------------------------------------------------------------
// Interpreter: AST walking evaluator
// ---------------------------------------------------------------------------

// Action is the runtime behavior of a named entry. It pops its inputs from
// st and pushes its outputs.
type Action func(st *Stack) error

// Bindings is the execution view of a namespace.
type Bindings interface {
	Action(name string) (Action, bool)
}

// Interpreter executes parsed programs against a value stack.
type Interpreter struct {
	bindings Bindings
}

// NewInterpreter creates an interpreter resolving names through b.
func NewInterpreter(b Bindings) *Interpreter {
	return &Interpreter{bindings: b}
}

// Run parses src and executes it on an empty stack.
func Run(src string, b Bindings) ([]Value, error) {
	nodes, err := compiler.Parse(src)
	if err != nil {
		return nil, err
	}
	return NewInterpreter(b).Run(nodes)
}

// Run executes nodes on an empty stack and returns the values left on it,
// bottom first. Nothing is returned unless the whole program succeeds.
func (i *Interpreter) Run(nodes []compiler.Node) ([]Value, error) {
	st := NewStack()
	if err := i.Exec(st, nodes); err != nil {
		return nil, err
	}
	return st.Values(), nil
}

// Exec executes nodes in order against st. On error st is left in an
// unspecified state.
func (i *Interpreter) Exec(st *Stack, nodes []compiler.Node) error {
	for _, n := range nodes {
		if err := i.exec(st, n); err != nil {
			return err
		}
	}
	return nil
}

func (i *Interpreter) exec(st *Stack, n compiler.Node) error {
	switch n := n.(type) {
	case *compiler.NumberLit:
		st.Push(NewNumber(n.Value))

	case *compiler.BoolLit:
		st.Push(NewBoolean(n.Value))

	case *compiler.StringLit:
		st.Push(NewString(n.Value))

	case *compiler.Ref:
		var action Action
		ok := false
		if i.bindings != nil {
			action, ok = i.bindings.Action(n.Name)
		}
		if !ok {
			return &compiler.Error{
				Kind:   compiler.ErrUnknownName,
				Pos:    n.SpanVal.Start,
				Token:  n.Name,
				Detail: fmt.Sprintf("%q", n.Name),
			}
		}
		if err := action(st); err != nil {
			return compiler.ErrorAt(n, n.Name, err)
		}

	case *compiler.ArrayNode:
		child := st.Child()
		if err := i.Exec(child, n.Body); err != nil {
			return err
		}
		st.Push(NewArray(child.Values()))

	case *compiler.WrapNode:
		child := st.Child()
		if err := i.Exec(child, n.Body); err != nil {
			return err
		}
		st.Push(NewWrapped(child.Values()))

	case *compiler.TupleNode:
		// The last element's inputs sit on top of the stack, so elements
		// run right to left.
		elems := make([][]Value, len(n.Elems))
		for k := len(n.Elems) - 1; k >= 0; k-- {
			child := st.Child()
			if err := i.Exec(child, n.Elems[k]); err != nil {
				return err
			}
			elems[k] = child.Values()
		}
		st.Push(NewTuple(elems))

	default:
		return fmt.Errorf("vm: unknown node %T", n)
	}
	return nil
}
