package vm

import (
	"fmt"

	"github.com/chazu/stackfx/compiler"
	"github.com/chazu/stackfx/effect"
)

// ---------------------------------------------------------------------------
// Stack: operand stack with parent fallthrough
// ---------------------------------------------------------------------------

// Stack is a value stack. A child stack pops from its parent once its own
// values run out, which is how the inputs of a grouped expression are
// drawn from the enclosing one.
type Stack struct {
	items  []Value
	parent *Stack
}

// NewStack creates a stack holding vals, bottom first.
func NewStack(vals ...Value) *Stack {
	items := make([]Value, len(vals), len(vals)+16)
	copy(items, vals)
	return &Stack{items: items}
}

// Child creates an empty stack that falls through to s.
func (s *Stack) Child() *Stack {
	return &Stack{parent: s}
}

// Push pushes vals in order; the last one ends up on top.
func (s *Stack) Push(vals ...Value) {
	s.items = append(s.items, vals...)
}

// Pop removes and returns the top value. Popping an exhausted stack is an
// arity mismatch.
func (s *Stack) Pop() (Value, error) {
	for cur := s; cur != nil; cur = cur.parent {
		if n := len(cur.items); n > 0 {
			v := cur.items[n-1]
			cur.items = cur.items[:n-1]
			return v, nil
		}
	}
	return Value{}, fmt.Errorf("%w: stack underflow", compiler.ErrArityMismatch)
}

// PopKind pops the top value and checks that it has kind k.
func (s *Stack) PopKind(k effect.Kind) (Value, error) {
	v, err := s.Pop()
	if err != nil {
		return Value{}, err
	}
	if v.Kind != k {
		return Value{}, &effect.MismatchError{Expected: k.String(), Actual: v.Kind.String()}
	}
	return v, nil
}

// PopNumber pops a number.
func (s *Stack) PopNumber() (float64, error) {
	v, err := s.PopKind(effect.KindNumber)
	return v.Num, err
}

// PopBool pops a boolean.
func (s *Stack) PopBool() (bool, error) {
	v, err := s.PopKind(effect.KindBoolean)
	return v.Bool, err
}

// PopString pops a string.
func (s *Stack) PopString() (string, error) {
	v, err := s.PopKind(effect.KindString)
	return v.Str, err
}

// Len returns the number of values held by s itself, not counting its
// parent.
func (s *Stack) Len() int {
	return len(s.items)
}

// Values returns a copy of the values held by s, bottom first.
func (s *Stack) Values() []Value {
	out := make([]Value, len(s.items))
	copy(out, s.items)
	return out
}
