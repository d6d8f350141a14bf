package effect

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Sequence composition
// ---------------------------------------------------------------------------

// ErrTypeMismatch is returned when a produced value cannot satisfy the
// input that consumes it.
var ErrTypeMismatch = errors.New("type mismatch")

// MismatchError describes an incompatible pair found while composing.
// Depth counts from the top of the stack, starting at 0.
type MismatchError struct {
	Depth    int
	Expected string
	Actual   string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("type mismatch at stack depth %d: expected %s, got %s", e.Depth, e.Expected, e.Actual)
}

func (e *MismatchError) Unwrap() error { return ErrTypeMismatch }

// Compose returns the effect of running current and then next.
//
// next is shifted past every identifier used by current. Produced values of
// current are then paired with required values of next, from the top of the
// stack down, until one side runs out. Paired identifiers become internal
// to the result and are dropped from its table along with anything only
// they referenced.
func Compose(current, next Signature) (Signature, error) {
	next = next.Shift(current.Next())

	k := min(len(current.Output), len(next.Input))
	for i := 0; i < k; i++ {
		produced := current.Output[len(current.Output)-1-i]
		required := next.Input[len(next.Input)-1-i]
		if !Compatible(current.Types, produced, next.Types, required) {
			return Signature{}, &MismatchError{
				Depth:    i,
				Expected: describe(next.Types, required),
				Actual:   describe(current.Types, produced),
			}
		}
	}

	input := make([]ID, 0, len(next.Input)-k+len(current.Input))
	input = append(input, next.Input[:len(next.Input)-k]...)
	input = append(input, current.Input...)

	output := make([]ID, 0, len(current.Output)-k+len(next.Output))
	output = append(output, current.Output[:len(current.Output)-k]...)
	output = append(output, next.Output...)

	merged := make(Table, len(current.Types)+len(next.Types))
	for id, t := range current.Types {
		merged[id] = t
	}
	for id, t := range next.Types {
		merged[id] = t
	}

	return Signature{
		Input:  input,
		Output: output,
		Types:  merged.reachable(input, output),
	}, nil
}

// Sequence folds sigs left to right with Compose. The empty sequence has
// the empty effect.
func Sequence(sigs ...Signature) (Signature, error) {
	if len(sigs) == 0 {
		return Empty(), nil
	}
	acc := sigs[0]
	for i, sig := range sigs[1:] {
		var err error
		acc, err = Compose(acc, sig)
		if err != nil {
			return Signature{}, fmt.Errorf("element %d: %w", i+1, err)
		}
	}
	return acc, nil
}

// Collect accumulates independent signatures, such as the elements of a
// tuple, without pairing outputs against inputs. Each element is shifted
// past the identifiers used by the elements before it. The combined
// signature has the concatenated inputs, no outputs and the union of all
// tables; shifted holds each element as renumbered.
func Collect(elems ...Signature) (combined Signature, shifted []Signature) {
	combined = Empty()
	shifted = make([]Signature, len(elems))
	for i, elem := range elems {
		s := elem.Shift(combined.Next())
		shifted[i] = s
		combined.Input = append(combined.Input, s.Input...)
		for id, t := range s.Types {
			combined.Types[id] = t
		}
	}
	return combined, shifted
}

// ---------------------------------------------------------------------------
// Structural compatibility
// ---------------------------------------------------------------------------

// Compatible reports whether value a described in ta can stand for value b
// described in tb. Atomic kinds need only agree on the tag; composite
// kinds must agree on the shape of every nested effect, element by
// element and in order.
func Compatible(ta Table, a ID, tb Table, b ID) bool {
	x, ok := ta[a]
	if !ok {
		return false
	}
	y, ok := tb[b]
	if !ok {
		return false
	}
	if x.Kind != y.Kind {
		return false
	}
	switch x.Kind {
	case KindArray, KindWrapped:
		if x.Inner == nil || y.Inner == nil {
			return x.Inner == y.Inner
		}
		return compatibleEffects(ta, *x.Inner, tb, *y.Inner)
	case KindTuple:
		if len(x.Elems) != len(y.Elems) {
			return false
		}
		for i := range x.Elems {
			if !compatibleEffects(ta, x.Elems[i], tb, y.Elems[i]) {
				return false
			}
		}
	}
	return true
}

func compatibleEffects(ta Table, x Effect, tb Table, y Effect) bool {
	if len(x.Input) != len(y.Input) || len(x.Output) != len(y.Output) {
		return false
	}
	for i := range x.Input {
		if !Compatible(ta, x.Input[i], tb, y.Input[i]) {
			return false
		}
	}
	for i := range x.Output {
		if !Compatible(ta, x.Output[i], tb, y.Output[i]) {
			return false
		}
	}
	return true
}
