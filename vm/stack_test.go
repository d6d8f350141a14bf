package vm

import (
	"errors"
	"testing"

	"github.com/chazu/stackfx/compiler"
	"github.com/chazu/stackfx/effect"
)

func TestStackPushPop(t *testing.T) {
	st := NewStack(NewNumber(1))
	st.Push(NewNumber(2), NewNumber(3))
	if st.Len() != 3 {
		t.Fatalf("Len = %d, want 3", st.Len())
	}
	for _, want := range []float64{3, 2, 1} {
		got, err := st.PopNumber()
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("PopNumber = %v, want %v", got, want)
		}
	}
	if _, err := st.Pop(); !errors.Is(err, compiler.ErrArityMismatch) {
		t.Errorf("Pop on empty stack: err = %v, want arity mismatch", err)
	}
}

func TestStackChildFallsThrough(t *testing.T) {
	parent := NewStack(NewNumber(1), NewNumber(2))
	child := parent.Child()
	child.Push(NewString("c"))

	if child.Len() != 1 {
		t.Errorf("child Len = %d, want 1", child.Len())
	}
	if s, err := child.PopString(); err != nil || s != "c" {
		t.Errorf("PopString = %q, %v", s, err)
	}
	if n, err := child.PopNumber(); err != nil || n != 2 {
		t.Errorf("PopNumber from parent = %v, %v", n, err)
	}
	if parent.Len() != 1 {
		t.Errorf("parent Len = %d, want 1", parent.Len())
	}
	if len(child.Values()) != 0 {
		t.Errorf("child Values = %v, want none", child.Values())
	}
}

func TestStackPopKindMismatch(t *testing.T) {
	st := NewStack(NewBoolean(true))
	_, err := st.PopNumber()
	if !errors.Is(err, compiler.ErrTypeMismatch) {
		t.Fatalf("err = %v, want type mismatch", err)
	}
	var me *effect.MismatchError
	if !errors.As(err, &me) || me.Expected != "number" || me.Actual != "boolean" {
		t.Errorf("mismatch = %+v", me)
	}

	st.Push(NewNumber(1))
	if _, err := st.PopBool(); !errors.Is(err, compiler.ErrTypeMismatch) {
		t.Errorf("PopBool on number: err = %v", err)
	}
}

func TestStackValuesIsCopy(t *testing.T) {
	st := NewStack(NewNumber(1))
	vals := st.Values()
	vals[0] = NewNumber(99)
	if n, _ := st.PopNumber(); n != 1 {
		t.Errorf("stack was modified through Values: got %v", n)
	}
}
