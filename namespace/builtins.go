package namespace

import (
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/chazu/stackfx/effect"
	"github.com/chazu/stackfx/vm"
)

// ErrDivisionByZero is returned by div when the divisor is zero.
var ErrDivisionByZero = errors.New("division by zero")

// SignatureOf builds the signature of a word that consumes values of the
// in kinds and produces values of the out kinds, both bottom first. Only
// atomic kinds are allowed.
func SignatureOf(in, out []effect.Kind) effect.Signature {
	sig := effect.Signature{
		Input:  make([]effect.ID, 0, len(in)),
		Output: make([]effect.ID, 0, len(out)),
		Types:  make(effect.Table, len(in)+len(out)),
	}
	id := effect.ID(0)
	for _, k := range in {
		sig.Input = append(sig.Input, id)
		sig.Types[id] = effect.Atomic(k)
		id++
	}
	for _, k := range out {
		sig.Output = append(sig.Output, id)
		sig.Types[id] = effect.Atomic(k)
		id++
	}
	return sig
}

var (
	num   = effect.KindNumber
	boo   = effect.KindBoolean
	str   = effect.KindString
	kinds = func(ks ...effect.Kind) []effect.Kind { return ks }
)

type builtin struct {
	name string
	doc  string
	in   []effect.Kind
	out  []effect.Kind
	fn   vm.Action
}

var builtins = []builtin{
	{"add", "Sum of two numbers.", kinds(num, num), kinds(num), arith(func(a, b float64) (float64, error) { return a + b, nil })},
	{"sub", "Difference a - b of two numbers.", kinds(num, num), kinds(num), arith(func(a, b float64) (float64, error) { return a - b, nil })},
	{"mul", "Product of two numbers.", kinds(num, num), kinds(num), arith(func(a, b float64) (float64, error) { return a * b, nil })},
	{"div", "Quotient a / b of two numbers. Fails when b is zero.", kinds(num, num), kinds(num), arith(func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, ErrDivisionByZero
		}
		return a / b, nil
	})},
	{"neg", "Negates a number.", kinds(num), kinds(num), func(st *vm.Stack) error {
		a, err := st.PopNumber()
		if err != nil {
			return err
		}
		st.Push(vm.NewNumber(-a))
		return nil
	}},

	{"lt", "Whether a < b.", kinds(num, num), kinds(boo), compare(func(a, b float64) bool { return a < b })},
	{"gt", "Whether a > b.", kinds(num, num), kinds(boo), compare(func(a, b float64) bool { return a > b })},
	{"eq", "Whether two numbers are equal.", kinds(num, num), kinds(boo), compare(func(a, b float64) bool { return a == b })},

	{"not", "Boolean negation.", kinds(boo), kinds(boo), func(st *vm.Stack) error {
		a, err := st.PopBool()
		if err != nil {
			return err
		}
		st.Push(vm.NewBoolean(!a))
		return nil
	}},
	{"and", "Boolean conjunction.", kinds(boo, boo), kinds(boo), logic(func(a, b bool) bool { return a && b })},
	{"or", "Boolean disjunction.", kinds(boo, boo), kinds(boo), logic(func(a, b bool) bool { return a || b })},

	{"concat", "Joins two strings.", kinds(str, str), kinds(str), func(st *vm.Stack) error {
		b, err := st.PopString()
		if err != nil {
			return err
		}
		a, err := st.PopString()
		if err != nil {
			return err
		}
		st.Push(vm.NewString(a + b))
		return nil
	}},
	{"len", "Number of characters in a string.", kinds(str), kinds(num), func(st *vm.Stack) error {
		a, err := st.PopString()
		if err != nil {
			return err
		}
		st.Push(vm.NewNumber(float64(utf8.RuneCountInString(a))))
		return nil
	}},
	{"str", "Formats a number as a string.", kinds(num), kinds(str), func(st *vm.Stack) error {
		a, err := st.PopNumber()
		if err != nil {
			return err
		}
		st.Push(vm.NewString(strconv.FormatFloat(a, 'g', -1, 64)))
		return nil
	}},
}

// Builtins returns a new registry holding the builtin words.
func Builtins() *Registry {
	r := New()
	for _, b := range builtins {
		err := r.Register(&Entry{
			Name:      b.name,
			Doc:       b.doc,
			Signature: SignatureOf(b.in, b.out),
			Action:    b.fn,
		})
		if err != nil {
			panic(fmt.Sprintf("namespace: builtin %s: %v", b.name, err))
		}
	}
	return r
}

// pop2 pops b then a, so that a was pushed first.
func pop2[T any](pop func() (T, error)) (a, b T, err error) {
	if b, err = pop(); err != nil {
		return
	}
	a, err = pop()
	return
}

func arith(fn func(a, b float64) (float64, error)) vm.Action {
	return func(st *vm.Stack) error {
		a, b, err := pop2(st.PopNumber)
		if err != nil {
			return err
		}
		r, err := fn(a, b)
		if err != nil {
			return err
		}
		st.Push(vm.NewNumber(r))
		return nil
	}
}

func compare(fn func(a, b float64) bool) vm.Action {
	return func(st *vm.Stack) error {
		a, b, err := pop2(st.PopNumber)
		if err != nil {
			return err
		}
		st.Push(vm.NewBoolean(fn(a, b)))
		return nil
	}
}

func logic(fn func(a, b bool) bool) vm.Action {
	return func(st *vm.Stack) error {
		a, b, err := pop2(st.PopBool)
		if err != nil {
			return err
		}
		st.Push(vm.NewBoolean(fn(a, b)))
		return nil
	}
}
