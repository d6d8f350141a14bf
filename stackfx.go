// Package stackfx is a small concatenative language with a static
// stack-effect checker.
//
// A program is a whitespace separated sequence of tokens: number, boolean
// and string literals, names drawn from a namespace, and the grouping
// forms [ ... ] (array), { ... } (wrapped) and ( a, b, ... ) (tuple).
// TypeOf computes what a program does to the stack without running it;
// Run executes it.
package stackfx

import (
	"github.com/chazu/stackfx/compiler"
	"github.com/chazu/stackfx/effect"
	"github.com/chazu/stackfx/vm"
)

// Namespace supplies the named entries a program refers to, for both type
// checking and execution. *namespace.Registry implements it.
type Namespace interface {
	compiler.Signatures
	vm.Bindings
}

// TypeOf returns the stack effect of program.
func TypeOf(program string, ns Namespace) (effect.Signature, error) {
	return compiler.TypeOf(program, ns)
}

// Run executes program on an empty stack and returns the values left on
// it, bottom first.
func Run(program string, ns Namespace) ([]vm.Value, error) {
	return vm.Run(program, ns)
}
