package namespace

import (
	"errors"
	"fmt"

	"github.com/chazu/stackfx/compiler"
	"github.com/chazu/stackfx/effect"
	"github.com/chazu/stackfx/vm"
)

// Define adds a word whose behavior is the program body. The body is type
// checked against r as it stands now, and the words it references are
// bound at this point: redefining one of them later does not change the
// new word.
func (r *Registry) Define(name, body, doc string) (*Entry, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("namespace: invalid name %q", name)
	}
	nodes, err := compiler.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("define %s: %w", name, err)
	}
	sig, err := compiler.NewChecker(r).TypeOf(nodes)
	if err != nil {
		return nil, fmt.Errorf("define %s: %w", name, err)
	}

	deps := make(bindings)
	compiler.Walk(nodes, func(n compiler.Node) bool {
		if ref, ok := n.(*compiler.Ref); ok {
			if action, ok := r.Action(ref.Name); ok {
				deps[ref.Name] = action
			}
		}
		return true
	})

	e := &Entry{
		Name:      name,
		Doc:       doc,
		Body:      compiler.Format(nodes),
		Signature: sig,
		Action:    bodyAction(name, nodes, vm.NewInterpreter(deps)),
	}
	if err := r.Register(e); err != nil {
		return nil, err
	}
	log.Infof("defined %s: %s", name, sig)
	return e, nil
}

// bindings is a fixed name to action map.
type bindings map[string]vm.Action

func (b bindings) Action(name string) (vm.Action, bool) {
	a, ok := b[name]
	return a, ok
}

// bodyAction runs nodes directly on the caller's stack.
func bodyAction(name string, nodes []compiler.Node, interp *vm.Interpreter) vm.Action {
	return func(st *vm.Stack) error {
		if err := interp.Exec(st, nodes); err != nil {
			return unposition(name, err)
		}
		return nil
	}
}

// unposition strips the body-relative position from err so that the
// caller reports it at the word's own use site.
func unposition(name string, err error) error {
	var ce *compiler.Error
	if !errors.As(err, &ce) {
		return fmt.Errorf("in %s: %w", name, err)
	}
	if ce.Err != nil {
		return fmt.Errorf("in %s: %w", name, ce.Err)
	}
	return fmt.Errorf("in %s: %w: %s", name, ce.Kind, ce.Detail)
}

// declared checks a word's inferred signature against declared input and
// output kind names. A nil list is not checked.
func declared(sig effect.Signature, input, output []string) error {
	check := func(side string, ids []effect.ID, names []string) error {
		if names == nil {
			return nil
		}
		got := make([]string, len(ids))
		for i, id := range ids {
			got[i] = sig.Describe(id)
		}
		if len(got) != len(names) {
			return fmt.Errorf("%s: declared %v, inferred %v", side, names, got)
		}
		for i := range names {
			if got[i] != names[i] {
				return fmt.Errorf("%s: declared %v, inferred %v", side, names, got)
			}
		}
		return nil
	}
	if err := check("input", sig.Input, input); err != nil {
		return err
	}
	return check("output", sig.Output, output)
}
