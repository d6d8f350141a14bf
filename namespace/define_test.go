package namespace

import (
	"errors"
	"testing"

	"github.com/chazu/stackfx/compiler"
	"github.com/chazu/stackfx/vm"
)

func TestDefine(t *testing.T) {
	r := Builtins()
	e, err := r.Define("square-plus", "[ ] 1 add", "")
	if err == nil {
		t.Fatalf("Define with an array feeding add succeeded: %+v", e)
	}
	if !errors.Is(err, compiler.ErrTypeMismatch) {
		t.Errorf("err = %v, want type mismatch", err)
	}

	e, err = r.Define("inc", "1  add", "Adds one.")
	if err != nil {
		t.Fatal(err)
	}
	if e.Body != "1 add" {
		t.Errorf("Body = %q, want normalized text", e.Body)
	}
	if e.Signature.String() != "number -- number" {
		t.Errorf("Signature = %s", e.Signature)
	}

	vals, err := vm.Run("41 inc", r)
	if err != nil {
		t.Fatal(err)
	}
	if got := vm.FormatValues(vals); got != "42" {
		t.Errorf("41 inc = %s", got)
	}

	sig, err := compiler.TypeOf("inc inc", r)
	if err != nil {
		t.Fatal(err)
	}
	if sig.String() != "number -- number" {
		t.Errorf("TypeOf(inc inc) = %s", sig)
	}
}

func TestDefineComposite(t *testing.T) {
	r := Builtins()
	if _, err := r.Define("pair", "(1, 'one')", ""); err != nil {
		t.Fatal(err)
	}
	vals, err := vm.Run("pair pair", r)
	if err != nil {
		t.Fatal(err)
	}
	if got := vm.FormatValues(vals); got != "(1, 'one') (1, 'one')" {
		t.Errorf("pair pair = %s", got)
	}
}

func TestDefineBindsDependenciesEagerly(t *testing.T) {
	r := Builtins()
	if _, err := r.Define("step", "1 add", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Define("twostep", "step step", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Define("step", "10 add", ""); err != nil {
		t.Fatal(err)
	}
	// redefining in terms of itself uses the previous definition
	if _, err := r.Define("step", "step step", ""); err != nil {
		t.Fatal(err)
	}

	vals, err := vm.Run("0 twostep 0 step", r)
	if err != nil {
		t.Fatal(err)
	}
	if got := vm.FormatValues(vals); got != "2 20" {
		t.Errorf("got %s, want 2 20", got)
	}
}

func TestDefineErrors(t *testing.T) {
	r := Builtins()
	tests := []struct {
		name, body string
		kind       error
	}{
		{"x", "[1", compiler.ErrParse},
		{"x", "nope", compiler.ErrUnknownName},
		{"x", "x", compiler.ErrUnknownName},
		{"x", "'a' neg", compiler.ErrTypeMismatch},
	}
	for _, tc := range tests {
		_, err := r.Define(tc.name, tc.body, "")
		if !errors.Is(err, tc.kind) {
			t.Errorf("Define(%q, %q): err = %v, want %v", tc.name, tc.body, err, tc.kind)
		}
	}
	if _, err := r.Define("1", "2", ""); err == nil {
		t.Error("Define with a numeric name succeeded")
	}
	if _, ok := r.Lookup("x"); ok {
		t.Error("failed definitions left an entry behind")
	}
}

func TestDefinedWordErrorsAtUseSite(t *testing.T) {
	r := Builtins()
	if _, err := r.Define("half", "2 div", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Define("recip", "1 [] neg", ""); err == nil {
		t.Fatal("expected type error for recip")
	}
	if _, err := r.Define("zero-div", "0 div", ""); err != nil {
		t.Fatal(err)
	}

	_, err := vm.Run("4 half 3 zero-div", r)
	if !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("err = %v, want division by zero", err)
	}
	var ce *compiler.Error
	if !errors.As(err, &ce) {
		t.Fatalf("err %T is not positioned", err)
	}
	if ce.Token != "zero-div" || ce.Pos.Column != 10 {
		t.Errorf("error at %q column %d, want zero-div column 10", ce.Token, ce.Pos.Column)
	}

	_, err = vm.Run("half", r)
	if !errors.Is(err, compiler.ErrArityMismatch) {
		t.Errorf("err = %v, want arity mismatch", err)
	}
}
