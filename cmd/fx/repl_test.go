package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/chazu/stackfx"
	"github.com/chazu/stackfx/namespace"
)

func newTestREPL() (*repl, *bytes.Buffer) {
	var out bytes.Buffer
	return &repl{engine: stackfx.NewEngine(namespace.Builtins()), out: &out}, &out
}

func TestREPLEval(t *testing.T) {
	r, out := newTestREPL()

	if r.eval("1 2 add 'x'") {
		t.Fatal("eval should not quit")
	}
	got := out.String()
	if !strings.Contains(got, "3 'x'") {
		t.Errorf("output %q missing values", got)
	}
	if !strings.Contains(got, "( -- number string )") {
		t.Errorf("output %q missing effect", got)
	}
}

func TestREPLQuit(t *testing.T) {
	r, _ := newTestREPL()
	for _, line := range []string{"exit", "quit", "  exit  "} {
		if !r.eval(line) {
			t.Errorf("eval(%q) should quit", line)
		}
	}
	if r.eval("") {
		t.Error("empty line should not quit")
	}
}

func TestREPLError(t *testing.T) {
	r, out := newTestREPL()
	r.eval("1 'a' add")

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("output = %q, want caret and error lines", out.String())
	}
	// "> 1 'a' add": add starts at column 7, screen column 9
	if lines[0] != strings.Repeat(" ", 8)+"^" {
		t.Errorf("caret line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "Error: ") || !strings.Contains(lines[1], "type mismatch") {
		t.Errorf("error line = %q", lines[1])
	}
}

func TestREPLDefine(t *testing.T) {
	r, out := newTestREPL()

	r.eval(":def triple 3 mul")
	if got := out.String(); got != "triple ( number -- number )\n" {
		t.Errorf(":def output = %q", got)
	}

	out.Reset()
	r.eval("5 triple")
	if !strings.Contains(out.String(), "15") {
		t.Errorf("output %q, want 15", out.String())
	}

	out.Reset()
	r.eval(":def")
	if !strings.Contains(out.String(), "usage") {
		t.Errorf(":def without a name printed %q", out.String())
	}

	out.Reset()
	r.eval(":def bad nope")
	if !strings.Contains(out.String(), "unknown name") {
		t.Errorf(":def with an unknown word printed %q", out.String())
	}
}

func TestREPLCommands(t *testing.T) {
	r, out := newTestREPL()

	r.eval(":type add add")
	if got := out.String(); got != "( number number number -- number )\n" {
		t.Errorf(":type output = %q", got)
	}

	out.Reset()
	r.eval(":words c")
	if got := out.String(); !strings.Contains(got, "concat") || strings.Contains(got, "add") {
		t.Errorf(":words c output = %q", got)
	}

	out.Reset()
	r.eval(":doc neg")
	if got := out.String(); !strings.Contains(got, "neg ( number -- number )") || !strings.Contains(got, "Negates") {
		t.Errorf(":doc output = %q", got)
	}

	out.Reset()
	r.eval(":doc nope")
	if !strings.Contains(out.String(), "unknown word") {
		t.Errorf(":doc nope output = %q", out.String())
	}

	out.Reset()
	r.eval(":bogus")
	if !strings.Contains(out.String(), "Unknown command") {
		t.Errorf(":bogus output = %q", out.String())
	}

	out.Reset()
	r.eval(":help")
	if !strings.Contains(out.String(), ":def") {
		t.Errorf(":help output = %q", out.String())
	}
}

func TestCompleter(t *testing.T) {
	c := completer{stackfx.NewEngine(namespace.Builtins())}

	line := []rune("1 2 [a")
	cands, n := c.Do(line, len(line))
	if n != 1 {
		t.Errorf("length = %d, want 1", n)
	}
	var got []string
	for _, cand := range cands {
		got = append(got, string(cand))
	}
	if strings.Join(got, "|") != "dd |nd " {
		t.Errorf("candidates = %q", got)
	}

	line = []rune("1 ")
	cands, n = c.Do(line, len(line))
	if n != 0 || len(cands) != len(namespace.Builtins().All()) {
		t.Errorf("empty prefix: %d candidates, length %d", len(cands), n)
	}
}
