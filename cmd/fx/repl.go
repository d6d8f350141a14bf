package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/chazu/stackfx"
	"github.com/chazu/stackfx/compiler"
	"github.com/chazu/stackfx/vm"
)

const (
	prompt       = "\033[32m>\033[0m "
	resultPrompt = "\033[31m=\033[0m "
)

// repl evaluates lines against an engine. Words defined with :def stay
// in the engine for the rest of the session.
type repl struct {
	engine *stackfx.Engine
	out    io.Writer
}

func runREPL(engine *stackfx.Engine, historyFile string) error {
	r := &repl{engine: engine}
	l, err := readline.NewEx(&readline.Config{
		Prompt:            prompt,
		HistoryFile:       historyFile,
		AutoComplete:      completer{engine},
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return err
	}
	defer l.Close()
	r.out = l.Stdout()

	fmt.Fprintln(r.out, "stackfx REPL (type 'exit' to quit, ':help' for commands)")
	for {
		line, err := l.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if r.eval(line) {
			return nil
		}
	}
}

// eval handles one input line. It reports whether the session should end.
func (r *repl) eval(line string) (quit bool) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return false
	case line == "exit" || line == "quit":
		return true
	case strings.HasPrefix(line, ":"):
		r.command(line)
		return false
	}

	sig, vals, err := r.engine.Eval(line)
	if err != nil {
		r.printCaret(err)
		r.printError(err)
		return false
	}
	fmt.Fprintf(r.out, "%s%s\n", resultPrompt, vm.FormatValues(vals))
	fmt.Fprintf(r.out, "  ( %s )\n", sig)
	return false
}

// command handles REPL meta-commands.
func (r *repl) command(line string) {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case ":help", ":h", ":?":
		fmt.Fprintln(r.out, "REPL Commands:")
		fmt.Fprintln(r.out, "  :help, :h, :?           Show this help")
		fmt.Fprintln(r.out, "  :type <program>         Show the stack effect without running")
		fmt.Fprintln(r.out, "  :def <name> <body...>   Define a word")
		fmt.Fprintln(r.out, "  :words [prefix]         List words")
		fmt.Fprintln(r.out, "  :doc <name>             Show a word's documentation")
		fmt.Fprintln(r.out, "  exit, quit              Exit REPL")
	case ":type", ":t":
		sig, err := r.engine.TypeOf(rest)
		if err != nil {
			r.printError(err)
			return
		}
		fmt.Fprintf(r.out, "( %s )\n", sig)
	case ":def":
		name, body, _ := strings.Cut(rest, " ")
		if name == "" {
			fmt.Fprintln(r.out, "usage: :def <name> <body...>")
			return
		}
		entry, err := r.engine.Define(name, strings.TrimSpace(body), "")
		if err != nil {
			r.printError(err)
			return
		}
		fmt.Fprintf(r.out, "%s ( %s )\n", entry.Name, entry.Signature)
	case ":words", ":w":
		for _, e := range r.engine.Namespace().Prefix(rest) {
			fmt.Fprintf(r.out, "  %-12s ( %s )\n", e.Name, e.Signature)
		}
	case ":doc":
		e, ok := r.engine.Namespace().Lookup(rest)
		if !ok {
			fmt.Fprintf(r.out, "unknown word %q\n", rest)
			return
		}
		fmt.Fprintf(r.out, "%s ( %s )\n", e.Name, e.Signature)
		if e.Doc != "" {
			fmt.Fprintf(r.out, "  %s\n", e.Doc)
		}
		if e.Body != "" {
			fmt.Fprintf(r.out, "  = %s\n", e.Body)
		}
	default:
		fmt.Fprintf(r.out, "Unknown command: %s (type :help for commands)\n", cmd)
	}
}

// printCaret points at the offending column of the line just entered.
func (r *repl) printCaret(err error) {
	var ce *compiler.Error
	if errors.As(err, &ce) && ce.Pos.Line == 1 && ce.Pos.Column > 0 {
		// the prompt takes two columns
		fmt.Fprintf(r.out, "%s^\n", strings.Repeat(" ", ce.Pos.Column+1))
	}
}

func (r *repl) printError(err error) {
	fmt.Fprintf(r.out, "Error: %v\n", err)
}

// completer completes word names from the engine's current namespace.
type completer struct {
	engine *stackfx.Engine
}

// Do implements readline.AutoCompleter.
func (c completer) Do(line []rune, pos int) ([][]rune, int) {
	start := pos
	for start > 0 && !isBreak(line[start-1]) {
		start--
	}
	prefix := string(line[start:pos])

	var out [][]rune
	for _, e := range c.engine.Namespace().Prefix(prefix) {
		out = append(out, []rune(e.Name[len(prefix):]+" "))
	}
	return out, len([]rune(prefix))
}

func isBreak(r rune) bool {
	return r == ' ' || r == '\t' || compiler.IsDelimiter(r)
}
