package compiler

import (
	"errors"
	"fmt"

	"github.com/chazu/stackfx/effect"
)

// Error kinds. Every error reported by parsing, type checking or
// execution matches exactly one of them with errors.Is.
var (
	ErrParse         = errors.New("parse error")
	ErrUnknownName   = errors.New("unknown name")
	ErrTypeMismatch  = effect.ErrTypeMismatch
	ErrArityMismatch = errors.New("arity mismatch")
	ErrRuntime       = errors.New("runtime error")
)

// Error is a failure attributed to one token of a program.
type Error struct {
	Kind   error    // one of the Err* kinds above
	Pos    Position // start of the offending token
	Token  string   // the offending token's text, if any
	Detail string   // extra message when Err is nil
	Err    error    // underlying cause, if any
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	switch {
	case e.Err != nil:
		msg = e.Err.Error()
	case e.Detail != "":
		msg = msg + ": " + e.Detail
	}
	return fmt.Sprintf("line %d, column %d: %s", e.Pos.Line, e.Pos.Column, msg)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the error kind err matches, or nil.
func KindOf(err error) error {
	for _, kind := range []error{ErrParse, ErrUnknownName, ErrTypeMismatch, ErrArityMismatch, ErrRuntime} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// errorAt builds an Error for node n.
func errorAt(kind error, n Node, token string, cause error) *Error {
	return &Error{Kind: kind, Pos: n.Span().Start, Token: token, Err: cause}
}

// ErrorAt builds an Error positioned at node n. The kind is taken from
// cause when it already carries one, and is ErrRuntime otherwise.
func ErrorAt(n Node, token string, cause error) error {
	var ce *Error
	if errors.As(cause, &ce) {
		return cause
	}
	kind := KindOf(cause)
	if kind == nil {
		kind = ErrRuntime
	}
	return errorAt(kind, n, token, cause)
}
