package server

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/chazu/stackfx"
	"github.com/chazu/stackfx/namespace"
)

// newTestEngine returns an engine over the builtins plus a couple of
// defined words.
func newTestEngine(t *testing.T) *stackfx.Engine {
	t.Helper()
	reg := namespace.Builtins()
	if _, err := reg.Define("double", "2 mul", "Doubles a number."); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Define("greeting", "'hello'", ""); err != nil {
		t.Fatal(err)
	}
	return stackfx.NewEngine(reg)
}

func newTestEvalService(t *testing.T) *EvalService {
	t.Helper()
	engine := newTestEngine(t)
	return NewEvalService(engine, NewSessionStore(engine))
}

// request builds a Connect request carrying fields.
func request(t *testing.T, fields map[string]any) *connect.Request[structpb.Struct] {
	t.Helper()
	msg, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatal(err)
	}
	return connect.NewRequest(msg)
}

// stringList returns the strings of list field name of s.
func stringList(s *structpb.Struct, name string) []string {
	var out []string
	for _, v := range s.GetFields()[name].GetListValue().GetValues() {
		out = append(out, v.GetStringValue())
	}
	return out
}

func bg() context.Context {
	return context.Background()
}
