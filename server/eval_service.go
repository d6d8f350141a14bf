package server

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/chazu/stackfx"
	"github.com/chazu/stackfx/compiler"
	"github.com/chazu/stackfx/effect"
	"github.com/chazu/stackfx/vm"
)

// Service and procedure names of the eval service.
const (
	ServiceName = "stackfx.v1.EvalService"

	TypeOfProcedure         = "/" + ServiceName + "/TypeOf"
	RunProcedure            = "/" + ServiceName + "/Run"
	DefineProcedure         = "/" + ServiceName + "/Define"
	CreateSessionProcedure  = "/" + ServiceName + "/CreateSession"
	DestroySessionProcedure = "/" + ServiceName + "/DestroySession"
)

// EvalService type checks and runs programs. Every method takes and
// returns a google.protobuf.Struct so the service needs no generated code.
type EvalService struct {
	engine   *stackfx.Engine
	sessions *SessionStore
}

// NewEvalService creates an EvalService.
func NewEvalService(engine *stackfx.Engine, sessions *SessionStore) *EvalService {
	return &EvalService{engine: engine, sessions: sessions}
}

// unaryMethod is the transport independent form of a service method.
type unaryMethod func(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

// methods returns the service methods keyed by procedure.
func (s *EvalService) methods() map[string]unaryMethod {
	return map[string]unaryMethod{
		TypeOfProcedure:         s.typeOf,
		RunProcedure:            s.run,
		DefineProcedure:         s.define,
		CreateSessionProcedure:  s.createSession,
		DestroySessionProcedure: s.destroySession,
	}
}

// TypeOf returns the stack effect of a program.
//
// Request: {program, session?}. Response: {input, output, types, notation}.
func (s *EvalService) TypeOf(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	return serveConnect(ctx, req, "TypeOf", s.typeOf)
}

// Run type checks a program and executes it on an empty stack.
//
// Request: {program, session?}. Response: {values, display, notation}.
func (s *EvalService) Run(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	return serveConnect(ctx, req, "Run", s.run)
}

// Define adds a word to a session's namespace.
//
// Request: {session, name, body, doc?}. Response: {name, notation}.
func (s *EvalService) Define(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	return serveConnect(ctx, req, "Define", s.define)
}

// CreateSession starts a session. Request: {name?}. Response: {session}.
func (s *EvalService) CreateSession(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	return serveConnect(ctx, req, "CreateSession", s.createSession)
}

// DestroySession ends a session. Request: {session}. Response: {}.
func (s *EvalService) DestroySession(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	return serveConnect(ctx, req, "DestroySession", s.destroySession)
}

// serveConnect runs fn for a Connect request, tagging the exchange with a
// request id for the logs and the response headers.
func serveConnect(ctx context.Context, req *connect.Request[structpb.Struct], method string, fn unaryMethod) (*connect.Response[structpb.Struct], error) {
	id := uuid.NewString()
	log.Debugf("[%s] %s %s", id, method, req.Peer().Addr)

	out, err := fn(ctx, req.Msg)
	if err != nil {
		log.Infof("[%s] %s failed: %s", id, method, err)
		return nil, err
	}
	resp := connect.NewResponse(out)
	resp.Header().Set("X-Request-Id", id)
	return resp, nil
}

func (s *EvalService) typeOf(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	program, err := stringField(in, "program", true)
	if err != nil {
		return nil, err
	}
	engine, err := s.engineFor(in)
	if err != nil {
		return nil, err
	}

	sig, err := engine.TypeOf(program)
	if err != nil {
		return nil, toConnectError(err)
	}
	return signatureStruct(sig)
}

func (s *EvalService) run(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	program, err := stringField(in, "program", true)
	if err != nil {
		return nil, err
	}
	engine, err := s.engineFor(in)
	if err != nil {
		return nil, err
	}

	sig, vals, err := engine.Eval(program)
	if err != nil {
		return nil, toConnectError(err)
	}
	out, err := structpb.NewStruct(map[string]any{
		"values":   vm.Interfaces(vals),
		"display":  vm.FormatValues(vals),
		"notation": sig.String(),
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return out, nil
}

func (s *EvalService) define(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := stringField(in, "session", true)
	if err != nil {
		return nil, err
	}
	session, ok := s.sessions.Get(id)
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("session %q not found", id))
	}
	name, err := stringField(in, "name", true)
	if err != nil {
		return nil, err
	}
	body, err := stringField(in, "body", true)
	if err != nil {
		return nil, err
	}
	doc, err := stringField(in, "doc", false)
	if err != nil {
		return nil, err
	}

	entry, err := session.Engine.Define(name, body, doc)
	if err != nil {
		if compiler.KindOf(err) == nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		return nil, toConnectError(err)
	}
	out, err := structpb.NewStruct(map[string]any{
		"name":     entry.Name,
		"notation": entry.Signature.String(),
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return out, nil
}

func (s *EvalService) createSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	name, err := stringField(in, "name", false)
	if err != nil {
		return nil, err
	}
	session := s.sessions.Create(name)
	log.Infof("session %s created", session.ID)
	return structpb.NewStruct(map[string]any{"session": session.ID})
}

func (s *EvalService) destroySession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := stringField(in, "session", true)
	if err != nil {
		return nil, err
	}
	if !s.sessions.Destroy(id) {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("session %q not found", id))
	}
	log.Infof("session %s destroyed", id)
	return &structpb.Struct{}, nil
}

// engineFor returns the engine of the session named in the request, or
// the shared engine when there is none.
func (s *EvalService) engineFor(in *structpb.Struct) (*stackfx.Engine, error) {
	id, err := stringField(in, "session", false)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return s.engine, nil
	}
	session, ok := s.sessions.Get(id)
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("session %q not found", id))
	}
	return session.Engine, nil
}

// stringField reads a string field of in. An empty string is a valid
// value; a missing required field is not.
func stringField(in *structpb.Struct, name string, required bool) (string, error) {
	v, ok := in.GetFields()[name]
	if !ok {
		if required {
			return "", connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%s is required", name))
		}
		return "", nil
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%s must be a string", name))
	}
	return sv.StringValue, nil
}

// signatureStruct renders sig for the wire. Ids are decimal strings in
// the types map since Struct keys are strings.
func signatureStruct(sig effect.Signature) (*structpb.Struct, error) {
	types := make(map[string]any, len(sig.Types))
	for id := range sig.Types {
		types[strconv.Itoa(int(id))] = sig.Describe(id)
	}
	out, err := structpb.NewStruct(map[string]any{
		"input":    describeAll(sig, sig.Input),
		"output":   describeAll(sig, sig.Output),
		"types":    types,
		"notation": sig.String(),
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return out, nil
}

func describeAll(sig effect.Signature, ids []effect.ID) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = sig.Describe(id)
	}
	return out
}

// toConnectError maps an error kind to a Connect code. Position details
// stay in the message.
func toConnectError(err error) error {
	var code connect.Code
	switch compiler.KindOf(err) {
	case compiler.ErrParse:
		code = connect.CodeInvalidArgument
	case compiler.ErrUnknownName:
		code = connect.CodeNotFound
	case compiler.ErrTypeMismatch, compiler.ErrArityMismatch:
		code = connect.CodeFailedPrecondition
	case compiler.ErrRuntime:
		code = connect.CodeAborted
	default:
		code = connect.CodeInternal
	}
	cerr := connect.NewError(code, err)
	var ce *compiler.Error
	if errors.As(err, &ce) {
		cerr.Meta().Set("X-Error-Line", strconv.Itoa(ce.Pos.Line))
		cerr.Meta().Set("X-Error-Column", strconv.Itoa(ce.Pos.Column))
	}
	return cerr
}
