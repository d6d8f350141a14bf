package server

import (
	"context"
	"errors"

	"connectrpc.com/connect"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// grpcEvalServer is the handler type of evalServiceDesc.
type grpcEvalServer interface {
	methods() map[string]unaryMethod
}

// evalServiceDesc describes the eval service to grpc-go. It is written by
// hand because every method shares the Struct message type.
var evalServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*grpcEvalServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "TypeOf", Handler: grpcHandler(TypeOfProcedure)},
		{MethodName: "Run", Handler: grpcHandler(RunProcedure)},
		{MethodName: "Define", Handler: grpcHandler(DefineProcedure)},
		{MethodName: "CreateSession", Handler: grpcHandler(CreateSessionProcedure)},
		{MethodName: "DestroySession", Handler: grpcHandler(DestroySessionProcedure)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "stackfx/v1/eval.proto",
}

// RegisterGRPC registers the eval service on a grpc-go server.
func RegisterGRPC(gs *grpc.Server, svc *EvalService) {
	gs.RegisterService(&evalServiceDesc, svc)
}

func grpcHandler(procedure string) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		method := srv.(grpcEvalServer).methods()[procedure]
		call := func(ctx context.Context, req any) (any, error) {
			out, err := method(ctx, req.(*structpb.Struct))
			if err != nil {
				return nil, toGRPCError(err)
			}
			return out, nil
		}
		if interceptor == nil {
			return call(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: procedure}
		return interceptor(ctx, in, info, call)
	}
}

// toGRPCError converts a Connect error into a gRPC status. Connect codes
// share their numbering with gRPC codes.
func toGRPCError(err error) error {
	var cerr *connect.Error
	if errors.As(err, &cerr) {
		return status.Error(codes.Code(cerr.Code()), cerr.Message())
	}
	return status.Error(codes.Internal, err.Error())
}
