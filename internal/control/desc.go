package control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "huddle.control.v1.Control"

// Method names.
const (
	MethodGetStatus      = "GetStatus"
	MethodListContacts   = "ListContacts"
	MethodListChats      = "ListChats"
	MethodListMessages   = "ListMessages"
	MethodSendMessage    = "SendMessage"
	MethodReceiveMessage = "ReceiveMessage"
	MethodMarkRead       = "MarkRead"
	MethodWatchEvents    = "WatchEvents"
)

// ControlServer is the server API. Requests and responses are well-known
// protobuf types, so no generated code is needed.
type ControlServer interface {
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListContacts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListChats(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListMessages(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SendMessage(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReceiveMessage(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MarkRead(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WatchEvents(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func newEmpty() *emptypb.Empty   { return &emptypb.Empty{} }
func newStruct() *structpb.Struct { return &structpb.Struct{} }

func unary[Req proto.Message](name string, newReq func() Req, call func(ControlServer, context.Context, Req) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ControlServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(ControlServer), ctx, req.(Req))
			})
		},
	}
}

func watchEventsHandler(srv any, stream grpc.ServerStream) error {
	in := newEmpty()
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ControlServer).WatchEvents(in, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}

// ServiceDesc describes the control service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodGetStatus, newEmpty, ControlServer.GetStatus),
		unary(MethodListContacts, newStruct, ControlServer.ListContacts),
		unary(MethodListChats, newEmpty, ControlServer.ListChats),
		unary(MethodListMessages, newStruct, ControlServer.ListMessages),
		unary(MethodSendMessage, newStruct, ControlServer.SendMessage),
		unary(MethodReceiveMessage, newStruct, ControlServer.ReceiveMessage),
		unary(MethodMarkRead, newStruct, ControlServer.MarkRead),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    MethodWatchEvents,
			Handler:       watchEventsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "huddle/control/v1/control.proto",
}
