package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// The service carries google.protobuf.Struct in both directions, so it is
// described by hand instead of generated from a .proto file. Every unary
// reply has the shape {"status": {"success", "message", "code"}, ...payload}.

const ServiceName = "roomwatch.v1.RoomWatch"

const (
	MethodPostReading         = "/" + ServiceName + "/PostReading"
	MethodUpdateThresholds    = "/" + ServiceName + "/UpdateThresholds"
	MethodListAlerts          = "/" + ServiceName + "/ListAlerts"
	MethodSetAlertHandled     = "/" + ServiceName + "/SetAlertHandled"
	MethodDeleteAlert         = "/" + ServiceName + "/DeleteAlert"
	MethodDeleteHandledAlerts = "/" + ServiceName + "/DeleteHandledAlerts"
	MethodPostLimiter         = "/" + ServiceName + "/PostLimiter"
	MethodWatchChanges        = "/" + ServiceName + "/WatchChanges"
)

type RoomWatchService interface {
	PostReading(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateThresholds(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAlerts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetAlertHandled(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteAlert(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteHandledAlerts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PostLimiter(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WatchChanges(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error
}

type unaryCall func(RoomWatchService, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(call unaryCall, fullMethod string) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RoomWatchService), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RoomWatchService), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchChangesHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(RoomWatchService).WatchChanges(in, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

var RoomWatchServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RoomWatchService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PostReading", Handler: unaryHandler(RoomWatchService.PostReading, MethodPostReading)},
		{MethodName: "UpdateThresholds", Handler: unaryHandler(RoomWatchService.UpdateThresholds, MethodUpdateThresholds)},
		{MethodName: "ListAlerts", Handler: unaryHandler(RoomWatchService.ListAlerts, MethodListAlerts)},
		{MethodName: "SetAlertHandled", Handler: unaryHandler(RoomWatchService.SetAlertHandled, MethodSetAlertHandled)},
		{MethodName: "DeleteAlert", Handler: unaryHandler(RoomWatchService.DeleteAlert, MethodDeleteAlert)},
		{MethodName: "DeleteHandledAlerts", Handler: unaryHandler(RoomWatchService.DeleteHandledAlerts, MethodDeleteHandledAlerts)},
		{MethodName: "PostLimiter", Handler: unaryHandler(RoomWatchService.PostLimiter, MethodPostLimiter)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "WatchChanges", Handler: watchChangesHandler, ServerStreams: true},
	},
}

func RegisterRoomWatchServer(s grpc.ServiceRegistrar, srv RoomWatchService) {
	s.RegisterService(&RoomWatchServiceDesc, srv)
}
