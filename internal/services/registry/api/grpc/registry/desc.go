package registry

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "gns.registry.v1.RegistryService"

// Method names of RegistryService.
const (
	MethodClaimDomain           = "ClaimDomain"
	MethodAttachSubdomain       = "AttachSubdomain"
	MethodChangeMetadata        = "ChangeMetadata"
	MethodChangeSubgraphID      = "ChangeSubgraphID"
	MethodDeleteSubdomain       = "DeleteSubdomain"
	MethodChangeAccountMetadata = "ChangeAccountMetadata"
	MethodGetDomainOwner        = "GetDomainOwner"
	MethodGetSubdomain          = "GetSubdomain"
	MethodGetPointer            = "GetPointer"
	MethodListEvents            = "ListEvents"
	MethodWatchEvents           = "WatchEvents"
)

// FullMethod returns the "/service/method" path of method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// RegistryServer is the server API of RegistryService. Every message is a
// google.protobuf.Struct.
type RegistryServer interface {
	ClaimDomain(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AttachSubdomain(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ChangeMetadata(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ChangeSubgraphID(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteSubdomain(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ChangeAccountMetadata(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetDomainOwner(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSubdomain(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPointer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListEvents(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WatchEvents(*structpb.Struct, grpc.ServerStream) error
}

type unaryMethod func(RegistryServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(RegistryServer), ctx, req.(*structpb.Struct))
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func watchEventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(RegistryServer).WatchEvents(in, stream)
}

// ServiceDesc describes RegistryService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RegistryServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler(MethodClaimDomain, RegistryServer.ClaimDomain),
		unaryHandler(MethodAttachSubdomain, RegistryServer.AttachSubdomain),
		unaryHandler(MethodChangeMetadata, RegistryServer.ChangeMetadata),
		unaryHandler(MethodChangeSubgraphID, RegistryServer.ChangeSubgraphID),
		unaryHandler(MethodDeleteSubdomain, RegistryServer.DeleteSubdomain),
		unaryHandler(MethodChangeAccountMetadata, RegistryServer.ChangeAccountMetadata),
		unaryHandler(MethodGetDomainOwner, RegistryServer.GetDomainOwner),
		unaryHandler(MethodGetSubdomain, RegistryServer.GetSubdomain),
		unaryHandler(MethodGetPointer, RegistryServer.GetPointer),
		unaryHandler(MethodListEvents, RegistryServer.ListEvents),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    MethodWatchEvents,
			Handler:       watchEventsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "gns/registry/v1/registry.proto",
}

// RegisterRegistryServer registers srv on s.
func RegisterRegistryServer(s grpc.ServiceRegistrar, srv RegistryServer) {
	s.RegisterService(&ServiceDesc, srv)
}
