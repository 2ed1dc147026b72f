package hubrpc

import (
	"context"

	pkgerrors "github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hubswarm/syncd/huberrs"
)

// fullServiceName is the gRPC service path every method below is
// registered and dialed under.
const fullServiceName = "hub.sync.v1.SyncService"

// SyncServer is the server-side implementation of §6's wire surface.
// cmd/hubsyncd's façade (backed by syncengine and hubstore) implements
// this; RegisterSyncServer wires it onto a *grpc.Server the same way
// generated protoc-gen-go-grpc code would, just hand-written since no
// .pb.go files exist in this module.
type SyncServer interface {
	GetInfo(ctx context.Context, req *GetInfoRequest) (*GetInfoResponse, error)
	GetAllSyncIdsByPrefix(ctx context.Context, req *PrefixRequest) (*SyncIdsResponse, error)
	GetAllMessagesBySyncIds(ctx context.Context, req *SyncIdsRequest) (*MessagesResponse, error)
	GetSyncMetadataByPrefix(ctx context.Context, req *PrefixRequest) (*NodeMetadataResponse, error)
	GetSyncSnapshotByPrefix(ctx context.Context, req *PrefixRequest) (*SnapshotResponse, error)
	GetIdRegistryEventByFid(ctx context.Context, req *FidRequest) (*IdRegistryEventResponse, error)
	GetAllSignerMessagesByFid(ctx context.Context, req *FidRequest) (*MessagesResponse, error)
	GetSyncHealth(ctx context.Context, req *GetSyncHealthRequest) (*GetSyncHealthResponse, error)
	Subscribe(req *SubscribeRequest, stream SyncService_SubscribeServer) error
}

// SyncService_SubscribeServer is the server side of the Subscribe stream
// (§6): a server-streaming RPC emitting EventResponse frames, starting
// with a status=ready frame once listeners are attached.
type SyncService_SubscribeServer interface {
	Send(*EventResponse) error
	grpc.ServerStream
}

type syncServiceSubscribeServer struct {
	grpc.ServerStream
}

func (s *syncServiceSubscribeServer) Send(m *EventResponse) error {
	return s.ServerStream.SendMsg(m)
}

// statusWrappedCall converts any huberrs.HubError a SyncServer method
// returns into the gRPC status §6's error taxonomy table describes,
// before it ever reaches grpc-go's wire encoding.
func statusWrappedCall(call func(ctx context.Context, srv interface{}, req interface{}) (interface{}, error)) func(ctx context.Context, srv interface{}, req interface{}) (interface{}, error) {
	return func(ctx context.Context, srv interface{}, req interface{}) (interface{}, error) {
		resp, err := call(ctx, srv, req)
		if err != nil {
			return nil, grpcStatusError(err)
		}
		return resp, nil
	}
}

func unaryHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor, method string, newReq func() interface{}, call func(ctx context.Context, srv interface{}, req interface{}) (interface{}, error)) (interface{}, error) {
	in := newReq()
	if err := dec(in); err != nil {
		return nil, err
	}
	call = statusWrappedCall(call)
	if interceptor == nil {
		return call(ctx, srv, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + fullServiceName + "/" + method}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return call(ctx, srv, req)
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc is the hand-written equivalent of a protoc-gen-go-grpc
// _ServiceDesc: it binds each SyncServer method (and the Subscribe
// stream) to the gRPC method table grpc.Server dispatches on.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: fullServiceName,
	HandlerType: (*SyncServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetInfo", Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			return unaryHandler(srv, ctx, dec, interceptor, "GetInfo", func() interface{} { return new(GetInfoRequest) }, func(ctx context.Context, srv interface{}, req interface{}) (interface{}, error) {
				return srv.(SyncServer).GetInfo(ctx, req.(*GetInfoRequest))
			})
		}},
		{MethodName: "GetAllSyncIdsByPrefix", Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			return unaryHandler(srv, ctx, dec, interceptor, "GetAllSyncIdsByPrefix", func() interface{} { return new(PrefixRequest) }, func(ctx context.Context, srv interface{}, req interface{}) (interface{}, error) {
				return srv.(SyncServer).GetAllSyncIdsByPrefix(ctx, req.(*PrefixRequest))
			})
		}},
		{MethodName: "GetAllMessagesBySyncIds", Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			return unaryHandler(srv, ctx, dec, interceptor, "GetAllMessagesBySyncIds", func() interface{} { return new(SyncIdsRequest) }, func(ctx context.Context, srv interface{}, req interface{}) (interface{}, error) {
				return srv.(SyncServer).GetAllMessagesBySyncIds(ctx, req.(*SyncIdsRequest))
			})
		}},
		{MethodName: "GetSyncMetadataByPrefix", Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			return unaryHandler(srv, ctx, dec, interceptor, "GetSyncMetadataByPrefix", func() interface{} { return new(PrefixRequest) }, func(ctx context.Context, srv interface{}, req interface{}) (interface{}, error) {
				return srv.(SyncServer).GetSyncMetadataByPrefix(ctx, req.(*PrefixRequest))
			})
		}},
		{MethodName: "GetSyncSnapshotByPrefix", Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			return unaryHandler(srv, ctx, dec, interceptor, "GetSyncSnapshotByPrefix", func() interface{} { return new(PrefixRequest) }, func(ctx context.Context, srv interface{}, req interface{}) (interface{}, error) {
				return srv.(SyncServer).GetSyncSnapshotByPrefix(ctx, req.(*PrefixRequest))
			})
		}},
		{MethodName: "GetIdRegistryEventByFid", Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			return unaryHandler(srv, ctx, dec, interceptor, "GetIdRegistryEventByFid", func() interface{} { return new(FidRequest) }, func(ctx context.Context, srv interface{}, req interface{}) (interface{}, error) {
				return srv.(SyncServer).GetIdRegistryEventByFid(ctx, req.(*FidRequest))
			})
		}},
		{MethodName: "GetAllSignerMessagesByFid", Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			return unaryHandler(srv, ctx, dec, interceptor, "GetAllSignerMessagesByFid", func() interface{} { return new(FidRequest) }, func(ctx context.Context, srv interface{}, req interface{}) (interface{}, error) {
				return srv.(SyncServer).GetAllSignerMessagesByFid(ctx, req.(*FidRequest))
			})
		}},
		{MethodName: "GetSyncHealth", Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			return unaryHandler(srv, ctx, dec, interceptor, "GetSyncHealth", func() interface{} { return new(GetSyncHealthRequest) }, func(ctx context.Context, srv interface{}, req interface{}) (interface{}, error) {
				return srv.(SyncServer).GetSyncHealth(ctx, req.(*GetSyncHealthRequest))
			})
		}},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName: "Subscribe",
			Handler: func(srv interface{}, stream grpc.ServerStream) error {
				req := new(SubscribeRequest)
				if err := stream.RecvMsg(req); err != nil {
					return err
				}
				if err := srv.(SyncServer).Subscribe(req, &syncServiceSubscribeServer{stream}); err != nil {
					return grpcStatusError(err)
				}
				return nil
			},
			ServerStreams: true,
		},
	},
}

// RegisterSyncServer registers srv on s under ServiceDesc.
func RegisterSyncServer(s *grpc.Server, srv SyncServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// grpcStatusError maps a huberrs.HubError onto a gRPC status error per
// §6's error taxonomy table. The fine-grained Code rides along as the
// status message prefix ("<code>: <msg>"), so a client can read it from
// the status message without a custom status-details proto.
func grpcStatusError(err error) error {
	if err == nil {
		return nil
	}
	var he *huberrs.HubError
	if !pkgerrors.As(err, &he) {
		return status.Error(codes.Unknown, err.Error())
	}
	return status.Error(huberrs.GRPCCode(he.Code), string(he.Code)+": "+he.Msg)
}
