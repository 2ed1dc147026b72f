package hubrpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/hubswarm/syncd/synctype"
)

// callOption forces every call through this client onto the json codec
// registered in codec.go, instead of grpc-go's proto default.
var callOption = grpc.CallContentSubtype(codecName)

// Client is a thin typed wrapper over a *grpc.ClientConn dialed to a
// peer's SyncServer, used by peerclient's concrete PeerRPC
// implementation. It exists in hubrpc (rather than peerclient) so the
// method-name/path strings live next to ServiceDesc, the single source
// of truth for what's registered on the server side.
type Client struct {
	cc *grpc.ClientConn
}

// NewClient wraps an already-dialed connection.
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, req, resp interface{}) error {
	return c.cc.Invoke(ctx, "/"+fullServiceName+"/"+method, req, resp, callOption)
}

func (c *Client) GetInfo(ctx context.Context) (*GetInfoResponse, error) {
	resp := new(GetInfoResponse)
	if err := c.invoke(ctx, "GetInfo", &GetInfoRequest{}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) GetAllSyncIdsByPrefix(ctx context.Context, prefix []byte) (*SyncIdsResponse, error) {
	resp := new(SyncIdsResponse)
	if err := c.invoke(ctx, "GetAllSyncIdsByPrefix", &PrefixRequest{Prefix: prefix}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) GetAllMessagesBySyncIds(ctx context.Context, syncIds [][]byte) (*MessagesResponse, error) {
	resp := new(MessagesResponse)
	if err := c.invoke(ctx, "GetAllMessagesBySyncIds", &SyncIdsRequest{SyncIds: syncIds}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) GetSyncMetadataByPrefix(ctx context.Context, prefix []byte) (*NodeMetadataResponse, error) {
	resp := new(NodeMetadataResponse)
	if err := c.invoke(ctx, "GetSyncMetadataByPrefix", &PrefixRequest{Prefix: prefix}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) GetSyncSnapshotByPrefix(ctx context.Context, prefix []byte) (*SnapshotResponse, error) {
	resp := new(SnapshotResponse)
	if err := c.invoke(ctx, "GetSyncSnapshotByPrefix", &PrefixRequest{Prefix: prefix}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) GetIdRegistryEventByFid(ctx context.Context, fid synctype.Fid) (*IdRegistryEventResponse, error) {
	resp := new(IdRegistryEventResponse)
	if err := c.invoke(ctx, "GetIdRegistryEventByFid", &FidRequest{Fid: fid}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) GetAllSignerMessagesByFid(ctx context.Context, fid synctype.Fid) (*MessagesResponse, error) {
	resp := new(MessagesResponse)
	if err := c.invoke(ctx, "GetAllSignerMessagesByFid", &FidRequest{Fid: fid}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) GetSyncHealth(ctx context.Context) (*GetSyncHealthResponse, error) {
	resp := new(GetSyncHealthResponse)
	if err := c.invoke(ctx, "GetSyncHealth", &GetSyncHealthRequest{}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// SubscribeStream is the client side of the Subscribe server-streaming
// RPC: Recv blocks for the next EventResponse frame.
type SubscribeStream struct {
	stream grpc.ClientStream
}

func (s *SubscribeStream) Recv() (*EventResponse, error) {
	m := new(EventResponse)
	if err := s.stream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// CloseSend half-closes the client's send side of the stream (Subscribe
// has already done so after sending its request). It does not end the
// stream; canceling the ctx passed to Subscribe does, which is what makes
// the server detach its listeners.
func (s *SubscribeStream) CloseSend() error { return s.stream.CloseSend() }

func (c *Client) Subscribe(ctx context.Context, eventTypes []string) (*SubscribeStream, error) {
	desc := &ServiceDesc.Streams[0]
	stream, err := c.cc.NewStream(ctx, desc, "/"+fullServiceName+"/Subscribe", callOption)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&SubscribeRequest{EventTypes: eventTypes}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &SubscribeStream{stream: stream}, nil
}
