package hubrpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/hubswarm/syncd/huberrs"
)

// stubServer is a minimal SyncServer standing in for rpcserver.Server, the
// way fakePeer stands in for a live peer in syncengine's tests: it exists
// only to exercise ServiceDesc's wiring and the json codec over a real
// grpc.Server/grpc.ClientConn pair, not the sync semantics themselves.
type stubServer struct {
	info      GetInfoResponse
	notFound  bool
	events    chan *EventResponse
}

func (s *stubServer) GetInfo(ctx context.Context, req *GetInfoRequest) (*GetInfoResponse, error) {
	return &s.info, nil
}

func (s *stubServer) GetAllSyncIdsByPrefix(ctx context.Context, req *PrefixRequest) (*SyncIdsResponse, error) {
	return &SyncIdsResponse{SyncIds: [][]byte{req.Prefix}}, nil
}

func (s *stubServer) GetAllMessagesBySyncIds(ctx context.Context, req *SyncIdsRequest) (*MessagesResponse, error) {
	return &MessagesResponse{}, nil
}

func (s *stubServer) GetSyncMetadataByPrefix(ctx context.Context, req *PrefixRequest) (*NodeMetadataResponse, error) {
	if s.notFound {
		return nil, huberrs.NotFound("trie node")
	}
	return &NodeMetadataResponse{Prefix: req.Prefix}, nil
}

func (s *stubServer) GetSyncSnapshotByPrefix(ctx context.Context, req *PrefixRequest) (*SnapshotResponse, error) {
	return &SnapshotResponse{Prefix: req.Prefix}, nil
}

func (s *stubServer) GetIdRegistryEventByFid(ctx context.Context, req *FidRequest) (*IdRegistryEventResponse, error) {
	return &IdRegistryEventResponse{Fid: req.Fid}, nil
}

func (s *stubServer) GetAllSignerMessagesByFid(ctx context.Context, req *FidRequest) (*MessagesResponse, error) {
	return &MessagesResponse{}, nil
}

func (s *stubServer) GetSyncHealth(ctx context.Context, req *GetSyncHealthRequest) (*GetSyncHealthResponse, error) {
	return &GetSyncHealthResponse{}, nil
}

func (s *stubServer) Subscribe(req *SubscribeRequest, stream SyncService_SubscribeServer) error {
	if err := stream.Send(&EventResponse{Status: "ready"}); err != nil {
		return err
	}
	for {
		select {
		case <-stream.Context().Done():
			return nil
		case ev, ok := <-s.events:
			if !ok {
				return nil
			}
			if err := stream.Send(ev); err != nil {
				return err
			}
		}
	}
}

func startTestServer(t *testing.T, srv SyncServer) *grpc.ClientConn {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	gs := grpc.NewServer()
	RegisterSyncServer(gs, srv)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	cc, err := grpc.Dial(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cc.Close() })
	return cc
}

func TestRegisterSyncServerServesGetInfoOverRealTransport(t *testing.T) {
	stub := &stubServer{info: GetInfoResponse{Version: "v1", Commit: "c1", Nickname: "hub-a", IsSynced: true}}
	cc := startTestServer(t, stub)
	client := NewClient(cc)

	resp, err := client.GetInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v1", resp.Version)
	assert.Equal(t, "hub-a", resp.Nickname)
	assert.True(t, resp.IsSynced)
}

func TestRegisterSyncServerRoundTripsPrefixArgument(t *testing.T) {
	stub := &stubServer{}
	cc := startTestServer(t, stub)
	client := NewClient(cc)

	resp, err := client.GetAllSyncIdsByPrefix(context.Background(), []byte{0x01, 0x02})
	require.NoError(t, err)
	require.Len(t, resp.SyncIds, 1)
	assert.Equal(t, []byte{0x01, 0x02}, resp.SyncIds[0])
}

func TestUnaryHandlerMapsHubErrorToGRPCStatus(t *testing.T) {
	stub := &stubServer{notFound: true}
	cc := startTestServer(t, stub)
	client := NewClient(cc)

	_, err := client.GetSyncMetadataByPrefix(context.Background(), []byte("x"))
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.NotFound, st.Code())
}

func TestSubscribeStreamsReadyFrameThenEvents(t *testing.T) {
	stub := &stubServer{events: make(chan *EventResponse, 1)}
	cc := startTestServer(t, stub)
	client := NewClient(cc)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	stream, err := client.Subscribe(ctx, nil)
	require.NoError(t, err)

	first, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "ready", first.Status)

	stub.events <- &EventResponse{Kind: "mergeMessage"}
	second, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "mergeMessage", second.Kind)
}
