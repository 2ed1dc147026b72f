package rpcserver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"

	"github.com/hubswarm/syncd/hubrpc"
	"github.com/hubswarm/syncd/hubstore"
	"github.com/hubswarm/syncd/kv"
	"github.com/hubswarm/syncd/synctype"
	"github.com/hubswarm/syncd/syncengine"
)

func newTestServer(t *testing.T) (*Server, *hubstore.Store, *syncengine.SyncEngine) {
	t.Helper()
	db, err := kv.NewMem(kv.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := hubstore.NewStore(db)
	require.NoError(t, err)

	engine := syncengine.New(store)
	srv := New(engine, store, nil, BuildInfo{Version: "v0.0.0-test", Commit: "deadbeef", Nickname: "test-hub"})
	return srv, store, engine
}

func testMessage(fid synctype.Fid, ts uint32) *hubstore.Message {
	return &hubstore.Message{
		FidValue:       fid,
		TypeValue:      synctype.MessageTypeCastAdd,
		TimestampValue: ts,
		HashValue:      synctype.Hash160([]byte{byte(fid), byte(ts)}),
	}
}

func TestGetInfoReportsBuildAndSyncState(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := srv.GetInfo(context.Background(), &hubrpc.GetInfoRequest{})
	require.NoError(t, err)
	assert.Equal(t, "v0.0.0-test", resp.Version)
	assert.Equal(t, "deadbeef", resp.Commit)
	assert.Equal(t, "test-hub", resp.Nickname)
	assert.True(t, resp.IsSynced)
	assert.Equal(t, "", resp.RootHash)
}

func TestGetAllSyncIdsByPrefixReturnsTrieContents(t *testing.T) {
	srv, store, engine := newTestServer(t)
	require.NoError(t, store.MergeIdRegistryEvent(&hubstore.IdRegistryEvent{Fid: 1}))
	m := testMessage(1, 1665182332)
	engine.ApplyEvent(hubstore.Event{Kind: hubstore.EventMergeMessage, Message: m})

	resp, err := srv.GetAllSyncIdsByPrefix(context.Background(), &hubrpc.PrefixRequest{Prefix: []byte{}})
	require.NoError(t, err)
	require.Len(t, resp.SyncIds, 1)
	assert.Equal(t, m.SyncId().Bytes(), resp.SyncIds[0])
}

func TestGetAllMessagesBySyncIdsResolvesStoredMessages(t *testing.T) {
	srv, store, _ := newTestServer(t)
	require.NoError(t, store.MergeIdRegistryEvent(&hubstore.IdRegistryEvent{Fid: 1}))
	m := testMessage(1, 1665182332)
	require.NoError(t, store.MergeMessage(m))

	resp, err := srv.GetAllMessagesBySyncIds(context.Background(), &hubrpc.SyncIdsRequest{SyncIds: [][]byte{m.SyncId().Bytes()}})
	require.NoError(t, err)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, m.Fid(), resp.Messages[0].Fid)
}

func TestGetSyncMetadataByPrefixNotFoundOnEmptyTrie(t *testing.T) {
	srv, _, _ := newTestServer(t)

	_, err := srv.GetSyncMetadataByPrefix(context.Background(), &hubrpc.PrefixRequest{Prefix: []byte("99")})
	require.Error(t, err)
}

func TestGetIdRegistryEventByFidReturnsMergedEvent(t *testing.T) {
	srv, store, _ := newTestServer(t)
	require.NoError(t, store.MergeIdRegistryEvent(&hubstore.IdRegistryEvent{Fid: 5, SignerKey: []byte("k")}))

	resp, err := srv.GetIdRegistryEventByFid(context.Background(), &hubrpc.FidRequest{Fid: 5})
	require.NoError(t, err)
	assert.Equal(t, synctype.Fid(5), resp.Fid)
	assert.Equal(t, []byte("k"), resp.SignerKey)
}

func TestGetAllSignerMessagesByFidFiltersByFid(t *testing.T) {
	srv, store, _ := newTestServer(t)
	require.NoError(t, store.MergeIdRegistryEvent(&hubstore.IdRegistryEvent{Fid: 1}))
	require.NoError(t, store.MergeIdRegistryEvent(&hubstore.IdRegistryEvent{Fid: 2}))
	require.NoError(t, store.MergeMessage(testMessage(1, 100)))
	require.NoError(t, store.MergeMessage(testMessage(2, 200)))

	resp, err := srv.GetAllSignerMessagesByFid(context.Background(), &hubrpc.FidRequest{Fid: 1})
	require.NoError(t, err)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, synctype.Fid(1), resp.Messages[0].Fid)
}

func TestGetSyncHealthReportsTrieSizeWithNoRunner(t *testing.T) {
	srv, store, engine := newTestServer(t)
	require.NoError(t, store.MergeIdRegistryEvent(&hubstore.IdRegistryEvent{Fid: 1}))
	engine.ApplyEvent(hubstore.Event{Kind: hubstore.EventMergeMessage, Message: testMessage(1, 1665182332)})

	resp, err := srv.GetSyncHealth(context.Background(), &hubrpc.GetSyncHealthRequest{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, resp.ItemCount)
	assert.NotEmpty(t, resp.RootHash)
	assert.Empty(t, resp.Peers)
}

func TestGetSyncHealthReportsPeerStatusFromRunner(t *testing.T) {
	db, err := kv.NewMem(kv.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store, err := hubstore.NewStore(db)
	require.NoError(t, err)

	engine := syncengine.New(store)
	runner := syncengine.NewRoundRunner(engine, []syncengine.Peer{{Nickname: "peer-a"}}, time.Hour)
	srv := New(engine, store, runner, BuildInfo{})

	resp, err := srv.GetSyncHealth(context.Background(), &hubrpc.GetSyncHealthRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Peers, 1)
	assert.Equal(t, "peer-a", resp.Peers[0].Nickname)
	assert.True(t, resp.Peers[0].LastSuccessAt.IsZero())
	assert.Empty(t, resp.Peers[0].LastError)
}

// fakeServerStream is a minimal grpc.ServerStream double backed by an
// unbounded slice of sent frames, standing in for a live stream the way
// syncengine's sync_test.go stands fakePeer in for a live peer.
type fakeServerStream struct {
	ctx  context.Context
	sent []*hubrpc.EventResponse
}

func (f *fakeServerStream) SetHeader(metadata.MD) error  { return nil }
func (f *fakeServerStream) SendHeader(metadata.MD) error { return nil }
func (f *fakeServerStream) SetTrailer(metadata.MD)       {}
func (f *fakeServerStream) Context() context.Context     { return f.ctx }
func (f *fakeServerStream) SendMsg(m interface{}) error {
	f.sent = append(f.sent, m.(*hubrpc.EventResponse))
	return nil
}
func (f *fakeServerStream) RecvMsg(interface{}) error { return nil }

func (f *fakeServerStream) Send(m *hubrpc.EventResponse) error {
	return f.SendMsg(m)
}

func TestSubscribeSendsReadyFrameThenEvents(t *testing.T) {
	srv, store, _ := newTestServer(t)
	require.NoError(t, store.MergeIdRegistryEvent(&hubstore.IdRegistryEvent{Fid: 1}))

	ctx, cancel := context.WithCancel(context.Background())
	stream := &fakeServerStream{ctx: ctx}

	done := make(chan error, 1)
	go func() {
		done <- srv.Subscribe(&hubrpc.SubscribeRequest{}, stream)
	}()

	m := testMessage(1, 100)
	require.Eventually(t, func() bool { return len(stream.sent) >= 1 }, time.Second, time.Millisecond)
	require.NoError(t, store.MergeMessage(m))

	require.Eventually(t, func() bool { return len(stream.sent) >= 2 }, time.Second, time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, "ready", stream.sent[0].Status)
	assert.Equal(t, "mergeMessage", stream.sent[1].Kind)
	require.NotNil(t, stream.sent[1].Message)
	assert.Equal(t, synctype.Fid(1), stream.sent[1].Message.Fid)
}

func TestSubscribeFiltersByEventType(t *testing.T) {
	srv, store, _ := newTestServer(t)
	require.NoError(t, store.MergeIdRegistryEvent(&hubstore.IdRegistryEvent{Fid: 1}))

	ctx, cancel := context.WithCancel(context.Background())
	stream := &fakeServerStream{ctx: ctx}

	done := make(chan error, 1)
	go func() {
		done <- srv.Subscribe(&hubrpc.SubscribeRequest{EventTypes: []string{"revokeMessage"}}, stream)
	}()

	require.Eventually(t, func() bool { return len(stream.sent) >= 1 }, time.Second, time.Millisecond)
	require.NoError(t, store.MergeMessage(testMessage(1, 100)))

	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	require.Len(t, stream.sent, 1)
	assert.Equal(t, "ready", stream.sent[0].Status)
}
