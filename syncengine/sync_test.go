package syncengine

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubswarm/syncd/hubstore"
	"github.com/hubswarm/syncd/huberrs"
	"github.com/hubswarm/syncd/merkletrie"
	"github.com/hubswarm/syncd/synctype"
)

// fakePeer is a peerclient.PeerRPC backed by an in-memory trie and
// message/registry maps, standing in for a real remote hub in these
// tests the way the teacher's txpool tests stand a fake p2p session in
// for a live connection.
type fakePeer struct {
	trie           *merkletrie.MerkleTrie
	messages       map[synctype.SyncId]*hubstore.Message
	idEvents       map[synctype.Fid]*hubstore.IdRegistryEvent
	signerMessages map[synctype.Fid][]*hubstore.Message

	// snapshotErr, when set, makes GetSnapshotByPrefix fail instead of
	// returning a snapshot — used to exercise RoundRunner's failure and
	// health-reporting paths.
	snapshotErr error
}

func newFakePeer() *fakePeer {
	return &fakePeer{
		trie:           merkletrie.New(),
		messages:       make(map[synctype.SyncId]*hubstore.Message),
		idEvents:       make(map[synctype.Fid]*hubstore.IdRegistryEvent),
		signerMessages: make(map[synctype.Fid][]*hubstore.Message),
	}
}

func (f *fakePeer) addMessage(m *hubstore.Message) {
	id := m.SyncId()
	f.trie.Insert(id)
	f.messages[id] = m
}

func (f *fakePeer) GetMetadataByPrefix(_ context.Context, prefix []byte) (*merkletrie.NodeMetadata, error) {
	return f.trie.GetTrieNodeMetadata(prefix), nil
}

func (f *fakePeer) GetSyncIdsByPrefix(_ context.Context, prefix []byte) ([]synctype.SyncId, error) {
	var out []synctype.SyncId
	for _, id := range f.trie.GetAllValues() {
		if bytes.HasPrefix(id[:], prefix) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakePeer) GetMessagesBySyncIds(_ context.Context, ids []synctype.SyncId) ([]*hubstore.Message, error) {
	out := make([]*hubstore.Message, 0, len(ids))
	for _, id := range ids {
		if m, ok := f.messages[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakePeer) GetIdRegistryEventByFid(_ context.Context, fid synctype.Fid) (*hubstore.IdRegistryEvent, error) {
	if e, ok := f.idEvents[fid]; ok {
		return e, nil
	}
	return nil, huberrs.NotFound("id registry event")
}

func (f *fakePeer) GetAllSignerMessagesByFid(_ context.Context, fid synctype.Fid) ([]*hubstore.Message, error) {
	return f.signerMessages[fid], nil
}

// GetSnapshotByPrefix satisfies peerclient.SnapshotFetcher so fakePeer can
// stand in as both halves of a round_runner.Peer in tests.
func (f *fakePeer) GetSnapshotByPrefix(_ context.Context, prefix []byte) (merkletrie.Snapshot, error) {
	if f.snapshotErr != nil {
		return merkletrie.Snapshot{}, f.snapshotErr
	}
	return f.trie.GetSnapshot(prefix), nil
}

func TestFetchMissingHashesByPrefixSmallSubtreeFetchesDirectly(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.MergeIdRegistryEvent(&hubstore.IdRegistryEvent{Fid: 1}))
	e := New(store)

	peer := newFakePeer()
	want := testMessage(1, 1665182332)
	peer.addMessage(want)

	ids, err := e.FetchMissingHashesByPrefix(context.Background(), []byte{}, peer)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, want.SyncId(), ids[0])
}

func TestPerformSyncMergesDivergentMessages(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.MergeIdRegistryEvent(&hubstore.IdRegistryEvent{Fid: 1}))
	e := New(store)

	// The snapshot walks the current window's prefix and stops where that
	// path has no child, so an anchor message inside the window keeps the
	// path present in both tries, and the other messages sit just before
	// it, where their subtrees land in the excluded hashes.
	now := snapshotTimestamp(time.Now())
	peer := newFakePeer()
	anchor := testMessage(1, now)
	peer.addMessage(anchor)
	require.NoError(t, store.MergeMessage(anchor))
	e.ApplyEvent(hubstore.Event{Kind: hubstore.EventMergeMessage, Message: anchor})

	var missing []*hubstore.Message
	for i := 0; i < 60; i++ {
		m := testMessage(1, now-1000+uint32(i))
		peer.addMessage(m)
		if i >= 57 {
			missing = append(missing, m)
			continue
		}
		require.NoError(t, store.MergeMessage(m))
		e.ApplyEvent(hubstore.Event{Kind: hubstore.EventMergeMessage, Message: m})
	}

	local := e.DefaultSnapshot(time.Now())
	peerSnap := peer.trie.GetSnapshot(local.Prefix)

	// PerformSync merges into the store; RoundRunner.Run is what applies
	// the store's events to the trie, so the test applies them itself.
	sub := store.Subscribe()
	defer sub.Unsubscribe()

	require.True(t, e.ShouldSync(peerSnap.ExcludedHashes))
	require.NoError(t, e.PerformSync(context.Background(), peerSnap.ExcludedHashes, peer))
	for len(sub.Events()) > 0 {
		e.ApplyEvent(<-sub.Events())
	}

	for _, m := range missing {
		assert.True(t, e.Trie().Exists(m.SyncId()))
	}
}

func TestMergeMessagesSortsByTimestampAscending(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.MergeIdRegistryEvent(&hubstore.IdRegistryEvent{Fid: 1}))
	e := New(store)

	late := testMessage(1, 200)
	early := testMessage(1, 100)

	results := e.MergeMessages(context.Background(), []*hubstore.Message{late, early}, newFakePeer())
	require.Len(t, results, 2)
	assert.Equal(t, early.SyncId(), results[0].Message.SyncId())
	assert.Equal(t, late.SyncId(), results[1].Message.SyncId())
	assert.NoError(t, results[0].Err)
	assert.NoError(t, results[1].Err)
}

func TestMergeMessagesRecoversUnknownFid(t *testing.T) {
	store := newTestStore(t)
	e := New(store)

	peer := newFakePeer()
	peer.idEvents[7] = &hubstore.IdRegistryEvent{Fid: 7}
	signerMsg := testMessage(7, 50)
	peer.signerMessages[7] = []*hubstore.Message{signerMsg}

	m := testMessage(7, 100)
	results := e.MergeMessages(context.Background(), []*hubstore.Message{m}, peer)

	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
}

func TestSyncUserAndRetryMessageFailsWithoutSigners(t *testing.T) {
	store := newTestStore(t)
	e := New(store)

	peer := newFakePeer()
	peer.idEvents[9] = &hubstore.IdRegistryEvent{Fid: 9}
	// no signer messages configured for fid 9

	m := testMessage(9, 100)
	err := e.SyncUserAndRetryMessage(context.Background(), m, peer)
	require.Error(t, err)
	assert.True(t, huberrs.IsUnknownFid(err))
}

func TestSyncUserAndRetryMessagePropagatesRegistryFetchFailure(t *testing.T) {
	store := newTestStore(t)
	e := New(store)

	peer := newFakePeer() // fid 11 has no registered IdRegistryEvent

	m := testMessage(11, 100)
	err := e.SyncUserAndRetryMessage(context.Background(), m, peer)
	require.Error(t, err)
}
