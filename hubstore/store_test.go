package hubstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubswarm/syncd/huberrs"
	"github.com/hubswarm/syncd/kv"
	"github.com/hubswarm/syncd/synctype"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := kv.NewMem(kv.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s, err := NewStore(db)
	require.NoError(t, err)
	return s
}

func testMessage(fid synctype.Fid, ts uint32) *Message {
	return &Message{
		FidValue:       fid,
		TypeValue:      synctype.MessageTypeCastAdd,
		TimestampValue: ts,
		HashValue:      synctype.Hash160([]byte{byte(fid), byte(ts)}),
		Payload:        []byte("hello"),
	}
}

func TestMergeMessageUnknownFid(t *testing.T) {
	s := newTestStore(t)

	err := s.MergeMessage(testMessage(1, 1000))
	require.Error(t, err)
	assert.True(t, huberrs.IsUnknownFid(err))
}

func TestMergeMessageAfterCustody(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.MergeIdRegistryEvent(&IdRegistryEvent{Fid: 1, SignerKey: []byte("sig")}))

	m := testMessage(1, 1000)
	require.NoError(t, s.MergeMessage(m))

	var seen []*Message
	require.NoError(t, s.ForEachMessage(func(m *Message) error {
		seen = append(seen, m)
		return nil
	}))
	require.Len(t, seen, 1)
	assert.Equal(t, m.Hash(), seen[0].Hash())
}

func TestMergeMessagesReportsPerMessageResult(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.MergeIdRegistryEvent(&IdRegistryEvent{Fid: 1}))

	ms := []*Message{testMessage(1, 1000), testMessage(2, 1001)}
	errs := s.MergeMessages(ms)
	require.Len(t, errs, 2)
	assert.NoError(t, errs[0])
	assert.True(t, huberrs.IsUnknownFid(errs[1]))
}

func TestPruneAndRevokeRemoveMessages(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.MergeIdRegistryEvent(&IdRegistryEvent{Fid: 1}))

	m := testMessage(1, 1000)
	require.NoError(t, s.MergeMessage(m))
	require.NoError(t, s.PruneMessage(m))

	var seen []*Message
	require.NoError(t, s.ForEachMessage(func(m *Message) error {
		seen = append(seen, m)
		return nil
	}))
	assert.Empty(t, seen)
}

func TestSubscribeReceivesEventsInOrder(t *testing.T) {
	s := newTestStore(t)
	sub := s.Subscribe()
	defer sub.Unsubscribe()

	require.NoError(t, s.MergeIdRegistryEvent(&IdRegistryEvent{Fid: 1}))
	m := testMessage(1, 1000)
	require.NoError(t, s.MergeMessage(m))
	require.NoError(t, s.PruneMessage(m))

	var kinds []EventKind
	for i := 0; i < 3; i++ {
		ev := <-sub.Events()
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []EventKind{EventMergeIdRegistry, EventMergeMessage, EventPruneMessage}, kinds)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	s := newTestStore(t)
	sub := s.Subscribe()
	sub.Unsubscribe()

	_, ok := <-sub.Events()
	assert.False(t, ok)
}

func TestKnownFidsSurviveReopen(t *testing.T) {
	db, err := kv.NewMem(kv.Options{})
	require.NoError(t, err)
	defer db.Close()

	s1, err := NewStore(db)
	require.NoError(t, err)
	require.NoError(t, s1.MergeIdRegistryEvent(&IdRegistryEvent{Fid: 7}))

	s2, err := NewStore(db)
	require.NoError(t, err)
	assert.NoError(t, s2.MergeMessage(testMessage(7, 2000)))
}
