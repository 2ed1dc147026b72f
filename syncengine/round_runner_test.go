package syncengine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubswarm/syncd/hubstore"
)

func TestRunAppliesStoreEventsToTrie(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.MergeIdRegistryEvent(&hubstore.IdRegistryEvent{Fid: 1}))

	e := New(store)
	r := NewRoundRunner(e, nil, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	m := testMessage(1, 1665182332)
	require.NoError(t, store.MergeMessage(m))

	assert.Eventually(t, func() bool {
		return e.Trie().Exists(m.SyncId())
	}, time.Second, time.Millisecond)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := newTestStore(t)
	e := New(store)
	r := NewRoundRunner(e, nil, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestRunTriggersSyncRoundOnTick(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.MergeIdRegistryEvent(&hubstore.IdRegistryEvent{Fid: 1}))

	e := New(store)
	peer := newFakePeer()
	missing := testMessage(1, 1700000000)
	peer.addMessage(missing)

	r := NewRoundRunner(e, []Peer{{
		Nickname: "peer-a",
		RPC:      peer,
		Snapshot: peer,
	}}, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	assert.Eventually(t, func() bool {
		return e.Trie().Exists(missing.SyncId())
	}, time.Second, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		health := r.Health()
		return len(health) == 1 && health[0].Nickname == "peer-a" && !health[0].LastSuccessAt.IsZero()
	}, time.Second, 5*time.Millisecond)
}

func TestHealthReportsPeerErrorAfterFailedFetch(t *testing.T) {
	store := newTestStore(t)
	e := New(store)
	peer := newFakePeer()
	peer.snapshotErr = context.DeadlineExceeded

	r := NewRoundRunner(e, []Peer{{
		Nickname: "peer-b",
		RPC:      peer,
		Snapshot: peer,
	}}, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	assert.Eventually(t, func() bool {
		health := r.Health()
		return len(health) == 1 && health[0].LastError != ""
	}, time.Second, 5*time.Millisecond)
}
