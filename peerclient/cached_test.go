package peerclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubswarm/syncd/cache"
	"github.com/hubswarm/syncd/hubstore"
	"github.com/hubswarm/syncd/merkletrie"
	"github.com/hubswarm/syncd/synctype"
)

type countingPeerRPC struct {
	calls int
	md    *merkletrie.NodeMetadata
}

func (c *countingPeerRPC) GetMetadataByPrefix(ctx context.Context, prefix []byte) (*merkletrie.NodeMetadata, error) {
	c.calls++
	return c.md, nil
}

func (c *countingPeerRPC) GetSyncIdsByPrefix(context.Context, []byte) ([]synctype.SyncId, error) {
	return nil, nil
}
func (c *countingPeerRPC) GetMessagesBySyncIds(context.Context, []synctype.SyncId) ([]*hubstore.Message, error) {
	return nil, nil
}
func (c *countingPeerRPC) GetIdRegistryEventByFid(context.Context, synctype.Fid) (*hubstore.IdRegistryEvent, error) {
	return nil, nil
}
func (c *countingPeerRPC) GetAllSignerMessagesByFid(context.Context, synctype.Fid) ([]*hubstore.Message, error) {
	return nil, nil
}

func TestCachedPeerRPCDeduplicatesWithinTTL(t *testing.T) {
	inner := &countingPeerRPC{md: &merkletrie.NodeMetadata{Prefix: []byte("16")}}
	c := NewCachedPeerRPC(inner, 16)

	md1, err := c.GetMetadataByPrefix(context.Background(), []byte("16"))
	require.NoError(t, err)
	md2, err := c.GetMetadataByPrefix(context.Background(), []byte("16"))
	require.NoError(t, err)

	assert.Equal(t, md1, md2)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedPeerRPCRefetchesAfterTTL(t *testing.T) {
	inner := &countingPeerRPC{md: &merkletrie.NodeMetadata{Prefix: []byte("16")}}
	c := NewCachedPeerRPC(inner, 16)
	c.metadata = cache.NewMetadataCache(16, time.Millisecond)

	_, err := c.GetMetadataByPrefix(context.Background(), []byte("16"))
	require.NoError(t, err)

	origNow := cache.Now
	defer func() { cache.Now = origNow }()
	cache.Now = func() time.Time { return origNow().Add(time.Hour) }

	_, err = c.GetMetadataByPrefix(context.Background(), []byte("16"))
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedPeerRPCStatsReportsHitsAndMisses(t *testing.T) {
	inner := &countingPeerRPC{md: &merkletrie.NodeMetadata{Prefix: []byte("16")}}
	c := NewCachedPeerRPC(inner, 16)

	_, err := c.GetMetadataByPrefix(context.Background(), []byte("16"))
	require.NoError(t, err)
	_, err = c.GetMetadataByPrefix(context.Background(), []byte("16"))
	require.NoError(t, err)

	_, hit, miss := c.Stats()
	assert.Equal(t, int64(1), hit)
	assert.Equal(t, int64(1), miss)
}

func TestCachedPeerRPCDistinctPrefixesDoNotCollide(t *testing.T) {
	inner := &countingPeerRPC{md: &merkletrie.NodeMetadata{Prefix: []byte("16")}}
	c := NewCachedPeerRPC(inner, 16)

	_, err := c.GetMetadataByPrefix(context.Background(), []byte("16"))
	require.NoError(t, err)
	_, err = c.GetMetadataByPrefix(context.Background(), []byte("17"))
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}
