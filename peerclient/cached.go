package peerclient

import (
	"context"
	"time"

	"github.com/hubswarm/syncd/cache"
	"github.com/hubswarm/syncd/merkletrie"
)

// defaultMetadataCacheSize bounds how many distinct prefixes the cache
// holds metadata for at once. fetchMissingHashesByNode (§4.D) requests
// each prefix once per walk and recurses per diverging child byte, so a
// walk over a wide divergence can touch many distinct prefixes.
const defaultMetadataCacheSize = 4096

// defaultMetadataCacheTTL keeps cached metadata from outliving the sync
// round it was fetched for by much: a peer's trie moves, and metadata
// older than this is more likely wrong than helpful.
const defaultMetadataCacheTTL = 5 * time.Second

// CachedPeerRPC wraps a PeerRPC with a short-TTL cache over
// GetMetadataByPrefix: a round that follows an earlier one against the
// same peer within the TTL and walks the same prefixes is answered from
// the cache. A single walk requests each prefix once. Every other method
// passes straight through.
type CachedPeerRPC struct {
	PeerRPC
	metadata *cache.MetadataCache
}

// NewCachedPeerRPC wraps inner with a metadata cache of the given size
// (0 uses defaultMetadataCacheSize).
func NewCachedPeerRPC(inner PeerRPC, size int) *CachedPeerRPC {
	if size <= 0 {
		size = defaultMetadataCacheSize
	}
	return &CachedPeerRPC{PeerRPC: inner, metadata: cache.NewMetadataCache(size, defaultMetadataCacheTTL)}
}

func (c *CachedPeerRPC) GetMetadataByPrefix(ctx context.Context, prefix []byte) (*merkletrie.NodeMetadata, error) {
	if md, ok := c.metadata.Get(prefix); ok {
		return md, nil
	}

	md, err := c.PeerRPC.GetMetadataByPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}
	c.metadata.Add(prefix, md)
	return md, nil
}

// Stats exposes the metadata cache's hit/miss counters so a caller can
// report peer-metadata cache effectiveness.
func (c *CachedPeerRPC) Stats() (changed bool, hit, miss int64) {
	return c.metadata.Stats()
}
