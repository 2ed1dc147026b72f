package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/hubswarm/syncd/merkletrie"
)

// Now is this package's seam around time.Now, overridable in tests.
var Now = time.Now

// MetadataCache is a short-TTL LRU over peer trie-node metadata, keyed by
// the prefix it was fetched for. fetchMissingHashesByNode (§4.D) requests
// each prefix once per divergence walk, so hits come from later walks
// against the same peer within the ttl; a peer's own trie keeps moving
// underneath a long-lived entry, so entries expire instead of living
// forever. Hit/
// miss accounting is folded in via Stats.
type MetadataCache struct {
	cache *lru.Cache
	ttl   time.Duration
	stats Stats
}

type metadataEntry struct {
	md        *merkletrie.NodeMetadata
	fetchedAt time.Time
}

// NewMetadataCache returns a metadata cache holding up to maxSize entries
// (a maxSize below 16 is raised to 16), each valid for ttl after it was
// cached.
func NewMetadataCache(maxSize int, ttl time.Duration) *MetadataCache {
	if maxSize < 16 {
		maxSize = 16
	}
	c, _ := lru.New(maxSize)
	return &MetadataCache{cache: c, ttl: ttl}
}

// Get returns the metadata cached for prefix, if present and not yet past
// its ttl. A miss (absent or expired) is recorded on Stats either way.
func (m *MetadataCache) Get(prefix []byte) (*merkletrie.NodeMetadata, bool) {
	v, ok := m.cache.Get(string(prefix))
	if !ok {
		m.stats.Miss()
		return nil, false
	}
	entry := v.(metadataEntry)
	if Now().Sub(entry.fetchedAt) >= m.ttl {
		m.stats.Miss()
		return nil, false
	}
	m.stats.Hit()
	return entry.md, true
}

// Add caches md for prefix, timestamped with Now.
func (m *MetadataCache) Add(prefix []byte, md *merkletrie.NodeMetadata) {
	m.cache.Add(string(prefix), metadataEntry{md: md, fetchedAt: Now()})
}

// Stats returns the accumulated hit/miss counts, and whether the hit rate
// has moved since the last call — cache.Stats.Stats, folded in here so a
// caller (e.g. a health surface) can report cache effectiveness without
// reaching past MetadataCache for it.
func (m *MetadataCache) Stats() (changed bool, hit, miss int64) {
	return m.stats.Stats()
}
