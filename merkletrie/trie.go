package merkletrie

import (
	"github.com/hubswarm/syncd/synctype"
)

// MerkleTrie owns the root node of an in-memory, path-compressed radix
// trie keyed by SyncIds. It is not safe for concurrent mutation: per §5,
// the owning SyncEngine is the trie's single, cooperative-scheduling
// mutator, so no internal locking is needed here.
type MerkleTrie struct {
	root *node
}

// New returns an empty trie.
func New() *MerkleTrie {
	return &MerkleTrie{root: newNode()}
}

// Insert adds id to the trie, reporting whether it was new.
func (t *MerkleTrie) Insert(id synctype.SyncId) bool {
	return t.root.insert(id, 0)
}

// Delete removes id from the trie, reporting whether it was present.
func (t *MerkleTrie) Delete(id synctype.SyncId) bool {
	return t.root.delete(id, 0)
}

// Exists reports whether id is present in the trie.
func (t *MerkleTrie) Exists(id synctype.SyncId) bool {
	return t.root.exists(id, 0)
}

// Items is the total number of SyncIds stored in the trie.
func (t *MerkleTrie) Items() uint64 {
	return t.root.items
}

// RootHash returns the trie's visible root hash: the empty string for an
// empty trie, or the 40-char lowercase hex of the root node's subtree hash
// otherwise. This is a deliberate asymmetry with the node-internal
// EMPTY_HASH value (see DESIGN.md): the public API never reports
// EMPTY_HASH for a trie that simply has nothing in it.
func (t *MerkleTrie) RootHash() string {
	if t.root.items == 0 {
		return ""
	}
	return t.root.hash.String()
}

// GetAllValues returns every SyncId stored in the trie, in trie order.
func (t *MerkleTrie) GetAllValues() []synctype.SyncId {
	return t.root.getAllValues()
}

// getNode returns the node at the exact prefix path, or nil.
func (t *MerkleTrie) getNode(prefix []byte) *node {
	return t.root.getNode(prefix)
}

// GetValuesByPrefix returns every SyncId stored under prefix, the server
// side of §6's getAllSyncIdsByPrefix — called once a peer's divergence
// walk has narrowed to a subtree small enough to fetch directly rather
// than recurse further (§4.D HASHES_PER_FETCH).
func (t *MerkleTrie) GetValuesByPrefix(prefix []byte) []synctype.SyncId {
	n := t.root.getNode(prefix)
	if n == nil {
		return nil
	}
	return n.getAllValues()
}

// GetSnapshot returns the trie's snapshot at prefix. Callers must treat the
// returned Snapshot.Prefix as authoritative: it may be shorter than prefix
// if the trie does not extend that far.
func (t *MerkleTrie) GetSnapshot(prefix []byte) Snapshot {
	return t.root.getSnapshot(prefix, 0)
}

// GetTrieNodeMetadata returns one level of children for the node at
// prefix, for RPC serialization, or nil if no such node exists.
func (t *MerkleTrie) GetTrieNodeMetadata(prefix []byte) *NodeMetadata {
	n := t.getNode(prefix)
	if n == nil {
		return nil
	}

	children := make(map[byte]ChildMetadata, len(n.children))
	for _, b := range sortedChildBytes(n.children) {
		c := n.children[b]
		childPrefix := make([]byte, len(prefix)+1)
		copy(childPrefix, prefix)
		childPrefix[len(prefix)] = b
		children[b] = ChildMetadata{
			Prefix:      childPrefix,
			NumMessages: c.items,
			Hash:        c.hash,
		}
	}

	return &NodeMetadata{
		Prefix:      prefix,
		NumMessages: n.items,
		Hash:        n.hash,
		Children:    children,
	}
}

// GetDivergencePrefix generates a local snapshot for prefix and finds the
// first index at which the local and peer excluded-hash trails disagree,
// returning prefix truncated to that index. If every compared index
// matches, it returns prefix truncated to the shorter of the two walks. An
// empty peer trail means the peer offered nothing to compare against, so
// the divergence point is the empty prefix.
func (t *MerkleTrie) GetDivergencePrefix(prefix []byte, peerExcludedHashes []synctype.Hash20) []byte {
	if len(peerExcludedHashes) == 0 {
		return []byte{}
	}

	local := t.GetSnapshot(prefix)

	n := len(local.ExcludedHashes)
	if len(peerExcludedHashes) < n {
		n = len(peerExcludedHashes)
	}

	for i := 0; i < n; i++ {
		if local.ExcludedHashes[i].String() != peerExcludedHashes[i].String() {
			return prefix[:i]
		}
	}
	return prefix[:n]
}

// RecalculateHash recomputes every node's hash bottom-up, for use after a
// bulk load that built the tree shape without maintaining hashes
// incrementally. Insert and Delete keep hashes current, so Rebuild, which
// goes through Insert, does not call it.
func (t *MerkleTrie) RecalculateHash() {
	t.root.recalculateHash()
}
