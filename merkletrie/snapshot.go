package merkletrie

import "github.com/hubswarm/syncd/synctype"

// Snapshot is a compact certificate of "everything this trie contains that
// is not under Prefix": at each level walked, ExcludedHashes[i] is the
// combined hash of every child other than the one the prefix selects, and
// NumMessages is the total item count excluded along the whole walk.
//
// Prefix is authoritative: if the trie did not extend as far as the prefix
// a caller requested, Prefix reports the portion actually walked and
// ExcludedHashes is correspondingly shorter.
type Snapshot struct {
	Prefix         []byte
	ExcludedHashes []synctype.Hash20
	NumMessages    uint64
}

// ChildMetadata describes one child of a node, for wire serialization.
type ChildMetadata struct {
	Prefix      []byte
	NumMessages uint64
	Hash        synctype.Hash20
}

// NodeMetadata describes a single trie node and one level of its children,
// the shape needed to serve §6's GetSyncMetadataByPrefix.
type NodeMetadata struct {
	Prefix      []byte
	NumMessages uint64
	Hash        synctype.Hash20
	Children    map[byte]ChildMetadata
}
