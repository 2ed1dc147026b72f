// Package merkletrie implements the path-compressed radix trie that backs
// hub sync: every node carries a subtree hash and item count, so that
// equality of two subtrees reduces to one hash comparison.
package merkletrie

import (
	"sort"

	"github.com/hubswarm/syncd/synctype"
)

// node is a single trie node. Above depth synctype.TimestampPrefixLen it is
// always a plain per-byte radix node; at or below that depth it collapses
// to a keyed leaf whenever it holds exactly one stored SyncId (invariant 3).
//
// children is a plain map for simplicity; ascending-byte iteration — which
// hashing depends on (invariant 2) — is obtained by sorting keys at hash
// time rather than by using an ordered container, since node mutation
// (insert/delete) is far hotter than hashing a wide fan-out node.
type node struct {
	hash     synctype.Hash20
	items    uint64
	children map[byte]*node
	key      *synctype.SyncId
}

func newNode() *node {
	n := &node{}
	n.hash = synctype.EmptyHash
	return n
}

func (n *node) isLeaf() bool {
	return len(n.children) == 0
}

func sortedChildBytes(children map[byte]*node) []byte {
	keys := make([]byte, 0, len(children))
	for b := range children {
		keys = append(keys, b)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// recomputeHash recomputes this node's hash from its immediate children (or
// its key, for a leaf), per invariant 5. It does not recurse: callers are
// responsible for keeping the direct mutation path up to date, so that an
// insert or delete costs O(depth) rather than O(subtree size).
func (n *node) recomputeHash() {
	if n.isLeaf() {
		if n.key != nil {
			n.hash = synctype.Hash160(n.key[:])
		} else {
			n.hash = synctype.EmptyHash
		}
		return
	}

	parts := make([][]byte, 0, len(n.children))
	for _, b := range sortedChildBytes(n.children) {
		h := n.children[b].hash
		parts = append(parts, h[:])
	}
	n.hash = synctype.Hash160Concat(parts...)
}

// recalculateHash recomputes hashes bottom-up through the whole subtree,
// for use after a bulk load that built the tree shape without maintaining
// hashes incrementally.
func (n *node) recalculateHash() synctype.Hash20 {
	for _, child := range n.children {
		child.recalculateHash()
	}
	n.recomputeHash()
	return n.hash
}

func atCompactionDepth(depth int) bool {
	return depth >= synctype.TimestampPrefixLen
}

// insert adds key to the subtree rooted at n, assuming depth bytes of key
// have already been consumed on the path from the trie root. It reports
// whether a new value was added (false means key was already present).
func (n *node) insert(key synctype.SyncId, depth int) bool {
	if depth > synctype.Size {
		panic("merkletrie: key traversal exceeded SyncId length")
	}

	if atCompactionDepth(depth) && n.isLeaf() {
		if n.key == nil {
			k := key
			n.key = &k
			n.items = 1
			n.recomputeHash()
			return true
		}
		if *n.key == key {
			return false
		}

		// Split: promote this leaf to an internal node, re-home its
		// existing key one level down, then fall through to the normal
		// per-byte insert path below for the new key. n.items is left
		// untouched here — it already counts the existing key, and the
		// normal path increments it once for the new key.
		existing := *n.key
		n.key = nil
		n.children = make(map[byte]*node, 2)
		child := newNode()
		n.children[existing[depth]] = child
		child.insert(existing, depth+1)
	}

	if n.children == nil {
		n.children = make(map[byte]*node, 1)
	}

	b := key[depth]
	child, ok := n.children[b]
	if !ok {
		child = newNode()
		n.children[b] = child
	}

	added := child.insert(key, depth+1)
	if added {
		n.items++
		n.recomputeHash()
	}
	return added
}

// delete removes key from the subtree rooted at n, reporting whether a
// value was actually removed.
func (n *node) delete(key synctype.SyncId, depth int) bool {
	if n.isLeaf() {
		if n.key != nil && *n.key == key {
			n.key = nil
			n.items = 0
			n.recomputeHash()
			return true
		}
		return false
	}

	b := key[depth]
	child, ok := n.children[b]
	if !ok {
		return false
	}

	if !child.delete(key, depth+1) {
		return false
	}

	n.items--
	if child.items == 0 {
		delete(n.children, b)
	}

	if atCompactionDepth(depth) && len(n.children) == 1 {
		for only, onlyChild := range n.children {
			if onlyChild.isLeaf() && onlyChild.key != nil {
				n.key = onlyChild.key
				n.children = nil
				_ = only
			}
		}
	}

	n.recomputeHash()
	return true
}

// exists mirrors insert's traversal without mutating the trie.
func (n *node) exists(key synctype.SyncId, depth int) bool {
	if n.isLeaf() {
		if atCompactionDepth(depth) {
			return n.key != nil && *n.key == key
		}
		return false
	}

	child, ok := n.children[key[depth]]
	if !ok {
		return false
	}
	return child.exists(key, depth+1)
}

// getNode descends prefix byte-by-byte and returns the node at that exact
// path, or nil if the trie does not extend that far.
func (n *node) getNode(prefix []byte) *node {
	cur := n
	for _, b := range prefix {
		if cur.isLeaf() {
			return nil
		}
		child, ok := cur.children[b]
		if !ok {
			return nil
		}
		cur = child
	}
	return cur
}

// getAllValues collects every leaf key below n, in ascending trie order.
func (n *node) getAllValues() []synctype.SyncId {
	if n.isLeaf() {
		if n.key != nil {
			return []synctype.SyncId{*n.key}
		}
		return nil
	}

	var out []synctype.SyncId
	for _, b := range sortedChildBytes(n.children) {
		out = append(out, n.children[b].getAllValues()...)
	}
	return out
}

// getSnapshot walks prefix from depth, producing the excluded-hash trail
// described in §3 ("TrieSnapshot"). If the trie runs out of children
// matching prefix partway through, the walk stops and the returned
// snapshot's Prefix reports exactly how far it got.
func (n *node) getSnapshot(prefix []byte, depth int) Snapshot {
	if depth >= len(prefix) {
		return Snapshot{Prefix: append([]byte(nil), prefix[:depth]...)}
	}

	b := prefix[depth]

	var excludedParts [][]byte
	var excludedItems uint64
	for _, cb := range sortedChildBytes(n.children) {
		if cb == b {
			continue
		}
		c := n.children[cb]
		excludedParts = append(excludedParts, c.hash[:])
		excludedItems += c.items
	}

	child, ok := n.children[b]
	if !ok {
		return Snapshot{Prefix: append([]byte(nil), prefix[:depth]...)}
	}

	excludedHash := synctype.Hash160Concat(excludedParts...)
	rest := child.getSnapshot(prefix, depth+1)

	return Snapshot{
		Prefix:         rest.Prefix,
		ExcludedHashes: append([]synctype.Hash20{excludedHash}, rest.ExcludedHashes...),
		NumMessages:    excludedItems + rest.NumMessages,
	}
}
