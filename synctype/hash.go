package synctype

import (
	"lukechampine.com/blake3"
)

// EmptyHash is the canonical BLAKE3-160 digest of the empty byte string. It
// is the hash of a keyless leaf, which includes the root node of an empty
// trie — never the trie's own public root
// hash, which the wrapper reports as "" for an empty trie (see DESIGN.md).
var EmptyHash = Hash160(nil)

// Hash160 computes the BLAKE3-160 digest (the first 20 bytes of a 160-bit
// BLAKE3 output) of data, truncated directly by requesting a 20-byte digest
// from the extendable-output hasher rather than truncating a 32-byte one.
func Hash160(data []byte) Hash20 {
	h := blake3.New(HashSize, nil)
	_, _ = h.Write(data)
	return HashFromBytes(h.Sum(nil))
}

// Hash160Concat hashes the concatenation of parts without building an
// intermediate byte slice, used for hashing a node's ordered children
// digests.
func Hash160Concat(parts ...[]byte) Hash20 {
	h := blake3.New(HashSize, nil)
	for _, p := range parts {
		_, _ = h.Write(p)
	}
	return HashFromBytes(h.Sum(nil))
}
