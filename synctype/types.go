// Package synctype defines the value types the sync core derives from and
// reasons about: application fids, message types, hashes and the 40-byte
// SyncId used to key the merkle trie and the message store alike.
package synctype

import (
	"encoding/hex"
)

// Fid is an application-level user identifier.
type Fid uint64

// MessageType enumerates the kinds of messages the corpus carries. Only the
// add/remove grouping matters to the sync core; the rest of a message's
// shape is opaque.
type MessageType uint8

const (
	MessageTypeNone MessageType = iota
	MessageTypeCastAdd
	MessageTypeCastRemove
	MessageTypeReactionAdd
	MessageTypeReactionRemove
	MessageTypeLinkAdd
	MessageTypeLinkRemove
	MessageTypeVerificationAdd
	MessageTypeVerificationRemove
	MessageTypeUserDataAdd
	MessageTypeUsernameProof
)

// HashSize is the length in bytes of a BLAKE3-160 message digest.
const HashSize = 20

// Hash20 is a BLAKE3-160 digest: a message hash, or a trie node's subtree
// hash.
type Hash20 [HashSize]byte

// String renders the hash as lowercase, unpadded hex, matching the wire
// encoding required by §6.
func (h Hash20) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the zero digest.
func (h Hash20) IsZero() bool {
	return h == Hash20{}
}

// Bytes returns a fresh copy of the underlying 20 bytes.
func (h Hash20) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// HashFromBytes copies b (which must be 20 bytes) into a Hash20.
func HashFromBytes(b []byte) (h Hash20) {
	copy(h[:], b)
	return h
}

// Message is the subset of a stored message the sync core needs in order to
// derive a SyncId. Everything else about a message's payload, its signature,
// and its validation is the concern of external collaborators.
type Message interface {
	Fid() Fid
	Type() MessageType
	Timestamp() uint32
	Hash() Hash20
}
