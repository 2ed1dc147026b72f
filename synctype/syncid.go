package synctype

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

// Size is the fixed length, in bytes, of a SyncId. Every depth-10 compaction
// boundary and every traversal bound check in merkletrie is tied to this
// constant and to TimestampPrefixLen; they must not be changed independently.
const Size = 40

// TimestampPrefixLen is the width of the leading ASCII timestamp digits. The
// trie treats bytes [0, TimestampPrefixLen) as an uncompacted, plain radix
// path regardless of fan-out (see merkletrie invariant 3).
const TimestampPrefixLen = 10

// FamilyPrefix identifies the single message family this corpus stores. A
// deployment with more than one logical store family would parameterize
// Encode with a different byte; this core only ever sees one.
const FamilyPrefix byte = 0x01

const (
	setPostfixAdds    byte = 1
	setPostfixRemoves byte = 2
)

// fidLen and hashLen together with FamilyPrefix's 1 byte, the set-postfix's
// 1 byte, and TimestampPrefixLen sum to exactly Size (40). The spec's prose
// lists the fid field as "4 bytes big-endian"; taken literally the fields
// sum to 36, not 40. Since fid is a u64 on Message and the fixed Size=40 is
// load-bearing for every trie traversal bound, fid is encoded here as its
// full 8-byte big-endian form, not truncated to 4 — see DESIGN.md.
const fidLen = 8

// SyncId is the 40-byte, time-ordered key used both to order messages
// lexicographically by timestamp in the merkle trie and, via
// DecodeToPrimaryKey, to resolve directly to the message store's primary
// key.
type SyncId [Size]byte

// SetPostfixForType reports the set-postfix byte for a message type: adds
// and removes are grouped into two disjoint sets so that, at a shared
// timestamp/fid, an add and its matching remove occupy different trie
// positions.
func SetPostfixForType(t MessageType) byte {
	switch t {
	case MessageTypeCastRemove, MessageTypeReactionRemove, MessageTypeLinkRemove, MessageTypeVerificationRemove:
		return setPostfixRemoves
	default:
		return setPostfixAdds
	}
}

// Encode assembles the SyncId for m. It is total: a zero or absent field is
// treated as its zero value.
func Encode(m Message) SyncId {
	var id SyncId
	if m == nil {
		copy(id[:TimestampPrefixLen], zeroTimestampASCII())
		id[TimestampPrefixLen] = FamilyPrefix
		return id
	}

	copy(id[:TimestampPrefixLen], timestampASCII(m.Timestamp()))

	off := TimestampPrefixLen
	id[off] = FamilyPrefix
	off++

	binary.BigEndian.PutUint64(id[off:off+fidLen], uint64(m.Fid()))
	off += fidLen

	id[off] = SetPostfixForType(m.Type())
	off++

	h := m.Hash()
	copy(id[off:off+HashSize], h[:])

	return id
}

func timestampASCII(ts uint32) string {
	return fmt.Sprintf("%0*d", TimestampPrefixLen, ts)
}

func zeroTimestampASCII() string {
	return timestampASCII(0)
}

// Timestamp extracts the leading ASCII timestamp digits and parses them back
// to an integer. It never fails on a well-formed SyncId (Encode only ever
// writes decimal digits there).
func (id SyncId) Timestamp() (uint32, error) {
	ts, err := strconv.ParseUint(string(id[:TimestampPrefixLen]), 10, 32)
	if err != nil {
		return 0, errors.Wrap(err, "syncid: malformed timestamp prefix")
	}
	return uint32(ts), nil
}

// Fid extracts the fid embedded in the SyncId.
func (id SyncId) Fid() Fid {
	off := TimestampPrefixLen + 1
	return Fid(binary.BigEndian.Uint64(id[off : off+fidLen]))
}

// Hash extracts the message hash embedded in the SyncId.
func (id SyncId) Hash() Hash20 {
	off := TimestampPrefixLen + 1 + fidLen + 1
	return HashFromBytes(id[off : off+HashSize])
}

// String renders the SyncId as its raw bytes interpreted as Latin-1-ish
// text; callers that need the wire form should use Bytes and send the raw
// 40 bytes, per §6 ("SyncId encoding on the wire: raw 40-byte binary").
func (id SyncId) String() string {
	return string(id[:])
}

// Bytes returns a fresh copy of the underlying 40 bytes.
func (id SyncId) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, id[:])
	return b
}

// FromBytes copies b (which must be exactly Size bytes) into a SyncId.
func FromBytes(b []byte) (SyncId, error) {
	var id SyncId
	if len(b) != Size {
		return id, errors.Errorf("syncid: expected %d bytes, got %d", Size, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// pkTimestampLen is the width of the timestamp field in the layout produced
// by DecodeToPrimaryKey:
// [family-prefix(1) | fid(8) | set-postfix(1) | timestamp(4) | hash(20)].
const (
	pkTimestampLen = 4
)

// DecodeToPrimaryKey reconstructs the store's primary key for the message
// that produced id: it re-expands the 10-digit ASCII timestamp prefix back
// into a fixed-width big-endian integer and splices it between the
// set-postfix and the hash, trading the 10 ASCII bytes used for
// time-ordering in the trie for O(1) translation to a fid-partitioned store
// key with no auxiliary index.
func DecodeToPrimaryKey(id SyncId) ([]byte, error) {
	ts, err := id.Timestamp()
	if err != nil {
		return nil, err
	}

	pk := make([]byte, 1+fidLen+1+pkTimestampLen+HashSize)
	off := 0
	pk[off] = FamilyPrefix
	off++

	fidOff := TimestampPrefixLen + 1
	copy(pk[off:off+fidLen], id[fidOff:fidOff+fidLen])
	off += fidLen

	postfixOff := fidOff + fidLen
	pk[off] = id[postfixOff]
	off++

	binary.BigEndian.PutUint32(pk[off:off+pkTimestampLen], ts)
	off += pkTimestampLen

	hashOff := postfixOff + 1
	copy(pk[off:off+HashSize], id[hashOff:hashOff+HashSize])

	return pk, nil
}
