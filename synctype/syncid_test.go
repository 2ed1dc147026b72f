package synctype_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubswarm/syncd/synctype"
)

type fakeMessage struct {
	fid  synctype.Fid
	typ  synctype.MessageType
	ts   uint32
	hash synctype.Hash20
}

func (m fakeMessage) Fid() synctype.Fid             { return m.fid }
func (m fakeMessage) Type() synctype.MessageType     { return m.typ }
func (m fakeMessage) Timestamp() uint32              { return m.ts }
func (m fakeMessage) Hash() synctype.Hash20          { return m.hash }

func TestEncodeLength(t *testing.T) {
	m := fakeMessage{fid: 42, typ: synctype.MessageTypeCastAdd, ts: 1665182332, hash: synctype.Hash160([]byte("a"))}
	id := synctype.Encode(m)
	assert.Len(t, id.Bytes(), synctype.Size)
}

func TestEncodeTimestampPrefix(t *testing.T) {
	m := fakeMessage{fid: 1, typ: synctype.MessageTypeCastAdd, ts: 1665182332, hash: synctype.Hash160([]byte("a"))}
	id := synctype.Encode(m)
	assert.Equal(t, "1665182332", string(id.Bytes()[:synctype.TimestampPrefixLen]))

	ts, err := id.Timestamp()
	require.NoError(t, err)
	assert.Equal(t, uint32(1665182332), ts)
}

func TestEncodeRoundTripsFidAndHash(t *testing.T) {
	h := synctype.Hash160([]byte("hello"))
	m := fakeMessage{fid: 999, typ: synctype.MessageTypeReactionAdd, ts: 100, hash: h}
	id := synctype.Encode(m)
	assert.Equal(t, synctype.Fid(999), id.Fid())
	assert.Equal(t, h, id.Hash())
}

func TestSetPostfixGroupsAddsAndRemoves(t *testing.T) {
	addID := synctype.Encode(fakeMessage{typ: synctype.MessageTypeCastAdd, hash: synctype.Hash160([]byte("x"))})
	removeID := synctype.Encode(fakeMessage{typ: synctype.MessageTypeCastRemove, hash: synctype.Hash160([]byte("x"))})
	assert.NotEqual(t, addID, removeID)
}

func TestDecodeToPrimaryKeyRoundTrip(t *testing.T) {
	h := synctype.Hash160([]byte("payload"))
	m := fakeMessage{fid: 7, typ: synctype.MessageTypeLinkAdd, ts: 1665182343, hash: h}
	id := synctype.Encode(m)

	pk, err := synctype.DecodeToPrimaryKey(id)
	require.NoError(t, err)

	// family prefix, then the 8-byte fid, then set-postfix, then a 4-byte
	// big-endian timestamp re-expanded from the ASCII prefix, then the hash.
	assert.Equal(t, synctype.FamilyPrefix, pk[0])
	assert.Equal(t, h.Bytes(), pk[len(pk)-synctype.HashSize:])
}

func TestFromBytesRejectsWrongLength(t *testing.T) {
	_, err := synctype.FromBytes(make([]byte, 10))
	assert.Error(t, err)
}

func TestEncodeIsTotalOnNilMessage(t *testing.T) {
	assert.NotPanics(t, func() {
		synctype.Encode(nil)
	})
}
