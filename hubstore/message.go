// Package hubstore is the local message store the sync core treats as an
// external collaborator (spec §1, §4.F): it persists the signed-message
// corpus, resolves fid custody, and emits the merge/prune/revoke event
// stream syncengine's trie maintenance subscribes to.
package hubstore

import (
	"github.com/hubswarm/syncd/synctype"
)

// Message is the concrete, storable form of the four fields the sync core
// derives a SyncId from, plus the opaque payload bytes a real message
// carries. The core itself only ever sees it through the synctype.Message
// interface; hubstore is where a SyncId gets resolved back to something
// with a body.
type Message struct {
	FidValue       synctype.Fid
	TypeValue      synctype.MessageType
	TimestampValue uint32
	HashValue      synctype.Hash20
	Payload        []byte
}

func (m *Message) Fid() synctype.Fid             { return m.FidValue }
func (m *Message) Type() synctype.MessageType     { return m.TypeValue }
func (m *Message) Timestamp() uint32              { return m.TimestampValue }
func (m *Message) Hash() synctype.Hash20          { return m.HashValue }

// SyncId is a convenience wrapper around synctype.Encode for a stored
// Message.
func (m *Message) SyncId() synctype.SyncId {
	return synctype.Encode(m)
}

// IdRegistryEvent is the custody record for an fid: it establishes that a
// given fid exists and is controlled by a given signer key. Merging one is
// what moves an fid from "unknown" to "known" in the local store (§4.D's
// syncUserAndRetryMessage step 1).
type IdRegistryEvent struct {
	Fid        synctype.Fid
	SignerKey  []byte
	CustodyKey []byte
}

// NameRegistryEvent records a username/fname claim. The sync core never
// inspects it; it is merged and replayed through the event stream purely
// so a complete local store has somewhere to put it (§4.F lists
// mergeNameRegistryEvent as a first-class event alongside the message
// events).
type NameRegistryEvent struct {
	Name string
	Fid  synctype.Fid
}
