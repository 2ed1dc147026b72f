// Package hubrpc is the wire-facing façade §6 describes: the shapes
// peers exchange and the gRPC service that carries them. The sync core
// itself only needs the interfaces in peerclient and hubstore; hubrpc is
// what lets those interfaces actually cross a network, the way the
// teacher's api/ package turns chain.Repository into an HTTP surface.
package hubrpc

import (
	"encoding/hex"
	"time"

	"github.com/pkg/errors"

	"github.com/hubswarm/syncd/hubstore"
	"github.com/hubswarm/syncd/merkletrie"
	"github.com/hubswarm/syncd/synctype"
)

// hexToHash decodes a lowercase-hex-encoded 20-byte digest, the wire form
// §6 mandates ("Hash encoding on the wire: lowercase hex strings").
func hexToHash(s string) (synctype.Hash20, error) {
	var h synctype.Hash20
	if s == "" {
		return h, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, errors.Wrap(err, "hubrpc: decode hash hex")
	}
	if len(b) != synctype.HashSize {
		return h, errors.Errorf("hubrpc: hash must be %d bytes, got %d", synctype.HashSize, len(b))
	}
	return synctype.HashFromBytes(b), nil
}

// PrefixRequest carries a trie path prefix, the argument to every
// prefix-scoped RPC (§6: GetSyncMetadataByPrefix, GetSyncSnapshotByPrefix,
// GetAllSyncIdsByPrefix).
type PrefixRequest struct {
	Prefix []byte
}

// FidRequest carries a single fid, the argument to the two registry/
// signer RPCs (§4.E).
type FidRequest struct {
	Fid synctype.Fid
}

// SyncIdsRequest carries the raw 40-byte SyncIds a peer wants resolved to
// full messages (§4.E getMessagesBySyncIds).
type SyncIdsRequest struct {
	SyncIds [][]byte
}

// GetInfoRequest is empty; GetInfo takes no arguments (§6).
type GetInfoRequest struct{}

// GetInfoResponse answers §6's GetInfo: build identity plus whether the
// engine is mid-round.
type GetInfoResponse struct {
	Version  string
	Commit   string
	Nickname string
	IsSynced bool
	RootHash string
}

// SyncIdsResponse is the raw-binary SyncId list §6 requires on the wire.
type SyncIdsResponse struct {
	SyncIds [][]byte
}

// WireMessage is a Message flattened for transport: the four sync-core
// fields plus the opaque payload bytes.
type WireMessage struct {
	Fid       synctype.Fid
	Type      synctype.MessageType
	Timestamp uint32
	Hash      []byte
	Payload   []byte
}

// MessagesResponse answers GetAllMessagesBySyncIds and
// GetAllSignerMessagesByFid (§4.E, §6).
type MessagesResponse struct {
	Messages []*WireMessage
}

// ChildMetadataResponse is one child row of a NodeMetadataResponse,
// hash encoded as lowercase hex per §6 ("Hash encoding on the wire").
type ChildMetadataResponse struct {
	Prefix      []byte
	NumMessages uint64
	Hash        string
}

// NodeMetadataResponse answers GetSyncMetadataByPrefix: one level of
// children, each leaf-only (§6: "children[i].children is empty").
type NodeMetadataResponse struct {
	Prefix      []byte
	NumMessages uint64
	Hash        string
	Children    []ChildMetadataResponse
}

// SnapshotResponse answers GetSyncSnapshotByPrefix (§6).
type SnapshotResponse struct {
	Prefix         []byte
	NumMessages    uint64
	RootHash       string
	ExcludedHashes []string
}

// IdRegistryEventResponse answers GetIdRegistryEventByFid (§4.E).
type IdRegistryEventResponse struct {
	Fid        synctype.Fid
	SignerKey  []byte
	CustodyKey []byte
}

// SubscribeRequest is §6's Subscribe argument: an empty EventTypes means
// "all event kinds".
type SubscribeRequest struct {
	EventTypes []string
}

// GetSyncHealthRequest is empty; GetSyncHealth takes no arguments.
type GetSyncHealthRequest struct{}

// PeerHealthResponse is one configured peer's round-scheduling status, a
// row of GetSyncHealthResponse's Peers.
type PeerHealthResponse struct {
	Nickname      string
	LastSuccessAt time.Time
	LastError     string
}

// GetSyncHealthResponse answers the supplemented admin RPC: trie size and
// root hash plus per-peer last-sync detail, so an operator can tell which
// peer (if any) is failing to converge without tailing logs.
type GetSyncHealthResponse struct {
	ItemCount uint64
	RootHash  string
	Peers     []PeerHealthResponse
}

// EventResponse is one frame of the Subscribe stream: either a status
// frame (§6: "server emits a metadata frame status=ready once listeners
// are attached") or a typed hubstore event.
type EventResponse struct {
	Status            string
	Kind              string
	Message           *WireMessage
	Deleted           []*WireMessage
	IdRegistryEvent   *IdRegistryEventResponse
	NameRegistryEvent *NameRegistryEventResponse
}

// NameRegistryEventResponse mirrors hubstore.NameRegistryEvent on the
// wire.
type NameRegistryEventResponse struct {
	Name string
	Fid  synctype.Fid
}

// ToWireMessage flattens a hubstore.Message for transport.
func ToWireMessage(m *hubstore.Message) *WireMessage {
	if m == nil {
		return nil
	}
	h := m.Hash()
	return &WireMessage{
		Fid:       m.Fid(),
		Type:      m.Type(),
		Timestamp: m.Timestamp(),
		Hash:      h.Bytes(),
		Payload:   m.Payload,
	}
}

// MessageFromWire reconstructs a hubstore.Message from its wire form.
func MessageFromWire(w *WireMessage) (*hubstore.Message, error) {
	if w == nil {
		return nil, nil
	}
	if len(w.Hash) != synctype.HashSize {
		return nil, errors.Errorf("hubrpc: wire message hash must be %d bytes, got %d", synctype.HashSize, len(w.Hash))
	}
	return &hubstore.Message{
		FidValue:       w.Fid,
		TypeValue:      w.Type,
		TimestampValue: w.Timestamp,
		HashValue:      synctype.HashFromBytes(w.Hash),
		Payload:        w.Payload,
	}, nil
}

// MessagesToWire flattens a batch of messages for transport.
func MessagesToWire(ms []*hubstore.Message) []*WireMessage {
	out := make([]*WireMessage, len(ms))
	for i, m := range ms {
		out[i] = ToWireMessage(m)
	}
	return out
}

// MessagesFromWire reconstructs a batch of messages from their wire form.
func MessagesFromWire(ws []*WireMessage) ([]*hubstore.Message, error) {
	out := make([]*hubstore.Message, len(ws))
	for i, w := range ws {
		m, err := MessageFromWire(w)
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

// NodeMetadataToWire converts a trie NodeMetadata to its wire shape,
// hex-encoding hashes per §6.
func NodeMetadataToWire(md *merkletrie.NodeMetadata) *NodeMetadataResponse {
	if md == nil {
		return nil
	}
	children := make([]ChildMetadataResponse, 0, len(md.Children))
	for _, b := range sortedChildKeys(md.Children) {
		c := md.Children[b]
		children = append(children, ChildMetadataResponse{
			Prefix:      c.Prefix,
			NumMessages: c.NumMessages,
			Hash:        c.Hash.String(),
		})
	}
	return &NodeMetadataResponse{
		Prefix:      md.Prefix,
		NumMessages: md.NumMessages,
		Hash:        md.Hash.String(),
		Children:    children,
	}
}

func sortedChildKeys(children map[byte]merkletrie.ChildMetadata) []byte {
	keys := make([]byte, 0, len(children))
	for b := range children {
		keys = append(keys, b)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

// SnapshotToWire converts a trie Snapshot to its wire shape.
func SnapshotToWire(snap merkletrie.Snapshot, rootHash string) *SnapshotResponse {
	hashes := make([]string, len(snap.ExcludedHashes))
	for i, h := range snap.ExcludedHashes {
		hashes[i] = h.String()
	}
	return &SnapshotResponse{
		Prefix:         snap.Prefix,
		NumMessages:    snap.NumMessages,
		RootHash:       rootHash,
		ExcludedHashes: hashes,
	}
}

// SnapshotFromWire converts the wire shape back into a merkletrie.Snapshot,
// re-parsing hex hashes. The wire's RootHash is returned separately since
// merkletrie.Snapshot itself carries no root hash field.
func SnapshotFromWire(r *SnapshotResponse) (merkletrie.Snapshot, error) {
	if r == nil {
		return merkletrie.Snapshot{}, nil
	}
	hashes := make([]synctype.Hash20, len(r.ExcludedHashes))
	for i, s := range r.ExcludedHashes {
		h, err := hexToHash(s)
		if err != nil {
			return merkletrie.Snapshot{}, err
		}
		hashes[i] = h
	}
	return merkletrie.Snapshot{
		Prefix:         r.Prefix,
		ExcludedHashes: hashes,
		NumMessages:    r.NumMessages,
	}, nil
}

// NodeMetadataFromWire converts the wire shape back into a
// peerclient-usable NodeMetadata, re-parsing hex hashes.
func NodeMetadataFromWire(r *NodeMetadataResponse) (*merkletrie.NodeMetadata, error) {
	if r == nil {
		return nil, nil
	}
	hash, err := hexToHash(r.Hash)
	if err != nil {
		return nil, err
	}
	children := make(map[byte]merkletrie.ChildMetadata, len(r.Children))
	for _, c := range r.Children {
		if len(c.Prefix) == 0 {
			continue
		}
		ch, err := hexToHash(c.Hash)
		if err != nil {
			return nil, err
		}
		children[c.Prefix[len(c.Prefix)-1]] = merkletrie.ChildMetadata{
			Prefix:      c.Prefix,
			NumMessages: c.NumMessages,
			Hash:        ch,
		}
	}
	return &merkletrie.NodeMetadata{
		Prefix:      r.Prefix,
		NumMessages: r.NumMessages,
		Hash:        hash,
		Children:    children,
	}, nil
}
