// Package peerclient is the abstract remote capability §4.E describes:
// everything a SyncEngine needs to ask a peer for, with a uniform
// failure mode so the engine can branch on huberrs.Code without caring
// which transport answered.
package peerclient

import (
	"context"

	"github.com/hubswarm/syncd/hubstore"
	"github.com/hubswarm/syncd/merkletrie"
	"github.com/hubswarm/syncd/synctype"
)

// PeerRPC is the language-neutral remote capability SyncEngine drives a
// sync round against (§4.E). Every method's uniform failure mode is an
// error that, when non-nil, is always either a *huberrs.HubError or
// something huberrs.Wrap-compatible wraps one from — SyncEngine only
// ever inspects it via huberrs.Is/IsUnavailable/IsUnknownFid.
type PeerRPC interface {
	GetMetadataByPrefix(ctx context.Context, prefix []byte) (*merkletrie.NodeMetadata, error)
	GetSyncIdsByPrefix(ctx context.Context, prefix []byte) ([]synctype.SyncId, error)
	GetMessagesBySyncIds(ctx context.Context, ids []synctype.SyncId) ([]*hubstore.Message, error)
	GetIdRegistryEventByFid(ctx context.Context, fid synctype.Fid) (*hubstore.IdRegistryEvent, error)
	GetAllSignerMessagesByFid(ctx context.Context, fid synctype.Fid) ([]*hubstore.Message, error)
}
