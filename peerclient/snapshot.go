package peerclient

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hubswarm/syncd/hubrpc"
	"github.com/hubswarm/syncd/huberrs"
	"github.com/hubswarm/syncd/merkletrie"
)

// SnapshotFetcher is the capability syncengine's RoundRunner needs that
// §4.E's PeerRPC deliberately omits: fetching a peer's own default
// snapshot to decide whether a round is worth starting at all. It is kept
// separate from PeerRPC so that interface stays exactly what §4.E names;
// only the supplemented round scheduler depends on this one.
type SnapshotFetcher interface {
	GetSnapshotByPrefix(ctx context.Context, prefix []byte) (merkletrie.Snapshot, error)
}

func (p *GRPCPeerRPC) GetSnapshotByPrefix(ctx context.Context, prefix []byte) (merkletrie.Snapshot, error) {
	resp, err := p.client.GetSyncSnapshotByPrefix(ctx, prefix)
	if err != nil {
		return merkletrie.Snapshot{}, huberrs.NetworkFailure(err)
	}
	snap, err := hubrpc.SnapshotFromWire(resp)
	if err != nil {
		return merkletrie.Snapshot{}, huberrs.Wrap(huberrs.CodeBadRequestParse, err, "peerclient: decode snapshot response")
	}
	return snap, nil
}

// GetSnapshotByPrefix passes through to the wrapped PeerRPC when it also
// implements SnapshotFetcher (true for every *GRPCPeerRPC). Metadata
// caching does not apply here: a round's snapshot check happens at most
// once per round, so there is nothing to deduplicate.
func (c *CachedPeerRPC) GetSnapshotByPrefix(ctx context.Context, prefix []byte) (merkletrie.Snapshot, error) {
	sf, ok := c.PeerRPC.(SnapshotFetcher)
	if !ok {
		return merkletrie.Snapshot{}, errors.New("peerclient: wrapped PeerRPC does not support GetSnapshotByPrefix")
	}
	return sf.GetSnapshotByPrefix(ctx, prefix)
}
