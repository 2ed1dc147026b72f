package peerclient

import (
	"context"

	"github.com/hubswarm/syncd/hubrpc"
	"github.com/hubswarm/syncd/huberrs"
	"github.com/hubswarm/syncd/hubstore"
	"github.com/hubswarm/syncd/merkletrie"
	"github.com/hubswarm/syncd/synctype"
)

// GRPCPeerRPC is the reference PeerRPC backed by hubrpc's gRPC client:
// every call is a single RPC to a configured peer. Any error from the RPC
// itself is returned as huberrs.NetworkFailure, so huberrs.IsUnavailable
// holds for it; the remote HubError's own code (for example an unknown
// fid) is not recovered. A response that fails to decode is returned as a
// CodeBadRequestParse error.
type GRPCPeerRPC struct {
	client *hubrpc.Client
}

// NewGRPCPeerRPC wraps an already-dialed hubrpc client.
func NewGRPCPeerRPC(client *hubrpc.Client) *GRPCPeerRPC {
	return &GRPCPeerRPC{client: client}
}

func (p *GRPCPeerRPC) GetMetadataByPrefix(ctx context.Context, prefix []byte) (*merkletrie.NodeMetadata, error) {
	resp, err := p.client.GetSyncMetadataByPrefix(ctx, prefix)
	if err != nil {
		return nil, huberrs.NetworkFailure(err)
	}
	md, err := hubrpc.NodeMetadataFromWire(resp)
	if err != nil {
		return nil, huberrs.Wrap(huberrs.CodeBadRequestParse, err, "peerclient: decode metadata response")
	}
	return md, nil
}

func (p *GRPCPeerRPC) GetSyncIdsByPrefix(ctx context.Context, prefix []byte) ([]synctype.SyncId, error) {
	resp, err := p.client.GetAllSyncIdsByPrefix(ctx, prefix)
	if err != nil {
		return nil, huberrs.NetworkFailure(err)
	}
	ids := make([]synctype.SyncId, 0, len(resp.SyncIds))
	for _, b := range resp.SyncIds {
		id, err := synctype.FromBytes(b)
		if err != nil {
			return nil, huberrs.Wrap(huberrs.CodeBadRequestParse, err, "peerclient: decode sync id")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (p *GRPCPeerRPC) GetMessagesBySyncIds(ctx context.Context, ids []synctype.SyncId) ([]*hubstore.Message, error) {
	raw := make([][]byte, len(ids))
	for i, id := range ids {
		raw[i] = id.Bytes()
	}
	resp, err := p.client.GetAllMessagesBySyncIds(ctx, raw)
	if err != nil {
		return nil, huberrs.NetworkFailure(err)
	}
	ms, err := hubrpc.MessagesFromWire(resp.Messages)
	if err != nil {
		return nil, huberrs.Wrap(huberrs.CodeBadRequestParse, err, "peerclient: decode messages response")
	}
	return ms, nil
}

func (p *GRPCPeerRPC) GetIdRegistryEventByFid(ctx context.Context, fid synctype.Fid) (*hubstore.IdRegistryEvent, error) {
	resp, err := p.client.GetIdRegistryEventByFid(ctx, fid)
	if err != nil {
		return nil, huberrs.NetworkFailure(err)
	}
	return &hubstore.IdRegistryEvent{Fid: resp.Fid, SignerKey: resp.SignerKey, CustodyKey: resp.CustodyKey}, nil
}

func (p *GRPCPeerRPC) GetAllSignerMessagesByFid(ctx context.Context, fid synctype.Fid) ([]*hubstore.Message, error) {
	resp, err := p.client.GetAllSignerMessagesByFid(ctx, fid)
	if err != nil {
		return nil, huberrs.NetworkFailure(err)
	}
	ms, err := hubrpc.MessagesFromWire(resp.Messages)
	if err != nil {
		return nil, huberrs.Wrap(huberrs.CodeBadRequestParse, err, "peerclient: decode signer messages response")
	}
	return ms, nil
}
