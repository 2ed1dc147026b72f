// Package rpcserver is the server-side adapter wiring syncengine and
// hubstore into hubrpc's SyncServer, the way the teacher's api.New wires
// chain.Repository and txpool into an http.Handler. It is the one piece
// of the sync core that drives, rather than is driven by, the other
// packages: everything it touches is already a finished, independently
// testable surface (the trie via *syncengine.SyncEngine, the corpus via
// *hubstore.Store).
package rpcserver

import (
	"context"

	"github.com/hubswarm/syncd/hubrpc"
	"github.com/hubswarm/syncd/huberrs"
	"github.com/hubswarm/syncd/hubstore"
	"github.com/hubswarm/syncd/log"
	"github.com/hubswarm/syncd/synctype"
	"github.com/hubswarm/syncd/syncengine"
)

// BuildInfo is the version/commit/nickname triple §6's GetInfo reports,
// populated from cmd/hubsyncd's ldflags-style build-time variables, the
// same pattern as the teacher's cmd/thor/main.go version/gitCommit pair.
type BuildInfo struct {
	Version  string
	Commit   string
	Nickname string
}

// Server implements hubrpc.SyncServer over one engine/store pair.
type Server struct {
	engine *syncengine.SyncEngine
	store  *hubstore.Store
	runner *syncengine.RoundRunner
	build  BuildInfo
	log    log.Logger
}

// New returns a Server. engine's trie is read concurrently by RPC callers
// while RoundRunner.Run is the trie's sole mutator elsewhere (§5): every
// read here goes through the trie's already-safe read-only accessors, so
// no further synchronization is needed on this side. runner may be nil
// (GetSyncHealth then reports zero peers), for callers that don't yet
// have a scheduler wired, such as most of this package's own tests.
func New(engine *syncengine.SyncEngine, store *hubstore.Store, runner *syncengine.RoundRunner, build BuildInfo) *Server {
	return &Server{
		engine: engine,
		store:  store,
		runner: runner,
		build:  build,
		log:    log.New("pkg", "rpcserver"),
	}
}

var _ hubrpc.SyncServer = (*Server)(nil)

func (s *Server) GetInfo(ctx context.Context, req *hubrpc.GetInfoRequest) (*hubrpc.GetInfoResponse, error) {
	return &hubrpc.GetInfoResponse{
		Version:  s.build.Version,
		Commit:   s.build.Commit,
		Nickname: s.build.Nickname,
		IsSynced: !s.engine.IsSyncing(),
		RootHash: s.engine.Trie().RootHash(),
	}, nil
}

func (s *Server) GetAllSyncIdsByPrefix(ctx context.Context, req *hubrpc.PrefixRequest) (*hubrpc.SyncIdsResponse, error) {
	ids := s.engine.Trie().GetValuesByPrefix(req.Prefix)
	out := make([][]byte, len(ids))
	for i, id := range ids {
		out[i] = id.Bytes()
	}
	return &hubrpc.SyncIdsResponse{SyncIds: out}, nil
}

func (s *Server) GetAllMessagesBySyncIds(ctx context.Context, req *hubrpc.SyncIdsRequest) (*hubrpc.MessagesResponse, error) {
	ids := make([]synctype.SyncId, len(req.SyncIds))
	for i, b := range req.SyncIds {
		id, err := synctype.FromBytes(b)
		if err != nil {
			return nil, huberrs.Wrap(huberrs.CodeBadRequestParse, err, "rpcserver: decode sync id")
		}
		ids[i] = id
	}
	ms, err := s.store.MessagesBySyncIds(ids)
	if err != nil {
		return nil, err
	}
	return &hubrpc.MessagesResponse{Messages: hubrpc.MessagesToWire(ms)}, nil
}

func (s *Server) GetSyncMetadataByPrefix(ctx context.Context, req *hubrpc.PrefixRequest) (*hubrpc.NodeMetadataResponse, error) {
	md := s.engine.Trie().GetTrieNodeMetadata(req.Prefix)
	if md == nil {
		return nil, huberrs.NotFound("trie node")
	}
	return hubrpc.NodeMetadataToWire(md), nil
}

func (s *Server) GetSyncSnapshotByPrefix(ctx context.Context, req *hubrpc.PrefixRequest) (*hubrpc.SnapshotResponse, error) {
	snap := s.engine.Trie().GetSnapshot(req.Prefix)
	return hubrpc.SnapshotToWire(snap, s.engine.Trie().RootHash()), nil
}

func (s *Server) GetIdRegistryEventByFid(ctx context.Context, req *hubrpc.FidRequest) (*hubrpc.IdRegistryEventResponse, error) {
	e, err := s.store.GetIdRegistryEvent(req.Fid)
	if err != nil {
		return nil, err
	}
	return &hubrpc.IdRegistryEventResponse{Fid: e.Fid, SignerKey: e.SignerKey, CustodyKey: e.CustodyKey}, nil
}

func (s *Server) GetAllSignerMessagesByFid(ctx context.Context, req *hubrpc.FidRequest) (*hubrpc.MessagesResponse, error) {
	ms, err := s.store.MessagesByFid(req.Fid)
	if err != nil {
		return nil, err
	}
	return &hubrpc.MessagesResponse{Messages: hubrpc.MessagesToWire(ms)}, nil
}

// GetSyncHealth answers the supplemented admin RPC (§4 SUPPLEMENTED
// FEATURES #4): trie size/root hash plus per-peer last-sync detail drawn
// from the RoundRunner driving this server, if one is wired.
func (s *Server) GetSyncHealth(ctx context.Context, req *hubrpc.GetSyncHealthRequest) (*hubrpc.GetSyncHealthResponse, error) {
	resp := &hubrpc.GetSyncHealthResponse{
		ItemCount: s.engine.Trie().Items(),
		RootHash:  s.engine.Trie().RootHash(),
	}
	if s.runner == nil {
		return resp, nil
	}
	for _, h := range s.runner.Health() {
		resp.Peers = append(resp.Peers, hubrpc.PeerHealthResponse{
			Nickname:      h.Nickname,
			LastSuccessAt: h.LastSuccessAt,
			LastError:     h.LastError,
		})
	}
	return resp, nil
}

// Subscribe implements §6's server-streaming RPC: a status=ready frame
// once the listener is attached, then every store event as it is
// published, filtered to req.EventTypes when non-empty. It detaches on
// stream close or cancel, per §5's "listeners must be detached on stream
// close to avoid leaks".
func (s *Server) Subscribe(req *hubrpc.SubscribeRequest, stream hubrpc.SyncService_SubscribeServer) error {
	sub := s.store.Subscribe()
	defer sub.Unsubscribe()

	want := make(map[string]struct{}, len(req.EventTypes))
	for _, t := range req.EventTypes {
		want[t] = struct{}{}
	}

	if err := stream.Send(&hubrpc.EventResponse{Status: "ready"}); err != nil {
		return err
	}

	for {
		select {
		case <-stream.Context().Done():
			return stream.Context().Err()
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			kind := eventKindWire(ev.Kind)
			if len(want) > 0 {
				if _, ok := want[kind]; !ok {
					continue
				}
			}
			if err := stream.Send(eventToWire(kind, ev)); err != nil {
				return err
			}
		}
	}
}

func eventKindWire(k hubstore.EventKind) string {
	switch k {
	case hubstore.EventMergeMessage:
		return "mergeMessage"
	case hubstore.EventPruneMessage:
		return "pruneMessage"
	case hubstore.EventRevokeMessage:
		return "revokeMessage"
	case hubstore.EventMergeIdRegistry:
		return "mergeIdRegistryEvent"
	case hubstore.EventMergeNameRegistry:
		return "mergeNameRegistryEvent"
	default:
		return "unknown"
	}
}

func eventToWire(kind string, ev hubstore.Event) *hubrpc.EventResponse {
	out := &hubrpc.EventResponse{Kind: kind, Message: hubrpc.ToWireMessage(ev.Message)}
	for _, d := range ev.Deleted {
		out.Deleted = append(out.Deleted, hubrpc.ToWireMessage(d))
	}
	if ev.IdRegistryEvent != nil {
		out.IdRegistryEvent = &hubrpc.IdRegistryEventResponse{
			Fid:        ev.IdRegistryEvent.Fid,
			SignerKey:  ev.IdRegistryEvent.SignerKey,
			CustodyKey: ev.IdRegistryEvent.CustodyKey,
		}
	}
	if ev.NameRegistryEvent != nil {
		out.NameRegistryEvent = &hubrpc.NameRegistryEventResponse{
			Name: ev.NameRegistryEvent.Name,
			Fid:  ev.NameRegistryEvent.Fid,
		}
	}
	return out
}
