package syncengine

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hubswarm/syncd/hubstore"
	"github.com/hubswarm/syncd/huberrs"
	"github.com/hubswarm/syncd/merkletrie"
	"github.com/hubswarm/syncd/peerclient"
	"github.com/hubswarm/syncd/synctype"
)

// HashesPerFetch is §4.D's HASHES_PER_FETCH: once a remote node's subtree
// is small enough, it's cheaper to fetch every SyncId under it directly
// than to keep recursing child by child.
const HashesPerFetch = 50

// divergenceFanout bounds how many diverging children of a single node
// fetchMissingHashesByNode will recurse into concurrently. The recursion
// only reads peer metadata and the local trie (never mutates it), so
// fanning it out is safe under §5's single-mutator model; the bound keeps
// one wide node from opening hundreds of simultaneous peer RPCs.
const divergenceFanout = 8

// MergeResult pairs a fetched message with the outcome of merging it,
// the per-message detail §4.D's mergeMessages returns to its caller.
type MergeResult struct {
	Message *hubstore.Message
	Err     error
}

// PerformSync runs one sync round against peer, whose default snapshot
// carried peerExcludedHashes (§4.D). Guarded by the advisory isSyncing
// flag; every exit path clears it. All failures are logged and returned,
// never panicked.
func (e *SyncEngine) PerformSync(ctx context.Context, peerExcludedHashes []synctype.Hash20, peer peerclient.PeerRPC) error {
	if !e.trySetSyncing() {
		return nil
	}
	defer e.clearSyncing()

	prefix := DefaultSnapshotPrefix(time.Now())
	divergence := e.trie.GetDivergencePrefix(prefix, peerExcludedHashes)

	syncIds, err := e.FetchMissingHashesByPrefix(ctx, divergence, peer)
	if err != nil {
		e.log.Error("fetch missing hashes", "divergence", string(divergence), "err", err)
		return err
	}

	results, err := e.FetchAndMergeMessages(ctx, syncIds, peer)
	if err != nil {
		e.log.Error("fetch and merge messages", "count", len(syncIds), "err", err)
		return err
	}

	var merged, failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
		} else {
			merged++
		}
	}
	e.syncRoundsMeter.Add(1)
	e.messagesMergeMeter.Add(int64(merged))
	e.divergenceDepth.Observe(int64(len(divergence)))
	e.log.Info("sync round complete",
		"divergence", string(divergence),
		"syncIds", len(syncIds),
		"merged", merged,
		"failed", failed,
	)
	return nil
}

// FetchMissingHashesByPrefix is §4.D's top-level divergence-fetch entry:
// it compares our and the peer's node metadata at prefix and either
// fetches the SyncIds directly (small subtree) or recurses into
// disagreeing children.
func (e *SyncEngine) FetchMissingHashesByPrefix(ctx context.Context, prefix []byte, peer peerclient.PeerRPC) ([]synctype.SyncId, error) {
	theirNode, err := peer.GetMetadataByPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if theirNode == nil {
		return nil, nil
	}

	ourNode := e.trie.GetTrieNodeMetadata(prefix)
	return e.fetchMissingHashesByNode(ctx, prefix, ourNode, theirNode, peer)
}

// fetchMissingHashesByNode implements the recursive step of §4.D's
// algorithm given already-fetched metadata for both sides at prefix. The
// diverging children are fetched concurrently, bounded by
// divergenceFanout, via errgroup: each branch only reads peer metadata and
// the local trie, so the fan-out carries no ordering requirement the way
// MergeMessages's sequential merge does.
func (e *SyncEngine) fetchMissingHashesByNode(ctx context.Context, prefix []byte, ourNode, theirNode *merkletrie.NodeMetadata, peer peerclient.PeerRPC) ([]synctype.SyncId, error) {
	if theirNode.NumMessages <= HashesPerFetch {
		return peer.GetSyncIdsByPrefix(ctx, prefix)
	}

	var diverging [][]byte
	for _, b := range sortedChildBytes(theirNode.Children) {
		theirChild := theirNode.Children[b]

		var ourHash synctype.Hash20
		if ourNode != nil {
			if c, ok := ourNode.Children[b]; ok {
				ourHash = c.Hash
			}
		}
		// absent local child counts as unequal: a zero Hash20 never
		// equals a real subtree hash, so this falls out of the plain
		// comparison without a separate presence check.
		if ourHash == theirChild.Hash {
			continue
		}
		diverging = append(diverging, theirChild.Prefix)
	}

	results := make([][]synctype.SyncId, len(diverging))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(divergenceFanout)
	for i, childPrefix := range diverging {
		i, childPrefix := i, childPrefix
		g.Go(func() error {
			childIds, err := e.FetchMissingHashesByPrefix(gctx, childPrefix, peer)
			if err != nil {
				return err
			}
			results[i] = childIds
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []synctype.SyncId
	for _, ids := range results {
		out = append(out, ids...)
	}
	return out, nil
}

func sortedChildBytes(children map[byte]merkletrie.ChildMetadata) []byte {
	keys := make([]byte, 0, len(children))
	for b := range children {
		keys = append(keys, b)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// FetchAndMergeMessages fetches the full messages for ids and merges
// them (§4.D). A nil/empty ids is a no-op.
func (e *SyncEngine) FetchAndMergeMessages(ctx context.Context, ids []synctype.SyncId, peer peerclient.PeerRPC) ([]MergeResult, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	messages, err := peer.GetMessagesBySyncIds(ctx, ids)
	if err != nil {
		return nil, err
	}
	return e.MergeMessages(ctx, messages, peer), nil
}

// MergeMessages sorts messages by timestamp ascending (stable tie-break
// by input order, §4.D) and merges them into the local store sequentially
// — never in parallel, so that dependency recovery stays deterministic
// and a foreign user whose recovery succeeded is not fetched again in the
// same round (one whose recovery failed is fetched again for its next
// message). An
// unknown-fid or invalid-signer failure triggers SyncUserAndRetryMessage;
// any other failure is recorded as-is.
func (e *SyncEngine) MergeMessages(ctx context.Context, messages []*hubstore.Message, peer peerclient.PeerRPC) []MergeResult {
	sorted := make([]*hubstore.Message, len(messages))
	copy(sorted, messages)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp() < sorted[j].Timestamp()
	})

	results := make([]MergeResult, len(sorted))
	for i, m := range sorted {
		err := e.store.MergeMessage(m)
		if huberrs.IsUnknownFid(err) {
			err = e.SyncUserAndRetryMessage(ctx, m, peer)
		}
		results[i] = MergeResult{Message: m, Err: err}
	}
	return results
}

// SyncUserAndRetryMessage repairs the one dependency gap the engine is
// allowed to (§4.D, §7): a message from an fid we've never established
// custody for. It fetches and merges the fid's ID registry event, then
// its signer-add messages, then retries the original merge once. If no
// signer message merged, custody still could not be established locally,
// so the retry is skipped and huberrs.UnknownFid is returned rather than
// papering over an unresolved dependency.
func (e *SyncEngine) SyncUserAndRetryMessage(ctx context.Context, m *hubstore.Message, peer peerclient.PeerRPC) error {
	event, err := peer.GetIdRegistryEventByFid(ctx, m.Fid())
	if err != nil {
		return err
	}
	if err := e.store.MergeIdRegistryEvent(event); err != nil {
		return err
	}

	signerMessages, err := peer.GetAllSignerMessagesByFid(ctx, m.Fid())
	if err != nil {
		return err
	}

	var merged int
	for _, sm := range signerMessages {
		if err := e.store.MergeMessage(sm); err == nil {
			merged++
		}
	}
	if merged == 0 {
		return huberrs.UnknownFid()
	}

	return e.store.MergeMessage(m)
}
