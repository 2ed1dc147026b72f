package syncengine

import (
	"fmt"
	"time"

	"github.com/hubswarm/syncd/merkletrie"
	"github.com/hubswarm/syncd/synctype"
)

// snapshotThresholdSeconds is the §4.D quantization step: messages newer
// than this many seconds are excluded from comparison so that network
// propagation has a chance to settle before peers expect their tries to
// agree.
const snapshotThresholdSeconds = 10

// snapshotTimestamp quantizes now down to the nearest
// snapshotThresholdSeconds boundary (§4.D: "floor(now_epoch_seconds/10)*10").
func snapshotTimestamp(now time.Time) uint32 {
	sec := uint32(now.Unix())
	return (sec / snapshotThresholdSeconds) * snapshotThresholdSeconds
}

// DefaultSnapshotPrefix is the top 9 of the 10 timestamp digits for the
// quantized snapshot timestamp (§4.D: "using only the top 9 of 10
// timestamp digits when generating the default snapshot"). Since
// quantization always forces the trailing digit to 0, this is exactly the
// sync threshold: messages in the last (up to) 10 seconds are outside any
// node this prefix reaches.
func DefaultSnapshotPrefix(now time.Time) []byte {
	ts := snapshotTimestamp(now)
	full := fmt.Sprintf("%0*d", synctype.TimestampPrefixLen, ts)
	return []byte(full[:synctype.TimestampPrefixLen-1])
}

// DefaultSnapshot is the trie's snapshot at DefaultSnapshotPrefix(now),
// the baseline both shouldSync and performSync compare against.
func (e *SyncEngine) DefaultSnapshot(now time.Time) merkletrie.Snapshot {
	return e.trie.GetSnapshot(DefaultSnapshotPrefix(now))
}

// ShouldSync reports whether a sync round against a peer whose default
// snapshot carries peerExcludedHashes is worth starting (§4.D): false if
// a round is already in flight, otherwise true iff the two excluded-hash
// trails disagree anywhere, including in length (a peer snapshot that
// didn't reach as deep as ours, or vice versa, counts as a disagreement
// worth investigating).
func (e *SyncEngine) ShouldSync(peerExcludedHashes []synctype.Hash20) bool {
	if e.isSyncing() {
		return false
	}

	local := e.DefaultSnapshot(time.Now())
	if len(local.ExcludedHashes) != len(peerExcludedHashes) {
		return true
	}
	for i := range local.ExcludedHashes {
		if local.ExcludedHashes[i] != peerExcludedHashes[i] {
			return true
		}
	}
	return false
}
