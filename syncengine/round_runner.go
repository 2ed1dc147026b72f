package syncengine

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/hubswarm/syncd/co"
	"github.com/hubswarm/syncd/log"
	"github.com/hubswarm/syncd/peerclient"
)

// tickSource is satisfied by hubstore.Store: RoundRunner uses it to wake
// a scheduled round early when local activity makes one more likely to
// matter, without coupling syncengine's core operations to anything
// beyond the LocalStore interface §4.F names.
type tickSource interface {
	Tick() co.Waiter
}

// Peer is one round-scheduling target: the abstract §4.E capability the
// sync core drives, plus the supplemented snapshot-fetch capability the
// scheduler needs to decide whether a round is worth starting.
type Peer struct {
	Nickname string
	RPC      peerclient.PeerRPC
	Snapshot peerclient.SnapshotFetcher
}

// RoundRunner is the outer scheduler §4.D explicitly leaves to the
// caller ("There is no retry loop inside the engine; the outer scheduler
// triggers rounds periodically"). It is a supplemented feature grounded
// on the teacher's packerLoop: a ticker-driven select loop over a
// context, with a guard against overlapping work and key/value logging
// at each step.
type RoundRunner struct {
	engine   *SyncEngine
	peers    []Peer
	interval time.Duration
	log      log.Logger

	next      int
	failures  map[string]int
	backoffAt map[string]time.Time

	// healthMu guards health, the only RoundRunner state read from
	// outside Run's goroutine (rpcserver's GetSyncHealth handler).
	healthMu sync.Mutex
	health   map[string]*PeerHealth
}

// PeerHealth is one peer's round-scheduling status, the supplemented
// admin surface's per-peer detail (§4 SUPPLEMENTED FEATURES #4).
type PeerHealth struct {
	Nickname      string
	LastSuccessAt time.Time
	LastError     string
}

// NewRoundRunner returns a scheduler that considers one peer from peers
// (round robin) every interval.
func NewRoundRunner(engine *SyncEngine, peers []Peer, interval time.Duration) *RoundRunner {
	health := make(map[string]*PeerHealth, len(peers))
	for _, p := range peers {
		health[p.Nickname] = &PeerHealth{Nickname: p.Nickname}
	}
	return &RoundRunner{
		engine:    engine,
		peers:     peers,
		interval:  interval,
		log:       log.New("pkg", "syncengine", "component", "round_runner"),
		failures:  make(map[string]int),
		backoffAt: make(map[string]time.Time),
		health:    health,
	}
}

// Health returns a point-in-time snapshot of every configured peer's
// round status, sorted by nickname. Safe to call concurrently with Run.
func (r *RoundRunner) Health() []PeerHealth {
	r.healthMu.Lock()
	defer r.healthMu.Unlock()
	out := make([]PeerHealth, 0, len(r.health))
	for _, h := range r.health {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nickname < out[j].Nickname })
	return out
}

func (r *RoundRunner) recordSuccess(nickname string) {
	r.healthMu.Lock()
	defer r.healthMu.Unlock()
	h, ok := r.health[nickname]
	if !ok {
		h = &PeerHealth{Nickname: nickname}
		r.health[nickname] = h
	}
	h.LastSuccessAt = time.Now()
	h.LastError = ""
}

func (r *RoundRunner) recordPeerError(nickname string, err error) {
	r.healthMu.Lock()
	defer r.healthMu.Unlock()
	h, ok := r.health[nickname]
	if !ok {
		h = &PeerHealth{Nickname: nickname}
		r.health[nickname] = h
	}
	h.LastError = err.Error()
}

// Run is the sync core's single cooperative task (§5): it owns the store
// subscription that feeds the engine's trie listener and the ticker that
// drives sync rounds, applying both on this one goroutine so that trie
// mutations from event application and from a round's merges never
// overlap. Run blocks until ctx is done.
func (r *RoundRunner) Run(ctx context.Context) {
	sub := r.engine.store.Subscribe()
	defer sub.Unsubscribe()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	wake := r.nextWake()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			r.engine.ApplyEvent(ev)
		case <-ticker.C:
			r.tryRound(ctx)
		case <-wake:
			r.tryRound(ctx)
			wake = r.nextWake()
		}
	}
}

func (r *RoundRunner) nextWake() <-chan struct{} {
	if ts, ok := r.engine.store.(tickSource); ok {
		return ts.Tick().C()
	}
	return nil
}

func (r *RoundRunner) tryRound(ctx context.Context) {
	if len(r.peers) == 0 {
		return
	}
	p := r.peers[r.next%len(r.peers)]
	r.next++

	if until, ok := r.backoffAt[p.Nickname]; ok && time.Now().Before(until) {
		return
	}

	prefix := DefaultSnapshotPrefix(time.Now())
	snap, err := p.Snapshot.GetSnapshotByPrefix(ctx, prefix)
	if err != nil {
		r.recordFailure(p.Nickname)
		r.recordPeerError(p.Nickname, err)
		r.log.Warn("fetch peer snapshot", "peer", p.Nickname, "err", err)
		return
	}

	if !r.engine.ShouldSync(snap.ExcludedHashes) {
		r.clearFailure(p.Nickname)
		r.recordSuccess(p.Nickname)
		return
	}

	if err := r.engine.PerformSync(ctx, snap.ExcludedHashes, p.RPC); err != nil {
		r.recordFailure(p.Nickname)
		r.recordPeerError(p.Nickname, err)
		return
	}
	r.clearFailure(p.Nickname)
	r.recordSuccess(p.Nickname)
}

// recordFailure applies jittered exponential backoff: the base wait
// doubles from one interval with each consecutive failure and stops
// growing at the eighth (128 intervals), plus up to one interval of
// jitter, so a persistently unreachable peer doesn't monopolize the
// scheduler's attention.
func (r *RoundRunner) recordFailure(nickname string) {
	r.failures[nickname]++
	n := r.failures[nickname]
	if n > 8 {
		n = 8
	}
	base := r.interval * time.Duration(1<<uint(n-1))
	jitter := time.Duration(rand.Int63n(int64(r.interval) + 1))
	r.backoffAt[nickname] = time.Now().Add(base + jitter)
}

func (r *RoundRunner) clearFailure(nickname string) {
	delete(r.failures, nickname)
	delete(r.backoffAt, nickname)
}
