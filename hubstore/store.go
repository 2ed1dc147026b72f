package hubstore

import (
	"sync"

	"github.com/hubswarm/syncd/co"
	"github.com/hubswarm/syncd/huberrs"
	"github.com/hubswarm/syncd/kv"
	"github.com/hubswarm/syncd/synctype"
)

// LocalStore is the local capability §4.F requires of the sync core's
// collaborator: iterate the corpus, merge new state, and emit a
// merge/prune/revoke event stream the SyncEngine's trie listeners
// subscribe to.
type LocalStore interface {
	ForEachMessage(fn func(m *Message) error) error
	MergeMessage(m *Message) error
	MergeMessages(ms []*Message) []error
	MergeIdRegistryEvent(e *IdRegistryEvent) error
	MergeNameRegistryEvent(e *NameRegistryEvent) error
	PruneMessage(m *Message) error
	RevokeMessage(m *Message) error
	Subscribe() *Subscription
}

// Store is the in-memory-indexed reference LocalStore: an Engine for
// durable bytes, a small in-memory set of fids with established custody
// (populated from merged IdRegistryEvents), and an event bus syncengine
// listens on. It is the hub analogue of the teacher's chain.Repository:
// state mutations flow through one narrow surface and fan out to
// subscribers via the same co.Signal-backed bus idiom.
type Store struct {
	engine Engine
	bus    *eventBus

	mu        sync.RWMutex
	knownFids map[synctype.Fid]struct{}
}

// NewStore builds a Store over src, restoring its known-fid set from any
// IdRegistryEvents already persisted there (e.g. across a process
// restart, since the trie itself is rebuilt fresh every time but the
// store's durable state is not).
func NewStore(src kv.Store) (*Store, error) {
	s := &Store{
		engine:    NewEngine(src),
		bus:       newEventBus(),
		knownFids: make(map[synctype.Fid]struct{}),
	}
	err := s.engine.ForEachIdRegistryEvent(func(fid synctype.Fid, _ *IdRegistryEvent) error {
		s.knownFids[fid] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ForEachMessage streams every stored message to fn, in primary-key
// order, for the SyncEngine's startup trie rebuild (§4.D).
func (s *Store) ForEachMessage(fn func(m *Message) error) error {
	return s.engine.ForEachMessage(func(_ []byte, m *Message) error {
		return fn(m)
	})
}

// MergeMessage stores m if its fid has established custody, publishing a
// mergeMessage event on success. An unknown fid returns huberrs.UnknownFid
// so SyncEngine's dependency recovery (§4.D syncUserAndRetryMessage) knows
// to fetch custody and retry.
//
// The reference implementation never supersedes a prior message on merge
// (Event.Deleted is always empty here): resolving conflicting domain
// payloads is an explicit Non-goal of the sync core (spec §1), so nothing
// here invents CRDT-style supersession logic. The Deleted field exists on
// Event purely so a real store's conflict resolution has somewhere to
// report it, and syncengine's listener already iterates it generically.
func (s *Store) MergeMessage(m *Message) error {
	if !s.isKnownFid(m.Fid()) {
		return huberrs.UnknownFid()
	}

	pk, err := synctype.DecodeToPrimaryKey(m.SyncId())
	if err != nil {
		return huberrs.Wrap(huberrs.CodeBadRequestParse, err, "hubstore: derive primary key")
	}

	if err := s.engine.PutMessage(pk, m); err != nil {
		return huberrs.StorageFailure(err)
	}

	s.bus.publish(Event{Kind: EventMergeMessage, Message: m})
	return nil
}

// MergeMessages merges ms in order, sequentially, returning one error per
// input message (nil on success). §4.D requires the engine's own
// mergeMessages caller (SyncEngine.MergeMessages) to sort by timestamp
// before calling this; this method merges in the order given, without
// re-sorting, so the two concerns stay separate and testable in
// isolation.
func (s *Store) MergeMessages(ms []*Message) []error {
	errs := make([]error, len(ms))
	for i, m := range ms {
		errs[i] = s.MergeMessage(m)
	}
	return errs
}

// MergeIdRegistryEvent records custody of e.Fid and publishes a
// mergeIdRegistryEvent event. This is the one operation that moves an fid
// from unknown to known, unblocking any previously rejected MergeMessage
// for it.
func (s *Store) MergeIdRegistryEvent(e *IdRegistryEvent) error {
	if err := s.engine.PutIdRegistryEvent(e.Fid, e); err != nil {
		return huberrs.StorageFailure(err)
	}

	s.mu.Lock()
	s.knownFids[e.Fid] = struct{}{}
	s.mu.Unlock()

	s.bus.publish(Event{Kind: EventMergeIdRegistry, IdRegistryEvent: e})
	return nil
}

// MergeNameRegistryEvent records a username/fname claim and publishes a
// mergeNameRegistryEvent event (§4.F). The sync core never reads this
// back; it exists so a complete local store has somewhere to put it.
func (s *Store) MergeNameRegistryEvent(e *NameRegistryEvent) error {
	if err := s.engine.PutNameRegistryEvent(e.Name, e); err != nil {
		return huberrs.StorageFailure(err)
	}

	s.bus.publish(Event{Kind: EventMergeNameRegistry, NameRegistryEvent: e})
	return nil
}

// PruneMessage removes m from the store and publishes a pruneMessage
// event, the path SyncEngine's trie.delete listener (§4.D) reacts to when
// local retention policy (not modeled further here; out of the sync
// core's scope) decides a message has aged out.
func (s *Store) PruneMessage(m *Message) error {
	pk, err := synctype.DecodeToPrimaryKey(m.SyncId())
	if err != nil {
		return huberrs.Wrap(huberrs.CodeBadRequestParse, err, "hubstore: derive primary key")
	}
	if err := s.engine.DeleteMessage(pk); err != nil {
		return huberrs.StorageFailure(err)
	}
	s.bus.publish(Event{Kind: EventPruneMessage, Message: m})
	return nil
}

// RevokeMessage removes m from the store and publishes a revokeMessage
// event, the path taken when a signer key is removed and every message it
// signed must be torn down. Distinct from PruneMessage only in the wire
// reason callers report; the store-side effect is identical.
func (s *Store) RevokeMessage(m *Message) error {
	pk, err := synctype.DecodeToPrimaryKey(m.SyncId())
	if err != nil {
		return huberrs.Wrap(huberrs.CodeBadRequestParse, err, "hubstore: derive primary key")
	}
	if err := s.engine.DeleteMessage(pk); err != nil {
		return huberrs.StorageFailure(err)
	}
	s.bus.publish(Event{Kind: EventRevokeMessage, Message: m})
	return nil
}

// GetIdRegistryEvent returns the stored custody record for fid, or
// huberrs.NotFound if none has been merged (§4.E getIdRegistryEventByFid).
func (s *Store) GetIdRegistryEvent(fid synctype.Fid) (*IdRegistryEvent, error) {
	e, err := s.engine.GetIdRegistryEvent(fid)
	if err != nil {
		return nil, huberrs.NotFound("id registry event")
	}
	return e, nil
}

// MessagesByFid returns every stored message whose Fid matches fid, the
// local side of §4.E's getAllSignerMessagesByFid: a complete local corpus
// has no message type distinct from "signer-add" (custody is tracked
// separately via IdRegistryEvent), so every message an fid has merged
// serves as evidence of its established signer key.
func (s *Store) MessagesByFid(fid synctype.Fid) ([]*Message, error) {
	var out []*Message
	err := s.ForEachMessage(func(m *Message) error {
		if m.Fid() == fid {
			out = append(out, m)
		}
		return nil
	})
	return out, err
}

// MessagesBySyncIds resolves a batch of wire SyncIds back to full stored
// messages, skipping any the store no longer holds (§4.E
// getMessagesBySyncIds — a peer may ask about a SyncId pruned since it was
// last advertised).
func (s *Store) MessagesBySyncIds(ids []synctype.SyncId) ([]*Message, error) {
	out := make([]*Message, 0, len(ids))
	for _, id := range ids {
		pk, err := synctype.DecodeToPrimaryKey(id)
		if err != nil {
			return nil, huberrs.Wrap(huberrs.CodeBadRequestParse, err, "hubstore: derive primary key")
		}
		m, err := s.engine.GetMessage(pk)
		if err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// Subscribe opens a new listener on the store's event stream. Callers
// must Unsubscribe when done to avoid leaking the subscription's channel
// and its slot in the bus (§5: "listeners must be detached on stream
// close to avoid leaks").
func (s *Store) Subscribe() *Subscription {
	return s.bus.subscribe()
}

// Tick returns a Waiter that fires the next time any event is published,
// regardless of kind. syncengine's RoundRunner uses this to wake a
// scheduled sync round early when local activity makes one more likely
// to matter; it is not part of the LocalStore interface since nothing in
// the sync core itself needs it.
func (s *Store) Tick() co.Waiter {
	return s.bus.Tick()
}

func (s *Store) isKnownFid(fid synctype.Fid) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.knownFids[fid]
	return ok
}
