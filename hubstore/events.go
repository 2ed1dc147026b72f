package hubstore

import (
	"sync"

	"github.com/hubswarm/syncd/co"
)

// EventKind discriminates the event stream §4.F requires of a local
// store's Subscribe: merges, deletions, and the two registry-event kinds.
type EventKind int

const (
	EventMergeMessage EventKind = iota
	EventPruneMessage
	EventRevokeMessage
	EventMergeIdRegistry
	EventMergeNameRegistry
)

// Event is one item of the store's event stream. Only the fields relevant
// to Kind are populated.
type Event struct {
	Kind              EventKind
	Message           *Message
	Deleted           []*Message
	IdRegistryEvent   *IdRegistryEvent
	NameRegistryEvent *NameRegistryEvent
}

// Subscription is a single listener's view of the store's event stream.
// syncengine keeps exactly one of these open for the lifetime of its trie
// maintenance; tests may open more.
type Subscription struct {
	events chan Event
	bus    *eventBus
}

// Events returns the channel new events arrive on. It closes when
// Unsubscribe is called.
func (s *Subscription) Events() <-chan Event { return s.events }

// Unsubscribe detaches the subscription. Safe to call more than once.
func (s *Subscription) Unsubscribe() { s.bus.unsubscribe(s) }

// eventBus fans a published Event out to every live subscription. It is
// the store's adaptation of the teacher's "tick co.Signal" pattern
// (chain/repository.go): a co.Signal wakes anyone waiting on bus activity
// in general, while the typed payload itself is delivered point-to-point
// over each subscription's buffered channel so that ordering (§5: "event-
// driven trie updates are applied in the order the store emits them") is
// preserved per listener without a shared replay log.
type eventBus struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
	tick co.Signal
}

func newEventBus() *eventBus {
	return &eventBus{subs: make(map[*Subscription]struct{})}
}

// subscriptionBuffer bounds how many events a slow subscriber can fall
// behind by before publish starts dropping for it. The core has no
// backpressure story of its own (§5), so a full channel degrades to
// silent drops rather than blocking the single-threaded store.
const subscriptionBuffer = 256

func (b *eventBus) subscribe() *Subscription {
	s := &Subscription{events: make(chan Event, subscriptionBuffer), bus: b}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

func (b *eventBus) unsubscribe(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[s]; ok {
		delete(b.subs, s)
		close(s.events)
	}
}

func (b *eventBus) publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		select {
		case s.events <- e:
		default:
		}
	}
	b.tick.Broadcast()
}

// Tick returns a Waiter that fires on the next published event, regardless
// of kind. RoundRunner uses this to wake a scheduled sync round early when
// local activity makes one more likely to matter.
func (b *eventBus) Tick() co.Waiter {
	return b.tick.NewWaiter()
}
