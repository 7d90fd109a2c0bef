// Package broadcaster implements a single-producer, fan-out-to-N-subscribers
// primitive used to multiplex the resolver event stream: one BROADC/SECRET
// message in, delivered to every open WebSocket subscriber without letting a
// slow reader block its peers.
package broadcaster

import (
	"sync"
	"sync/atomic"
)

// Subscriber is a single registered outbox. The Broadcaster owns the map of
// subscribers; the outbox channel itself is shared with whichever endpoint
// handler is draining it.
type Subscriber struct {
	ID     uint64
	Outbox chan []byte
	closed atomic.Bool
}

// Broadcaster multiplexes Broadcast calls to every registered Subscriber
// using non-blocking sends: a full outbox means that subscriber drops this
// message, it never means the broadcaster waits.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[uint64]*Subscriber
	nextID      atomic.Uint64

	outboxCap int
}

// New creates a Broadcaster whose subscriber outboxes are all created by
// Register with the given capacity.
func New(outboxCap int) *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]*Subscriber),
		outboxCap:   outboxCap,
	}
}

// Register allocates a new subscriber with a fresh bounded outbox and
// returns it. The caller is expected to pump Outbox until it closes.
func (b *Broadcaster) Register() *Subscriber {
	sub := &Subscriber{
		ID:     b.nextID.Add(1),
		Outbox: make(chan []byte, b.outboxCap),
	}
	b.mu.Lock()
	b.subscribers[sub.ID] = sub
	b.mu.Unlock()
	return sub
}

// Unregister closes the subscriber's outbox and removes it from the set. It
// is safe to call more than once.
func (b *Broadcaster) Unregister(id uint64) {
	b.mu.Lock()
	sub, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
	}
	b.mu.Unlock()

	if ok && sub.closed.CompareAndSwap(false, true) {
		close(sub.Outbox)
	}
}

// Broadcast enqueues msg into every open subscriber's outbox. A subscriber
// whose outbox is full skips this message; Broadcast never blocks on a
// slow reader.
func (b *Broadcaster) Broadcast(msg []byte) {
	b.mu.Lock()
	targets := make([]*Subscriber, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		targets = append(targets, sub)
	}
	b.mu.Unlock()

	for _, sub := range targets {
		select {
		case sub.Outbox <- msg:
		default:
		}
	}
}

// Count returns the number of currently registered subscribers.
func (b *Broadcaster) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// Close closes every subscriber's outbox and empties the set.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	subs := b.subscribers
	b.subscribers = make(map[uint64]*Subscriber)
	b.mu.Unlock()

	for _, sub := range subs {
		if sub.closed.CompareAndSwap(false, true) {
			close(sub.Outbox)
		}
	}
}
