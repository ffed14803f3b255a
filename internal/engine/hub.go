package engine

import (
	"sync"

	"github.com/vovakirdan/hashchat-engine/internal/core"
)

// DefaultBuffer is the per-subscriber channel size.
const DefaultBuffer = 64

// Hub fans engine events out to subscribers. Publish never blocks: a
// subscriber whose buffer is full misses the event.
type Hub struct {
	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
}

type subscriber struct {
	ch   chan core.Event
	once sync.Once
}

// NewHub returns a hub with no subscribers.
func NewHub() *Hub {
	return &Hub{subs: make(map[*subscriber]struct{})}
}

// Subscribe registers a subscriber. The cancel func unregisters it and
// closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(buffer int) (<-chan core.Event, func()) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	sub := &subscriber{ch: make(chan core.Event, buffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.ch)
		return sub.ch, func() {}
	}
	h.subs[sub] = struct{}{}

	return sub.ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.drop(sub)
	}
}

// drop removes sub and closes its channel. Caller holds h.mu.
func (h *Hub) drop(sub *subscriber) {
	delete(h.subs, sub)
	sub.once.Do(func() { close(sub.ch) })
}

// Publish delivers ev to every subscriber with room in its buffer and
// reports how many missed it.
func (h *Hub) Publish(ev core.Event) (dropped int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.ch <- ev:
		default:
			// Drop if slow consumer.
			dropped++
		}
	}
	return dropped
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close unregisters everyone. Later subscriptions get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		h.drop(sub)
	}
	h.closed = true
}
