package store

import "sync"

// Hub fans collection snapshots out to subscribers. Both store
// implementations share it; the sqlite backend publishes after commit.
//
// Delivery is lossy: a slow subscriber only ever misses intermediate
// snapshots, never the latest one.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan Snapshot
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]chan Snapshot)}
}

// Subscribe registers a listener for a collection. The cancel function
// removes the registration and closes the channel.
func (h *Hub) Subscribe(collection string) (<-chan Snapshot, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Snapshot, 1)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	if h.subs[collection] == nil {
		h.subs[collection] = make(map[int]chan Snapshot)
	}
	id := h.nextID
	h.nextID++
	h.subs[collection][id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[collection][id]; ok {
			delete(h.subs[collection], id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers a snapshot to every subscriber of the collection.
// If a subscriber has not drained the previous snapshot it is replaced
// with the newer one.
func (h *Hub) Publish(collection string, snap Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[collection] {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

// Close shuts every subscriber channel down.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, subs := range h.subs {
		for id, ch := range subs {
			delete(subs, id)
			close(ch)
		}
	}
}
