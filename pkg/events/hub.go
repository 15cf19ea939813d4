package events

import (
	"sync"
	"time"
)

// Actor identifies the source of an event.
type Actor struct {
	Kind string `json:"kind"` // "rpc" | "fswatch"
}

// Event is a normalized change notification for the workspace.
type Event struct {
	ID     int64   `json:"id"`               // monotonically increasing
	TS     string  `json:"ts"`               // RFC3339 timestamp
	Type   string  `json:"type"`             // "file.created" | "file.updated" | "file.deleted"
	Path   string  `json:"path"`             // workspace-relative path
	Commit *string `json:"commit,omitempty"` // revision recorded for the change, if any
	Actor  *Actor  `json:"actor,omitempty"`
}

type subscriber struct {
	id int
	ch chan Event
}

// Hub is an in-memory event fanout with a replayable ring buffer.
type Hub struct {
	mu        sync.Mutex
	seq       int64
	ring      []Event
	ringCap   int
	ringStart int
	subs      map[int]subscriber
	nextSubID int
	closed    bool
}

// NewHub creates a hub with the given ring buffer capacity.
func NewHub(ringCapacity int) *Hub {
	if ringCapacity <= 0 {
		ringCapacity = 200
	}
	return &Hub{
		ring:      make([]Event, 0, ringCapacity),
		ringCap:   ringCapacity,
		subs:      make(map[int]subscriber),
		nextSubID: 1,
	}
}

// Publish appends an event to the ring and fans it out to subscribers.
// The event's ID and timestamp are assigned here.
func (h *Hub) Publish(evt Event) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	if evt.TS == "" {
		evt.TS = time.Now().UTC().Format(time.RFC3339)
	}
	h.seq++
	evt.ID = h.seq

	if len(h.ring) < h.ringCap {
		h.ring = append(h.ring, evt)
	} else {
		h.ring[h.ringStart] = evt
		h.ringStart = (h.ringStart + 1) % h.ringCap
	}

	subs := make([]subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	// Non-blocking fanout; a slow subscriber drops events rather than
	// backpressuring the publisher.
	for _, s := range subs {
		select {
		case s.ch <- evt:
		default:
		}
	}
}

// Subscribe registers a subscriber. Buffered events with ID > sinceID are
// replayed before live delivery. Returns the channel and an unsubscribe func.
// The channel is sized to hold the full replay plus the requested buffer, and
// the subscriber is registered under the same lock that collects the replay,
// so no replayed event is dropped and live events never precede it.
func (h *Hub) Subscribe(sinceID int64, buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}
	replay := h.collectSinceLocked(sinceID)
	ch := make(chan Event, len(replay)+buffer)
	for _, e := range replay {
		ch <- e
	}
	id := h.nextSubID
	h.nextSubID++
	h.subs[id] = subscriber{id: id, ch: ch}
	h.mu.Unlock()

	unsub := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if s, exists := h.subs[id]; exists {
			delete(h.subs, id)
			close(s.ch)
		}
	}
	return ch, unsub
}

func (h *Hub) collectSinceLocked(sinceID int64) []Event {
	if len(h.ring) == 0 {
		return nil
	}
	out := make([]Event, 0, len(h.ring))
	for i := 0; i < len(h.ring); i++ {
		idx := (h.ringStart + i) % h.ringCap
		if idx >= len(h.ring) {
			continue
		}
		e := h.ring[idx]
		if e.ID > sinceID {
			out = append(out, e)
		}
	}
	return out
}

// Close shuts down the hub and all subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, s := range h.subs {
		close(s.ch)
	}
	h.subs = map[int]subscriber{}
}
