// ABOUTME: Fan-out of session changes to live views (websocket clients, terminal UI).
// ABOUTME: Slow subscribers drop events rather than block the session.
package session

import "sync"

type EventType string

const (
	EventStep    EventType = "step"
	EventGraph   EventType = "graph"
	EventAlert   EventType = "alert"
	EventSaved   EventType = "saved"
	EventCatalog EventType = "catalog"
	EventForm    EventType = "form"
)

type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId"`
	Alert     *Alert    `json:"alert,omitempty"`
}

// Bus delivers events to subscribers.
type Bus struct {
	mu     sync.Mutex
	next   int
	subs   map[int]chan Event
	closed bool
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe returns a buffered event channel and its cancel function.
// Once the bus is closed the channel comes back already closed.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 32)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
}

func (b *Bus) publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// closeAll ends every subscription.
func (b *Bus) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
