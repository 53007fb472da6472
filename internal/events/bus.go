// Package events carries per-session updates from the controller to the
// browser stream.
package events

import "sync"

// Kind identifies what an event asks the browser to do.
type Kind string

const (
	MapCreate    Kind = "map-create"
	AddSource    Kind = "add-source"
	AddLayer     Kind = "add-layer"
	RemoveLayer  Kind = "remove-layer"
	RemoveSource Kind = "remove-source"
	Panel        Kind = "panel"         // Payload: rendered panel HTML
	Active       Kind = "active"        // Payload: []string of active layer IDs
	ConsoleError Kind = "console-error" // Payload: message
	ConsoleLog   Kind = "console-log"   // Payload: message
	Sync         Kind = "sync"          // Payload: widget.State
)

// Event is one update for the browser.
type Event struct {
	Kind    Kind
	ID      string // layer or source ID, when relevant
	Payload any
}

// Bus is a simple fan-out pub/sub for session events.
//
// Publish never blocks. A subscriber whose buffer is full misses the event
// and is marked; it must check [Bus.Missed] and resynchronise from the
// session state.
type Bus struct {
	mu      sync.RWMutex
	subs    map[chan Event]bool // true once the subscriber missed an event
	dropped int
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[chan Event]bool)}
}

// Publish sends an event to all subscribers (non-blocking).
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.subs[ch] = true
			b.dropped++
		}
	}
}

// Subscribe returns a buffered channel that receives events.
func (b *Bus) Subscribe() chan Event {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subs[ch] = false
	b.mu.Unlock()
	return ch
}

// Missed reports whether ch missed an event since the last call, and clears
// the mark.
func (b *Bus) Missed(ch chan Event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	missed := b.subs[ch]
	if missed {
		b.subs[ch] = false
	}
	return missed
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Close unsubscribes everyone.
func (b *Bus) Close() {
	b.mu.Lock()
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Subscribers returns the current subscriber count.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber's
// buffer was full.
func (b *Bus) Dropped() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}
