// Package notify holds the contest announcement broadcast store. It replaces
// an implicit process-global list with an explicit broker owned by the
// application root and injected into consumers.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is one broadcast announcement.
type Event struct {
	ID        string    `json:"id"`
	ContestID string    `json:"contest_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// Broker keeps an ordered list of events and fans each new event out to all
// subscribers. There is no deduplication and no persistence; the list lives
// only as long as the process.
type Broker struct {
	mu     sync.Mutex
	events []Event
	subs   map[int]chan Event
	nextID int
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[int]chan Event),
	}
}

// Subscribe registers a new subscriber. The returned cancel func must be
// called when the subscriber goes away; afterwards the channel is closed.
func (b *Broker) Subscribe(buffer int) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, buffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Add appends an event and immediately fans it out. A subscriber whose
// buffer is full misses the event rather than blocking the publisher.
func (b *Broker) Add(contestID, message string) Event {
	ev := Event{
		ID:        uuid.NewString(),
		ContestID: contestID,
		Message:   message,
		Timestamp: time.Now(),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return ev
}

// MarkRead flags the event with the given id as read.
func (b *Broker) MarkRead(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.events {
		if b.events[i].ID == id {
			b.events[i].Read = true
			return true
		}
	}
	return false
}

// Remove deletes the event with the given id from the list.
func (b *Broker) Remove(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.events {
		if b.events[i].ID == id {
			b.events = append(b.events[:i], b.events[i+1:]...)
			return true
		}
	}
	return false
}

// Events returns a snapshot of the list in append order.
func (b *Broker) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	res := make([]Event, len(b.events))
	copy(res, b.events)
	return res
}
