// Package events is the in-process event bus announcing imports and sensor
// changes to subscribers (HTTP streams, notifiers).
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Topics published by ynabd.
const (
	TopicImported     = "ynab_event"
	TopicStateChanged = "ynab_state_changed"
	TopicRefreshError = "ynab_refresh_failed"

	// DataTransactionsImported is the data key carrying the import count.
	DataTransactionsImported = "transactions_imported"
)

// Event is one published message.
type Event struct {
	ID        string         `json:"id"`
	Seq       int64          `json:"seq"`
	Topic     string         `json:"topic"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Bus keeps a bounded history of events and fans them out to subscribers.
type Bus struct {
	buffer int

	mu      sync.RWMutex
	nextSeq int64
	events  []Event

	nextSubID int
	subs      map[int]chan Event
}

// NewBus returns a bus retaining at most buffer events.
func NewBus(buffer int) *Bus {
	if buffer < 1 {
		buffer = 200
	}
	return &Bus{
		buffer: buffer,
		subs:   make(map[int]chan Event),
	}
}

// Publish records and delivers an event. Subscribers whose channel is full
// miss it.
func (b *Bus) Publish(topic string, data map[string]any) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	ev := Event{
		ID:        uuid.NewString(),
		Seq:       b.nextSeq,
		Topic:     topic,
		Timestamp: time.Now(),
		Data:      data,
	}

	b.events = append(b.events, ev)
	if len(b.events) > b.buffer {
		b.events = b.events[len(b.events)-b.buffer:]
	}

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return ev
}

// Subscribe registers a new subscriber with a channel of the given size.
func (b *Bus) Subscribe(size int) (int, <-chan Event) {
	if size < 1 {
		size = 16
	}
	ch := make(chan Event, size)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextSubID++
	id := b.nextSubID
	b.subs[id] = ch
	return id, ch
}

// Unsubscribe removes and closes a subscriber's channel.
func (b *Bus) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Recent returns a copy of the retained events, oldest first.
func (b *Bus) Recent() []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// SubscriberCount returns the number of live subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
