package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/germanamz/blasko/pkg/orchestrator"
)

// EventKind identifies the type of engine event.
type EventKind string

const (
	EventRequestStart  EventKind = "request_start"
	EventRequestEnd    EventKind = "request_end"
	EventToolCallStart EventKind = "tool_call_start"
	EventToolCallEnd   EventKind = "tool_call_end"
	EventError         EventKind = "error"
)

// Event is a notification of engine activity. Tool is set for the tool call
// kinds and Err for EventError.
type Event struct {
	Kind           EventKind
	ConversationID string
	Timestamp      time.Time
	Tool           *orchestrator.Event
	Err            error
}

// Subscription receives events from an EventBus until it is unsubscribed,
// which closes C.
type Subscription struct {
	C  <-chan Event
	ch chan Event
}

// EventBus fans events out to subscribers without ever blocking the
// publisher: a subscriber with a full buffer misses the event and the bus
// counts it as dropped. It is safe for concurrent use.
type EventBus struct {
	mu      sync.RWMutex
	subs    map[*Subscription]struct{}
	dropped atomic.Uint64
}

// NewEventBus creates an EventBus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a subscriber with a buffer of size n.
func (b *EventBus) Subscribe(n int) *Subscription {
	ch := make(chan Event, n)
	sub := &Subscription{C: ch, ch: ch}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

// Unsubscribe removes sub and closes its channel. Repeated calls are no-ops.
func (b *EventBus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.ch)
	}
}

// Publish delivers e to every subscriber with room for it.
func (b *EventBus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		select {
		case sub.ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped reports how many deliveries were skipped because a subscriber was
// full.
func (b *EventBus) Dropped() uint64 { return b.dropped.Load() }
