package cache

import (
	"sync"
	"time"
)

// EventType identifies a cache lifecycle event.
type EventType string

// Cache lifecycle events.
const (
	EventHit        EventType = "hit"
	EventMiss       EventType = "miss"
	EventStaleHit   EventType = "stale_hit"
	EventSet        EventType = "set"
	EventDelete     EventType = "delete"
	EventEvict      EventType = "evict"
	EventRevalidate EventType = "revalidate"
	EventError      EventType = "error"
)

// Event is delivered to registered handlers on cache lifecycle changes.
type Event struct {
	Type EventType
	Key  string
	Tier string
	Err  error
	At   time.Time
}

// Handler receives cache events. Handlers for most events run
// synchronously inside the emitting operation and must be fast;
// EventRevalidate is delivered asynchronously.
type Handler func(Event)

// eventBus is the observer registry decoupling the manager from its
// metrics/logging consumers.
type eventBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

func newEventBus() *eventBus {
	return &eventBus{handlers: make(map[EventType][]Handler)}
}

func (b *eventBus) on(t EventType, h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

func (b *eventBus) emit(ev Event) {
	b.mu.RLock()
	handlers := b.handlers[ev.Type]
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}
