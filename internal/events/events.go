package events

import (
	"encoding/json"
	"sync"
	"time"
)

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event Event) error

// EventBus provides in-process pub/sub for reservation lifecycle events
// (reservation.created, reservation.accepted, reservation.rejected,
// reservation.cancelled).
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// PublishJSON marshals the payload and notifies subscribers of the event
// type. Handlers run synchronously; the caller decides the concurrency
// model.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[eventType]...)
	b.mu.RUnlock()

	event := Event{Type: eventType, Payload: data, CreatedAt: time.Now()}
	for _, handler := range handlers {
		_ = handler(event)
	}
	return nil
}
