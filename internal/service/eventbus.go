package service

import (
	"sync"
)

type EventBus struct {
	subscribers map[string][]chan Event
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string][]chan Event),
	}
}

func (eb *EventBus) Subscribe(ticket string) chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan Event, 16)
	eb.subscribers[ticket] = append(eb.subscribers[ticket], ch)
	return ch
}

func (eb *EventBus) Unsubscribe(ticket string, ch chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subs := eb.subscribers[ticket]
	for i, sub := range subs {
		if sub == ch {
			eb.subscribers[ticket] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}

	if len(eb.subscribers[ticket]) == 0 {
		delete(eb.subscribers, ticket)
	}
}

func (eb *EventBus) Publish(ticket string, event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for _, ch := range eb.subscribers[ticket] {
		select {
		case ch <- event:
		default:
			// Drop event if subscriber is slow
		}
	}
}

// Subscribers reports how many listeners a ticket currently has.
func (eb *EventBus) Subscribers(ticket string) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers[ticket])
}
