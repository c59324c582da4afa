// Package pubsub provides a minimal synchronous observer bus used to fan
// out trade, snapshot, and trigger events inside the process.
package pubsub

import "sync"

// Bus delivers every published event to every registered subscriber exactly
// once, in registration order. Delivery is synchronous: Publish returns
// after all handlers ran, so the pipeline's hot path stays deterministic.
// There is no replay and no backpressure onto the publisher.
type Bus[T any] struct {
	mu       sync.RWMutex
	handlers []func(T)
}

// New creates an empty bus.
func New[T any]() *Bus[T] {
	return &Bus[T]{}
}

// Subscribe registers a handler for all future events.
func (b *Bus[T]) Subscribe(handler func(T)) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	b.handlers = append(b.handlers, handler)
	b.mu.Unlock()
}

// Publish delivers the event to all current subscribers.
func (b *Bus[T]) Publish(event T) {
	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}
