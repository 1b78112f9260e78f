// Package events carries "mutation succeeded" notifications. A mutation names
// the cache keys whose data it made stale; subscribers revalidate them.
package events

import (
	"context"
	"sync"
	"time"
)

// Cache keys shared by publishers and the page sessions.
const (
	ClaveProductos = "productos"
	ClaveVentas    = "ventas"
	ClaveCompras   = "compras"
)

// MutationEvent is emitted after the backend accepted a write.
type MutationEvent struct {
	Recurso string    `json:"recurso"`
	Claves  []string  `json:"claves"`
	Origen  string    `json:"origen,omitempty"`
	At      time.Time `json:"at"`
}

// NewMutation stamps an event for recurso invalidating claves.
func NewMutation(recurso string, claves ...string) MutationEvent {
	return MutationEvent{Recurso: recurso, Claves: claves, At: time.Now().UTC()}
}

// Publisher is what writers depend on.
type Publisher interface {
	Publish(ctx context.Context, ev MutationEvent) error
}

// Handler reacts to an event. Handlers run synchronously in Publish.
type Handler func(ctx context.Context, ev MutationEvent)

// Bus is the in-process publisher.
type Bus struct {
	mu       sync.RWMutex
	handlers map[int]Handler
	next     int
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[int]Handler)}
}

// Subscribe registers h and returns the function that removes it.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.handlers[id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

// Publish delivers ev to every current handler, in no particular order.
func (b *Bus) Publish(ctx context.Context, ev MutationEvent) error {
	b.mu.RLock()
	hs := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		hs = append(hs, h)
	}
	b.mu.RUnlock()

	for _, h := range hs {
		h(ctx, ev)
	}
	return nil
}
