package presence

import (
	"context"
	"sync"

	"chat-pwa-backend/internal/model"
)

// Backend is the write surface the presence subsystem needs from the realtime
// store. store.Store satisfies it.
type Backend interface {
	SetPresence(ctx context.Context, rec *model.PresenceRecord) error
	ListPresence(ctx context.Context) ([]model.PresenceRecord, error)
}

// Hub fans presence changes out to in-process subscribers. Consumers use it
// as the live-subscription half of the realtime store.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(model.PresenceRecord)
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]func(model.PresenceRecord))}
}

// Subscribe registers a handler for every subsequent presence write and
// returns its unsubscribe function. Callers must unsubscribe on teardown.
func (h *Hub) Subscribe(fn func(model.PresenceRecord)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

// Publish delivers a presence record to all subscribers.
func (h *Hub) Publish(rec model.PresenceRecord) {
	h.mu.Lock()
	handlers := make([]func(model.PresenceRecord), 0, len(h.subs))
	for _, fn := range h.subs {
		handlers = append(handlers, fn)
	}
	h.mu.Unlock()

	for _, fn := range handlers {
		fn(rec)
	}
}

// BroadcastBackend decorates a Backend so every successful write is also
// published to the hub, giving subscribers a live view of the collection.
type BroadcastBackend struct {
	Backend
	hub *Hub
}

// NewBroadcastBackend wraps backend with hub publication.
func NewBroadcastBackend(backend Backend, hub *Hub) *BroadcastBackend {
	return &BroadcastBackend{Backend: backend, hub: hub}
}

func (b *BroadcastBackend) SetPresence(ctx context.Context, rec *model.PresenceRecord) error {
	if err := b.Backend.SetPresence(ctx, rec); err != nil {
		return err
	}
	b.hub.Publish(*rec)
	return nil
}
