package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"chat-pwa-backend/config"
	"chat-pwa-backend/internal/notification"
	"chat-pwa-backend/internal/presence"
	"chat-pwa-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	webpush  *webpush.Options
	push     *config.PushConfig
	pool     *notification.WorkerPool
	presence *presence.BroadcastBackend
	roster   *presence.Roster
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, push *config.PushConfig, webpushOptions *webpush.Options,
	pool *notification.WorkerPool, presenceBackend *presence.BroadcastBackend, roster *presence.Roster) *Handler {
	return &Handler{
		store:    s,
		webpush:  webpushOptions,
		push:     push,
		pool:     pool,
		presence: presenceBackend,
		roster:   roster,
	}
}
