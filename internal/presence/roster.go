package presence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chat-pwa-backend/internal/model"
)

// Roster is the cached userId -> online/lastSeen mapping consumers read. It
// is derivative state fed by a live subscription; the per-record value in the
// backend remains ground truth.
type Roster struct {
	mu          sync.RWMutex
	records     map[string]model.PresenceRecord
	unsubscribe func()
}

// NewRoster loads the current presence collection and subscribes to changes.
// Callers must Close the roster on teardown to release the subscription.
func NewRoster(ctx context.Context, backend Backend, hub *Hub) (*Roster, error) {
	r := &Roster{records: make(map[string]model.PresenceRecord)}

	r.unsubscribe = hub.Subscribe(func(rec model.PresenceRecord) {
		r.mu.Lock()
		r.records[rec.UserID] = rec
		r.mu.Unlock()
	})

	recs, err := backend.ListPresence(ctx)
	if err != nil {
		r.unsubscribe()
		return nil, fmt.Errorf("failed to load presence collection: %w", err)
	}
	r.mu.Lock()
	for _, rec := range recs {
		// A live update may already have arrived; never let the initial load
		// overwrite a fresher record.
		if existing, ok := r.records[rec.UserID]; ok && existing.LastSeen.After(rec.LastSeen) {
			continue
		}
		r.records[rec.UserID] = rec
	}
	r.mu.Unlock()

	return r, nil
}

// Get returns a user's online flag and last-seen time. Unknown users are
// offline with a zero time.
func (r *Roster) Get(userID string) (bool, time.Time) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[userID]
	if !ok {
		return false, time.Time{}
	}
	return rec.Online, rec.LastSeen
}

// Snapshot returns a copy of the full mapping.
func (r *Roster) Snapshot() map[string]model.PresenceRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]model.PresenceRecord, len(r.records))
	for k, v := range r.records {
		out[k] = v
	}
	return out
}

// Close releases the live subscription.
func (r *Roster) Close() {
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
}
