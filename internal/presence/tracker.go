package presence

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"chat-pwa-backend/internal/model"
)

// Tracker maintains the single live "online" record for one authenticated
// session: an attach-time write, a disconnect-time auto-write and a periodic
// heartbeat.
type Tracker struct {
	backend   Backend
	session   *Session
	userID    string
	heartbeat time.Duration
	now       func() time.Time

	mu        sync.Mutex
	active    bool
	lastSeen  time.Time
	stop      chan struct{}
	done      chan struct{}
}

// NewTracker creates a tracker for one user session. heartbeat defaults to
// five minutes.
func NewTracker(backend Backend, session *Session, userID string, heartbeat time.Duration) *Tracker {
	if heartbeat <= 0 {
		heartbeat = 5 * time.Minute
	}
	return &Tracker{
		backend:   backend,
		session:   session,
		userID:    userID,
		heartbeat: heartbeat,
		now:       time.Now,
	}
}

// Start registers the disconnect auto-write and then writes the online
// record. The order matters: if the online write raced ahead and the session
// died in the gap, the record would be stuck online with no scheduled
// cleanup.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.active {
		t.mu.Unlock()
		return nil
	}
	t.active = true
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	stop, done := t.stop, t.done
	t.mu.Unlock()

	t.session.RegisterOnDisconnect(func(ctx context.Context) error {
		return t.backend.SetPresence(ctx, &model.PresenceRecord{
			UserID:   t.userID,
			Online:   false,
			LastSeen: t.stamp(),
		})
	})

	if err := t.writeOnline(ctx); err != nil {
		t.mu.Lock()
		t.active = false
		t.mu.Unlock()
		close(done)
		return fmt.Errorf("failed to write online presence: %w", err)
	}

	go func() {
		defer close(done)
		timer := time.NewTimer(t.heartbeat)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-timer.C:
				// Unconditional refresh, not conditional-on-change.
				if err := t.writeOnline(ctx); err != nil {
					log.Printf("Error updating presence heartbeat for %s: %v", t.userID, err)
				}
				timer.Reset(t.heartbeat)
			}
		}
	}()

	return nil
}

// VisibilityRegained refreshes the record immediately, covering
// long-backgrounded tabs whose heartbeat would leave a stale timestamp.
func (t *Tracker) VisibilityRegained(ctx context.Context) {
	if err := t.writeOnline(ctx); err != nil {
		log.Printf("Error updating presence on visibility change for %s: %v", t.userID, err)
	}
}

// Stop tears the tracker down gracefully: the heartbeat is cancelled and an
// offline record is written best-effort. A failure here is ignored because
// the disconnect auto-write registered at Start is the authoritative
// fallback.
func (t *Tracker) Stop(ctx context.Context) {
	t.mu.Lock()
	if !t.active {
		t.mu.Unlock()
		return
	}
	t.active = false
	close(t.stop)
	done := t.done
	t.mu.Unlock()

	<-done

	if err := t.backend.SetPresence(ctx, &model.PresenceRecord{
		UserID:   t.userID,
		Online:   false,
		LastSeen: t.stamp(),
	}); err != nil {
		log.Printf("Error writing offline presence for %s (disconnect write will cover it): %v", t.userID, err)
	}
}

func (t *Tracker) writeOnline(ctx context.Context) error {
	return t.backend.SetPresence(ctx, &model.PresenceRecord{
		UserID:   t.userID,
		Online:   true,
		LastSeen: t.stamp(),
	})
}

// stamp returns a timestamp that never moves backwards for this tracker,
// keeping lastSeen monotonic across heartbeats and visibility events.
func (t *Tracker) stamp() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now().UTC()
	if !now.After(t.lastSeen) {
		now = t.lastSeen
	}
	t.lastSeen = now
	return now
}
