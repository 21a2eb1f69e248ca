package relay

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"chat-pwa-backend/internal/platform"
)

// State is the lifecycle state of a device's relay registration.
type State string

const (
	StateUnregistered State = "unregistered"
	StateRegistered   State = "registered"
	StatePolling      State = "polling"
	StateStopped      State = "stopped"
)

// Notifier displays a notification locally when the app is backgrounded.
type Notifier interface {
	Display(n Notification)
}

// Register announces this device to the relay and persists the registration
// locally. It is only meaningful when the capability detector selected the
// relay path; any other environment is skipped. Returns false on any failure;
// callers treat false as "relay unavailable now", not a permanent condition.
func Register(ctx context.Context, env platform.Environment, client *Client, state *StateStore, userID string) bool {
	if platform.ChoosePath(env) != platform.PathRelay {
		log.Println("Not an installed iOS app, skipping relay registration")
		return false
	}

	// The timestamp suffix keeps re-registrations distinct; collisions within
	// one millisecond for the same user are accepted as negligible.
	deviceID := fmt.Sprintf("%s-%d", userID, time.Now().UnixMilli())

	token, err := client.Register(ctx, deviceID, userID)
	if err != nil {
		log.Printf("Error registering with relay: %v", err)
		return false
	}

	if err := state.Save(&DeviceState{DeviceID: deviceID, Token: token}); err != nil {
		log.Printf("Error persisting relay registration: %v", err)
		return false
	}

	log.Printf("Successfully registered device %s with relay", deviceID)
	return true
}

// Poller periodically fetches queued notifications for a registered device,
// delivers them to the callback in arrival order and acknowledges the batch.
// A fetch or acknowledge failure is logged and swallowed; the timer keeps its
// fixed schedule, the poller never stops itself.
type Poller struct {
	client   *Client
	state    *StateStore
	userID   string
	interval time.Duration

	onNotification func(Notification)
	notifier       Notifier
	foreground     func() bool

	mu       sync.Mutex
	lifState State
	stop     chan struct{}
	done     chan struct{}
}

// NewPoller creates a poller for one user session. The foreground callback
// reports whether the app is currently visible; local notifications are only
// displayed when it returns false. notifier may be nil.
func NewPoller(client *Client, state *StateStore, userID string, interval time.Duration,
	onNotification func(Notification), notifier Notifier, foreground func() bool) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if foreground == nil {
		foreground = func() bool { return false }
	}
	initial := StateUnregistered
	if _, err := state.Load(); err == nil {
		initial = StateRegistered
	}
	return &Poller{
		client:         client,
		state:          state,
		userID:         userID,
		interval:       interval,
		onNotification: onNotification,
		notifier:       notifier,
		foreground:     foreground,
		lifState:       initial,
	}
}

// State returns the poller's lifecycle state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lifState
}

// Start begins polling. It requires a prior successful Register; without a
// stored device ID it returns ErrNotRegistered and no timer is created.
func (p *Poller) Start(ctx context.Context) error {
	dev, err := p.state.Load()
	if err != nil {
		if errors.Is(err, ErrNotRegistered) {
			log.Println("No relay device ID found, not starting poller")
			return ErrNotRegistered
		}
		return err
	}

	p.mu.Lock()
	if p.lifState == StatePolling {
		p.mu.Unlock()
		return nil
	}
	p.lifState = StatePolling
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	stop, done := p.stop, p.done
	p.mu.Unlock()

	log.Printf("Starting relay polling for device %s", dev.DeviceID)

	go func() {
		defer close(done)
		timer := time.NewTimer(p.interval)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-timer.C:
				p.Tick(ctx, dev.DeviceID)
				timer.Reset(p.interval)
			}
		}
	}()

	return nil
}

// Tick performs one poll cycle: fetch, deliver in order, batch acknowledge.
func (p *Poller) Tick(ctx context.Context, deviceID string) {
	notifications, err := p.client.Fetch(ctx, p.userID, deviceID)
	if err != nil {
		log.Printf("Error polling relay for notifications: %v", err)
		return
	}
	if len(notifications) == 0 {
		return
	}

	ids := make([]string, 0, len(notifications))
	for _, n := range notifications {
		if p.onNotification != nil {
			p.onNotification(n)
		}
		// Surface a platform notification only when the app is backgrounded;
		// a visible app renders the message in place.
		if p.notifier != nil && !p.foreground() {
			p.notifier.Display(n)
		}
		ids = append(ids, n.ID)
	}

	if err := p.client.Acknowledge(ctx, p.userID, deviceID, ids); err != nil {
		// Unacknowledged notifications will be redelivered next tick; the
		// callback must tolerate duplicates.
		log.Printf("Error acknowledging relay notifications: %v", err)
	}
}

// Stop cancels the polling timer. Idempotent; stopping a poller that never
// started is a no-op.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.lifState != StatePolling {
		p.mu.Unlock()
		return
	}
	p.lifState = StateStopped
	close(p.stop)
	done := p.done
	p.mu.Unlock()

	<-done
	log.Println("Relay polling stopped")
}
