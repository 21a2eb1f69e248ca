package notification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"chat-pwa-backend/internal/model"
	"chat-pwa-backend/internal/store"
)

// Delivery failure classes. Expired and NotFound mean the subscription is
// permanently unusable and its server record should be deleted; anything else
// is transient or unknown.
var (
	ErrSubscriptionExpired  = errors.New("push subscription expired")
	ErrSubscriptionNotFound = errors.New("push subscription not found")
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Job is a queued request to notify one user about a new message.
type Job struct {
	RecipientID string
	SenderID    string
	ChatID      string
	Message     string
	Title       string
}

// WorkerPool manages a pool of workers for sending message notifications.
type WorkerPool struct {
	size    int
	jobs    chan Job
	store   store.Store
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, s store.Store, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Job, size),
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Notification worker %d started", id)
	for {
		select {
		case job := <-wp.jobs:
			wp.notifyRecipient(ctx, job)
		case <-ctx.Done():
			log.Printf("Notification worker %d shutting down", id)
			return
		}
	}
}

// Dispatch sends a job to the worker pool.
func (wp *WorkerPool) Dispatch(job Job) {
	wp.jobs <- job
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Job {
	return wp.jobs
}

// SetSender replaces the delivery transport, for testing.
func (wp *WorkerPool) SetSender(s NotificationSender) {
	wp.sender = s
}

// notifyRecipient looks up the recipient's subscription and sends the
// notification. All failures are logged and swallowed; background delivery
// must never interrupt message sending.
func (wp *WorkerPool) notifyRecipient(ctx context.Context, job Job) {
	sub, err := wp.store.GetPushSubscription(ctx, job.RecipientID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("Error fetching subscription for user %s: %v", job.RecipientID, err)
		}
		return
	}

	payload := wp.buildPayload(ctx, job)

	err = wp.SendToSubscription(ctx, sub, payload.Marshal())
	if errors.Is(err, ErrSubscriptionExpired) || errors.Is(err, ErrSubscriptionNotFound) {
		log.Printf("Subscription for user %s is no longer valid. Deleting.", job.RecipientID)
		if err := wp.store.DeletePushSubscription(ctx, job.RecipientID); err != nil {
			log.Printf("Failed to delete stale subscription for %s: %v", job.RecipientID, err)
		}
	} else if err != nil {
		log.Printf("Error sending notification to user %s: %v", job.RecipientID, err)
	}
}

// buildPayload resolves the sender's display name and photo for the
// notification title. Lookup failures fall back to generic values.
func (wp *WorkerPool) buildPayload(ctx context.Context, job Job) Payload {
	title := job.Title
	icon := ""
	if title == "" {
		senderName := "Someone"
		if job.SenderID != "" {
			if sender, err := wp.store.GetUser(ctx, job.SenderID); err == nil {
				if sender.Username != "" {
					senderName = sender.Username
				}
				icon = sender.PhotoURL
			} else if !errors.Is(err, store.ErrNotFound) {
				log.Printf("Error fetching sender %s: %v", job.SenderID, err)
			}
		}
		title = fmt.Sprintf("New message from %s", senderName)
	}
	return NewMessagePayload(title, job.Message, icon, job.ChatID, job.SenderID)
}

// SendToSubscription sends one web push message and classifies delivery
// failures by status code.
func (wp *WorkerPool) SendToSubscription(ctx context.Context, sub *model.PushSubscription, payload []byte) error {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		return fmt.Errorf("push delivery failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusGone:
		return ErrSubscriptionExpired
	case http.StatusNotFound:
		return ErrSubscriptionNotFound
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned status %d", resp.StatusCode)
	}
	return nil
}
