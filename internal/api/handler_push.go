package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-pwa-backend/internal/model"
	"chat-pwa-backend/internal/notification"
)

// PushStatus reports the server-side push configuration state so clients can
// self-diagnose without developer tools. The private key itself is never
// exposed, only whether it exists.
func (h *Handler) PushStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"pushNotificationsConfigured": h.push.Configured(),
		"publicKeyAvailable":          h.push.PublicKey != "",
		"privateKeyAvailable":         h.push.PrivateKey != "",
	})
}

// GetVAPIDPublicKey returns the VAPID public key to the client.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if h.push == nil || h.push.PublicKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "vapid keys are not configured"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"public_key": h.push.PublicKey})
}

type pushNotificationRequest struct {
	Subscription *subscriptionJSON `json:"subscription"`
	UserID       string            `json:"userId"`
	Message      string            `json:"message"`
	ChatID       string            `json:"chatId"`
	SenderID     string            `json:"senderId"`
	Title        string            `json:"title"`
}

// PushNotification sends one web push message to the given subscription. A
// 410 from the push service means the subscription is permanently invalid:
// the server record is deleted and 410 is returned so the caller drops its
// local copy too.
func (h *Handler) PushNotification(c *gin.Context) {
	if !h.push.Configured() {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Push notification service is not configured. VAPID keys are missing or invalid.",
		})
		return
	}

	var req pushNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Subscription == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing subscription"})
		return
	}

	ctx := c.Request.Context()

	// Resolve the sender's name and photo for the notification title.
	title := req.Title
	icon := ""
	if title == "" {
		senderName := "Someone"
		if req.SenderID != "" {
			if sender, err := h.store.GetUser(ctx, req.SenderID); err == nil {
				if sender.Username != "" {
					senderName = sender.Username
				}
				icon = sender.PhotoURL
			}
		}
		title = "New message from " + senderName
	}
	payload := notification.NewMessagePayload(title, req.Message, icon, req.ChatID, req.SenderID)

	sub := &model.PushSubscription{
		UserID:   req.UserID,
		Endpoint: req.Subscription.Endpoint,
		P256DH:   req.Subscription.Keys.P256DH,
		Auth:     req.Subscription.Keys.Auth,
	}

	err := h.pool.SendToSubscription(ctx, sub, payload.Marshal())
	switch {
	case errors.Is(err, notification.ErrSubscriptionExpired):
		if req.UserID != "" {
			if delErr := h.store.DeletePushSubscription(ctx, req.UserID); delErr != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete expired subscription"})
				return
			}
		}
		c.JSON(http.StatusGone, gin.H{"error": "Subscription has expired or is no longer valid"})
	case errors.Is(err, notification.ErrSubscriptionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Push subscription not found"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send push notification"})
	default:
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
