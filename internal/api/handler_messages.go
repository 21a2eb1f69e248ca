package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chat-pwa-backend/internal/model"
	"chat-pwa-backend/internal/mw"
	"chat-pwa-backend/internal/notification"
	"chat-pwa-backend/internal/store"
)

type sendMessageRequest struct {
	ChatID     string `json:"chatId" binding:"required"`
	ReceiverID string `json:"receiverId" binding:"required"`
	Text       string `json:"text"`
	ImageURL   string `json:"imageUrl"`
	VideoURL   string `json:"videoUrl"`
}

// SendMessage persists a message and notifies the recipient through whichever
// delivery path they have: a stored web push subscription, a relay
// registration, or neither. This is the only place the notification subsystem
// is invoked from.
func (h *Handler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameters"})
		return
	}
	if req.Text == "" && req.ImageURL == "" && req.VideoURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message must have text or media"})
		return
	}

	senderID := mw.UserID(c)
	ctx := c.Request.Context()

	msg := &model.Message{
		ID:         uuid.NewString(),
		ChatID:     req.ChatID,
		SenderID:   senderID,
		ReceiverID: req.ReceiverID,
		Text:       req.Text,
		ImageURL:   req.ImageURL,
		VideoURL:   req.VideoURL,
		CreatedAt:  store.Touch(),
	}
	if err := h.store.SaveMessage(ctx, msg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save message"})
		return
	}

	h.notifyRecipient(c, msg)

	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
}

// notifyRecipient fans the "new message" alert out to the recipient's
// devices. Failures are logged by the lower layers and never fail the send.
func (h *Handler) notifyRecipient(c *gin.Context, msg *model.Message) {
	ctx := c.Request.Context()
	body := msg.Text
	if body == "" {
		body = "Sent you an attachment"
	}

	// Standard path: the recipient has a stored web push subscription.
	if _, err := h.store.GetPushSubscription(ctx, msg.ReceiverID); err == nil {
		h.pool.Dispatch(notification.Job{
			RecipientID: msg.ReceiverID,
			SenderID:    msg.SenderID,
			ChatID:      msg.ChatID,
			Message:     body,
		})
	} else if !errors.Is(err, store.ErrNotFound) {
		return
	}

	// Relay path: queue for the recipient's registered pollers, if any.
	devs, err := h.store.ListRelayDevices(ctx, msg.ReceiverID)
	if err != nil || len(devs) == 0 {
		return
	}
	title := "New message"
	if sender, err := h.store.GetUser(ctx, msg.SenderID); err == nil && sender.Username != "" {
		title = "New message from " + sender.Username
	}
	data, _ := json.Marshal(map[string]string{"chatId": msg.ChatID, "senderId": msg.SenderID})
	_ = h.store.EnqueueRelayNotification(ctx, &model.RelayNotification{
		ID:        uuid.NewString(),
		UserID:    msg.ReceiverID,
		Title:     title,
		Body:      body,
		Data:      string(data),
		CreatedAt: store.Touch(),
	})
}

// ChatMessages returns the most recent messages in a chat, oldest first.
func (h *Handler) ChatMessages(c *gin.Context) {
	chatID := c.Param("chat_id")
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	msgs, err := h.store.ChatMessages(c.Request.Context(), chatID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}
