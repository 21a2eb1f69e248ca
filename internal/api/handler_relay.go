package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chat-pwa-backend/internal/model"
	"chat-pwa-backend/internal/store"
)

// The relay queue endpoints implement the polling relay surface consumed by
// internal/relay.Client, making the push.foo fallback self-hostable.

type relayRegisterRequest struct {
	DeviceID string `json:"deviceId" binding:"required"`
	UserID   string `json:"userId" binding:"required"`
}

// RelayRegister records a device registration and hands back its relay token.
func (h *Handler) RelayRegister(c *gin.Context) {
	var req relayRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameters"})
		return
	}

	dev := &model.RelayDevice{
		DeviceID: req.DeviceID,
		UserID:   req.UserID,
		Token:    uuid.NewString(),
	}
	if err := h.store.RegisterRelayDevice(c.Request.Context(), dev); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register device"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": dev.Token})
}

type relaySendRequest struct {
	UserID       string `json:"userId" binding:"required"`
	Notification struct {
		Title string         `json:"title" binding:"required"`
		Body  string         `json:"body"`
		Data  map[string]any `json:"data"`
	} `json:"notification" binding:"required"`
}

// RelaySend queues one notification for a user. The target's pollers pick it
// up on their next fetch; the sender gets no delivery guarantee beyond
// enqueue.
func (h *Handler) RelaySend(c *gin.Context) {
	var req relaySendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameters"})
		return
	}

	data, err := json.Marshal(req.Notification.Data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification data"})
		return
	}

	n := &model.RelayNotification{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		Title:     req.Notification.Title,
		Body:      req.Notification.Body,
		Data:      string(data),
		CreatedAt: store.Touch(),
	}
	if err := h.store.EnqueueRelayNotification(c.Request.Context(), n); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue notification"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RelayNotifications returns the queued notifications for a device in
// enqueue order. Rows stay queued until acknowledged.
func (h *Handler) RelayNotifications(c *gin.Context) {
	userID := c.Query("userId")
	deviceID := c.Query("deviceId")
	if userID == "" || deviceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId and deviceId are required"})
		return
	}

	rows, err := h.store.PendingRelayNotifications(c.Request.Context(), userID, deviceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		var data map[string]any
		if row.Data != "" {
			if err := json.Unmarshal([]byte(row.Data), &data); err != nil {
				data = nil
			}
		}
		out = append(out, gin.H{
			"id":    row.ID,
			"title": row.Title,
			"body":  row.Body,
			"data":  data,
		})
	}

	c.JSON(http.StatusOK, gin.H{"notifications": out})
}

type relayAcknowledgeRequest struct {
	UserID          string   `json:"userId" binding:"required"`
	DeviceID        string   `json:"deviceId" binding:"required"`
	NotificationIDs []string `json:"notificationIds" binding:"required"`
}

// RelayAcknowledge purges delivered notifications. Acknowledging IDs that are
// already gone succeeds, so a poller that crashed mid-batch can retry.
func (h *Handler) RelayAcknowledge(c *gin.Context) {
	var req relayAcknowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameters"})
		return
	}

	if err := h.store.AcknowledgeRelayNotifications(c.Request.Context(), req.UserID, req.DeviceID, req.NotificationIDs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to acknowledge notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type pushFooWebhookRequest struct {
	UserID       string `json:"userId" binding:"required"`
	DeviceID     string `json:"deviceId" binding:"required"`
	Notification *struct {
		Title string         `json:"title"`
		Body  string         `json:"body"`
		Data  map[string]any `json:"data"`
	} `json:"notification" binding:"required"`
}

// PushFooWebhook accepts a notification from an upstream relay and stores it
// for the device's poller to retrieve.
func (h *Handler) PushFooWebhook(c *gin.Context) {
	var req pushFooWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameters"})
		return
	}

	data, err := json.Marshal(req.Notification.Data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification data"})
		return
	}

	n := &model.RelayNotification{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		DeviceID:  req.DeviceID,
		Title:     req.Notification.Title,
		Body:      req.Notification.Body,
		Data:      string(data),
		CreatedAt: store.Touch(),
	}
	if err := h.store.EnqueueRelayNotification(c.Request.Context(), n); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process notification"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
