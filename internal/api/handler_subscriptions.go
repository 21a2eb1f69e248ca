package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-pwa-backend/internal/model"
	"chat-pwa-backend/internal/store"
)

// subscriptionJSON mirrors the browser PushSubscription object.
type subscriptionJSON struct {
	Endpoint string `json:"endpoint" binding:"required"`
	Keys     struct {
		P256DH string `json:"p256dh" binding:"required"`
		Auth   string `json:"auth" binding:"required"`
	} `json:"keys" binding:"required"`
}

type saveSubscriptionRequest struct {
	UserID       string            `json:"userId" binding:"required"`
	Subscription *subscriptionJSON `json:"subscription" binding:"required"`
}

// SaveSubscription stores a user's push subscription, replacing any prior one.
func (h *Handler) SaveSubscription(c *gin.Context) {
	var req saveSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameters"})
		return
	}

	sub := &model.PushSubscription{
		UserID:   req.UserID,
		Endpoint: req.Subscription.Endpoint,
		P256DH:   req.Subscription.Keys.P256DH,
		Auth:     req.Subscription.Keys.Auth,
	}
	if err := h.store.SavePushSubscription(c.Request.Context(), sub); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save subscription"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type deleteSubscriptionRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// DeleteSubscription removes the server-persisted subscription for a user.
// Deleting an absent record succeeds, so the unsubscribe-then-delete flow can
// be retried after a partial failure.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing user ID"})
		return
	}

	if err := h.store.DeletePushSubscription(c.Request.Context(), req.UserID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete subscription"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetSubscription reports whether a stored subscription exists for a user,
// for the self-diagnosis status panel.
func (h *Handler) GetSubscription(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	sub, err := h.store.GetPushSubscription(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"endpoint": sub.Endpoint})
}
