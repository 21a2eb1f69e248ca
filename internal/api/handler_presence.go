package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"chat-pwa-backend/internal/model"
	"chat-pwa-backend/internal/mw"
)

type presenceUpdateRequest struct {
	Online *bool `json:"online" binding:"required"`
}

// UpdatePresence overwrites the caller's presence record. Heartbeats and
// visibility refreshes both land here; the write is always a full overwrite
// with a fresh lastSeen.
func (h *Handler) UpdatePresence(c *gin.Context) {
	var req presenceUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameters"})
		return
	}

	rec := &model.PresenceRecord{
		UserID:   mw.UserID(c),
		Online:   *req.Online,
		LastSeen: time.Now().UTC(),
	}
	if err := h.presence.SetPresence(c.Request.Context(), rec); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update presence"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListPresence returns the cached userId -> online/lastSeen mapping.
func (h *Handler) ListPresence(c *gin.Context) {
	c.JSON(http.StatusOK, h.roster.Snapshot())
}

// GetPresence returns one user's presence.
func (h *Handler) GetPresence(c *gin.Context) {
	userID := c.Param("user_id")
	online, lastSeen := h.roster.Get(userID)
	resp := gin.H{"userId": userID, "online": online}
	if !lastSeen.IsZero() {
		resp["lastSeen"] = lastSeen
	}
	c.JSON(http.StatusOK, resp)
}
