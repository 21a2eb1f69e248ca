package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"chat-pwa-backend/config"
	"chat-pwa-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	r := gin.Default()

	rps := cfg.Server.RateLimitPerSec
	if rps <= 0 {
		rps = 10
	}
	burst := int(rps) / 2
	if burst < 5 {
		burst = 5
	}
	rateLimiter := mw.RateLimiter(rate.Limit(rps), burst)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	// API group
	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		// Push configuration surface; safe to cache.
		api.GET("/push-status", caching, handler.PushStatus)
		api.GET("/vapid_public_key", caching, handler.GetVAPIDPublicKey)

		// Web push subscription lifecycle.
		api.POST("/save-subscription", handler.SaveSubscription)
		api.POST("/delete-subscription", handler.DeleteSubscription)
		api.GET("/subscription", handler.GetSubscription)
		api.POST("/push-notification", handler.PushNotification)

		// Polling relay surface, consumed by device pollers.
		api.POST("/register", handler.RelayRegister)
		api.POST("/send", handler.RelaySend)
		api.GET("/notifications", handler.RelayNotifications)
		api.POST("/acknowledge", handler.RelayAcknowledge)
		api.POST("/push-foo-webhook", handler.PushFooWebhook)

		// Presence: reads are open, writes need a session.
		api.GET("/presence", handler.ListPresence)
		api.GET("/presence/:user_id", handler.GetPresence)

		authed := api.Group("")
		authed.Use(mw.Auth(cfg.Auth.JWTSecret))
		{
			authed.POST("/presence", handler.UpdatePresence)
			authed.POST("/messages", handler.SendMessage)
			authed.GET("/chats/:chat_id/messages", handler.ChatMessages)
		}
	}

	return r
}
