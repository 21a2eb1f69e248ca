package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-pwa-backend/config"
	"chat-pwa-backend/internal/api"
	"chat-pwa-backend/internal/db"
	"chat-pwa-backend/internal/notification"
	"chat-pwa-backend/internal/presence"
	"chat-pwa-backend/internal/store"

	"github.com/SherClockHolmes/webpush-go"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "chat-backend ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	// Check for VAPID keys. Missing keys are surfaced via /api/push-status
	// rather than refusing to start: the relay path and presence tracking
	// still work without them.
	if !cfg.Push.Configured() {
		logger.Println("WARNING: VAPID keys are not configured; web push delivery is disabled")
	} else if _, err := notification.DecodeVAPIDKey(cfg.Push.PublicKey); err != nil {
		logger.Fatalf("configured VAPID public key is invalid: %v", err)
	}

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	// Presence: every write goes through the broadcast backend so the roster
	// sees changes live.
	hub := presence.NewHub()
	presenceBackend := presence.NewBroadcastBackend(appStore, hub)
	roster, err := presence.NewRoster(ctx, presenceBackend, hub)
	if err != nil {
		logger.Fatalf("failed to initialize presence roster: %v", err)
	}
	defer roster.Close()

	// Notification worker pool for message fan-out.
	workerPool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, &webpushOptions)
	workerPool.Start(ctx)

	// Initialize router
	handler := api.NewHandler(appStore, &cfg.Push, &webpushOptions, workerPool, presenceBackend, roster)
	router := api.NewRouter(cfg, handler)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
