package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/story-graph/internal/config"
	"github.com/jwebster45206/story-graph/internal/handlers"
	"github.com/jwebster45206/story-graph/internal/logger"
	"github.com/jwebster45206/story-graph/internal/middleware"
	"github.com/jwebster45206/story-graph/internal/services/events"
	"github.com/jwebster45206/story-graph/internal/services/queue"
	"github.com/jwebster45206/story-graph/internal/storage"
	"github.com/jwebster45206/story-graph/pkg/editor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Story Graph API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"data_dir", cfg.DataDir)

	connectCtx, connectCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer connectCancel()

	queueClient, err := queue.NewClient(connectCtx, cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	rdb := queueClient.GetRedisClient()

	store := storage.NewRedisStorage(rdb, cfg.DataDir, cfg.PlaySessionTTL, log)
	if err := store.WaitForConnection(connectCtx, 30, 2*time.Second); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	assetQueue := queue.NewAssetQueue(queueClient, log)
	broadcaster := events.NewBroadcaster(rdb, log)

	mux := http.NewServeMux()

	mux.Handle("/health", handlers.NewHealthHandler(store, log))

	storyHandler := handlers.NewStoryHandler(store, broadcaster, func(storyID string) editor.AssetSink {
		return assetQueue.ForStory(storyID)
	}, log)
	mux.Handle("/v1/stories", storyHandler)
	mux.Handle("/v1/stories/", storyHandler)

	imageHandler := handlers.NewImageHandler(store, log)
	mux.Handle("/v1/images", imageHandler)
	mux.Handle("/v1/images/", imageHandler)

	playHandler := handlers.NewPlayHandler(store, broadcaster, log)
	mux.Handle("/v1/play", playHandler)
	mux.Handle("/v1/play/", playHandler)

	mux.Handle("/v1/events/", handlers.NewEventsHandler(rdb, log))

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     middleware.Logger(log, mux),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the events endpoint streams
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	// Closes the shared Redis client
	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
