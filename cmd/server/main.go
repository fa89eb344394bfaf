package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social-graph-service/internal/adapters/database"
	"social-graph-service/internal/adapters/kafka"
	"social-graph-service/internal/api/routes"
	"social-graph-service/internal/config"
	"social-graph-service/internal/repository"
	"social-graph-service/internal/service"
	"social-graph-service/internal/session"
	"social-graph-service/internal/websocket"

	"github.com/IBM/sarama"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting social graph server")

	// Initialize MongoDB connection
	mongoStore, err := database.NewMongoStore(cfg.Mongo.URI, cfg.Mongo.DBName)
	if err != nil {
		slog.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer mongoStore.Close(context.Background())

	// Initialize Redis connection
	redisClient, err := database.NewRedisConnection(cfg.Redis.URI)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Initialize MinIO connection
	minioClient, err := database.NewMinIOClient(
		cfg.MinIO.Endpoint,
		cfg.MinIO.AccessKey,
		cfg.MinIO.SecretKey,
		cfg.MinIO.Bucket,
		cfg.MinIO.UseSSL,
	)
	if err != nil {
		slog.Error("Failed to connect to MinIO", "error", err)
		os.Exit(1)
	}

	// Kafka fanout is optional; without it message events stay in-process
	var producer sarama.SyncProducer
	if cfg.Kafka.Enabled {
		producer, err = kafka.InitKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			slog.Error("Failed to connect to Kafka", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
	}

	// Initialize presence and the WebSocket hub
	userRepo := repository.NewUserRepository(mongoStore)
	presenceRepo := repository.NewPresenceRepository(redisClient.GetClient())
	presenceService := service.NewPresenceService(presenceRepo, userRepo)

	hub := websocket.NewHub(presenceService)
	go hub.Run()

	sessions := session.NewManager()
	unsubscribe := sessions.OnAuthStateChange(func(userID string, signedIn bool) {
		slog.Info("Auth state changed", "userID", userID, "signedIn", signedIn)
	})
	defer unsubscribe()

	// Initialize router with all dependencies
	router := routes.NewRouter(
		hub,
		mongoStore,
		minioClient,
		redisClient.GetClient(),
		producer,
		cfg.Kafka.Topic,
		sessions,
		presenceService,
		cfg.JWT.Secret,
		cfg.JWT.ExpirationTime,
	)
	router.SetupRoutes()

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop WebSocket hub
	hub.Stop()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped")
}
