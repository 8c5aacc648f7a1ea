package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flashdeck-backend/internal/analytics"
	"github.com/flashdeck-backend/internal/config"
	"github.com/flashdeck-backend/internal/decks"
	"github.com/flashdeck-backend/internal/handler"
	"github.com/flashdeck-backend/internal/ingest"
	"github.com/flashdeck-backend/internal/kafka"
	"github.com/flashdeck-backend/internal/leaderboard"
	"github.com/flashdeck-backend/internal/postgres"
	"github.com/flashdeck-backend/internal/progress"
	"github.com/flashdeck-backend/internal/sharing"
	"github.com/flashdeck-backend/internal/store"
	"github.com/flashdeck-backend/internal/streak"
	"github.com/flashdeck-backend/internal/websocket"
	"github.com/flashdeck-backend/internal/worker"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the document store
	logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
	gateway, err := store.NewRedisGateway(&cfg.Redis, logger)
	if err != nil {
		logger.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer gateway.Close()
	logger.Info("connected to Redis")

	// Initialize engines
	leaderboardEngine := leaderboard.New(gateway, logger)
	analyticsEngine := analytics.New(gateway, logger)
	progressEngine := progress.New(gateway, logger)
	streakEngine := streak.New(gateway, logger)
	deckCatalog := decks.New(gateway, logger)
	sharingManager := sharing.New(gateway, deckCatalog, logger)

	// Initialize the reporting database when enabled
	var (
		postgresRepo  *postgres.Repository
		archiveWorker *worker.ArchiveWorker
	)
	if cfg.Postgres.Enabled {
		logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		postgresRepo, err = postgres.NewRepository(&cfg.Postgres, logger)
		if err != nil {
			logger.Error("failed to connect to PostgreSQL", "error", err)
			os.Exit(1)
		}
		defer postgresRepo.Close()
		logger.Info("connected to PostgreSQL")

		if err := postgresRepo.RunMigrations(ctx); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}

		leaderboardEngine.SetRecorder(postgresRepo)
		streakEngine.SetRecorder(postgresRepo)

		if cfg.Archive.Enabled {
			archiveWorker = worker.NewArchiveWorker(gateway, postgresRepo, &cfg.Archive, logger)
			if err := archiveWorker.Start(ctx); err != nil {
				logger.Error("failed to start archive worker", "error", err)
				os.Exit(1)
			}
		}
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket hub initialized")

	// Initialize Kafka consumer for high-load quiz-result ingestion
	var kafkaConsumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka consumer",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.Topic,
		)
		ingestor := ingest.New(leaderboardEngine, streakEngine, logger)
		var err error
		kafkaConsumer, err = kafka.NewConsumer(&cfg.Kafka, ingestor, logger)
		if err != nil {
			logger.Warn("failed to create Kafka consumer, continuing without Kafka", "error", err)
		} else {
			if err := kafkaConsumer.Start(); err != nil {
				logger.Warn("failed to start Kafka consumer, continuing without Kafka", "error", err)
				kafkaConsumer = nil
			} else {
				logger.Info("Kafka consumer started successfully")
			}
		}
	}

	// Initialize HTTP handler with WebSocket hub
	httpHandler := handler.NewHandler(
		leaderboardEngine,
		analyticsEngine,
		progressEngine,
		streakEngine,
		sharingManager,
		deckCatalog,
		wsHub,
		cfg.Leaderboard.BroadcastLimit,
		logger,
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port)
		logger.Info("WebSocket endpoint available at /ws")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop WebSocket hub
	wsHub.Stop()

	// Stop Kafka consumer
	if kafkaConsumer != nil {
		if err := kafkaConsumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
	}

	// Stop archive worker
	if archiveWorker != nil {
		if err := archiveWorker.Stop(); err != nil {
			logger.Error("failed to stop archive worker", "error", err)
		}
	}

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	logger.Info("server stopped")
}
