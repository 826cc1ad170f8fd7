package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"procura-backend/internal/config"
	"procura-backend/internal/database"
	"procura-backend/internal/handlers"
	"procura-backend/internal/ingest"
	"procura-backend/internal/repository"
	"procura-backend/internal/router"
	"procura-backend/internal/services"
	"procura-backend/internal/websocket"
)

func main() {
	log.Println("🚀 Starting Procura Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	// The database is optional: without it the service answers in degraded,
	// model-only mode instead of refusing to start.
	var recordRepo *repository.RecordRepo
	if cfg.DatabaseURL == "" {
		log.Println("⚠ DATABASE_URL not set, running in model-only mode")
	} else {
		pool, err := database.NewPostgresPool(cfg.DatabaseURL)
		if err != nil {
			log.Printf("⚠ PostgreSQL connection failed, running in model-only mode: %v", err)
		} else {
			defer pool.Close()
			log.Println("✓ PostgreSQL connected")

			if err := database.EnsureSchema(pool); err != nil {
				log.Fatalf("✗ Schema initialization failed: %v", err)
			}
			log.Println("✓ Schema ready")

			recordRepo = repository.NewRecordRepo(pool)
			seedDataset(recordRepo, cfg.DatasetPath)
		}
	}

	// ──── Step 3: Initialize Redis (optional suggestion cache) ────
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		client, err := database.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠ Redis connection failed, suggestion cache disabled: %v", err)
		} else {
			redisClient = client
			defer redisClient.Close()
			log.Println("✓ Redis connected")
		}
	}

	// ──── Step 4: Initialize Gemini Client ────
	geminiService, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiConcurrentReqs)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()
	log.Println("✓ Gemini Flash client initialized")

	// ──── Step 5: Initialize Services ────
	// The interface value is only assigned when a repo exists so the
	// pipeline's nil check sees a genuinely nil store in degraded mode.
	var store services.RecordStore
	if recordRepo != nil {
		store = recordRepo
	}
	chatService := services.NewChatService(geminiService, store, redisClient)
	streamer := services.NewStreamer(chatService, services.DefaultPacing)

	// ──── Step 6: Start HTTP Server ────
	chatHandler := handlers.NewChatHandler(chatService, streamer)
	streamHub := websocket.NewStreamHub(streamer)
	r := router.New(chatHandler, streamHub, cfg.FrontendURL)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // streaming responses outlive normal requests
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Procura Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/chat/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}

// seedDataset loads the procurement workbook on first boot. A non-empty
// table means a previous boot already seeded it.
func seedDataset(repo *repository.RecordRepo, datasetPath string) {
	if datasetPath == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	count, err := repo.RecordCount(ctx)
	if err != nil {
		log.Printf("⚠ Dataset seed check failed: %v", err)
		return
	}
	if count > 0 {
		log.Printf("✓ Dataset already loaded (%d records)", count)
		return
	}

	records, err := ingest.LoadWorkbook(datasetPath)
	if err != nil {
		log.Printf("⚠ Dataset load failed: %v", err)
		return
	}

	if err := repo.InsertRecords(ctx, records); err != nil {
		log.Printf("⚠ Dataset seed failed: %v", err)
		return
	}
	log.Printf("✓ Dataset seeded (%d records)", len(records))
}
