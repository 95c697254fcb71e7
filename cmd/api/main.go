package main

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/01moynul/foodhub-golang/internal/ai"
	"github.com/01moynul/foodhub-golang/internal/cache"
	"github.com/01moynul/foodhub-golang/internal/config"
	"github.com/01moynul/foodhub-golang/internal/database"
	"github.com/01moynul/foodhub-golang/internal/events"
	"github.com/01moynul/foodhub-golang/internal/handlers"
	"github.com/01moynul/foodhub-golang/internal/pickup"
	"github.com/01moynul/foodhub-golang/internal/routes"
)

func main() {
	ctx := context.Background()

	// 0. --- Configuration (.env + environment) ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 1. --- Main Database Connection (Read/Write) ---
	db, err := database.OpenDB(cfg.DBDSNPrimary)
	if err != nil {
		log.Fatalf("Failed to connect to primary database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	app := &handlers.Handlers{
		DB:                 db,
		JWTSecret:          []byte(cfg.JWTSecret),
		JWTTTL:             cfg.JWTTTL,
		Fees:               cfg.Fees,
		RateLimit:          cfg.RateLimit,
		DefaultDeliveryFee: cfg.DefaultDeliveryFee,
		Events:             events.NopPublisher{},
		Pickup:             pickup.QRGenerator{BaseURL: cfg.BaseURL},
	}

	// 2. --- Settlement markers (Redis, optional) ---
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Printf("WARNING: Redis unavailable, settlement markers disabled: %v", err)
		} else {
			defer rdb.Close()
			app.Markers = cache.NewSettlementMarkers(rdb, cfg.SettlementTTL)
		}
	}

	// 3. --- Lifecycle events (Kafka, optional) ---
	if cfg.KafkaBroker != "" {
		publisher := events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBroker, cfg.KafkaTopic))
		defer publisher.Close()
		app.Events = publisher
		log.Printf("Publishing order events to %s/%s", cfg.KafkaBroker, cfg.KafkaTopic)
	}

	// 4. --- Assistant (read-only DB + Gemini, optional) ---
	if cfg.GeminiAPIKey != "" && cfg.DBDSNReadOnly != "" {
		var dbReadOnly *sql.DB
		if dbReadOnly, err = database.OpenDBWithDSN(cfg.DBDSNReadOnly); err != nil {
			log.Fatalf("Failed to connect to read-only database: %v", err)
		}
		defer dbReadOnly.Close()

		aiService, err := ai.NewAIService(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, dbReadOnly)
		if err != nil {
			log.Fatalf("Failed to initialize AI Service: %v", err)
		}
		defer aiService.Close()

		app.DBReadOnly = dbReadOnly
		app.AIService = aiService
	} else {
		log.Println("Assistant disabled: GEMINI_API_KEY or DB_DSN_READONLY not set")
	}

	// --- 5. Background Workers ---
	go runWorkers(ctx, app, cfg.WorkerInterval)

	// --- Router Setup ---
	router := routes.SetupRouter(app, cfg.AllowedOrigins)

	// --- Start Server ---
	log.Printf("Starting FoodHub API server on port %s...", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// runWorkers expires premium packages and settles any delivered order whose
// settlement did not complete.
func runWorkers(ctx context.Context, app *handlers.Handlers, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("Background worker started (every %s)", interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := app.ExpirePackages(ctx); err != nil {
				log.Printf("worker: expire packages: %v", err)
			} else if n > 0 {
				log.Printf("worker: expired %d premium packages", n)
			}
			if n, err := app.ReconcileSettlements(ctx); err != nil {
				log.Printf("worker: reconcile settlements: %v", err)
			} else if n > 0 {
				log.Printf("worker: settled %d delivered orders", n)
			}
		}
	}
}
