package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backend/config"
	"backend/database"
	"backend/handlers"
	"backend/kafka"
	"backend/models"
	"backend/services"
	"backend/websocket"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

const (
	batchFlushInterval = 500 * time.Millisecond
	batchMaxSize       = 200
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting GuestFlow analytics backend on port %s", cfg.Server.Port)

	// Initialize database
	db, err := database.New(cfg.GetDatabaseURL())
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Println("Database connection established")

	// Initialize WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	log.Println("WebSocket hub started")

	// Ingestion dedup cache: shields the engine from webhook retries and
	// consumer redeliveries.
	dedup := services.NewDedupCache(cfg.DedupTTL)
	dedup.Start()
	defer dedup.Stop()

	// Shard manager: one engine processor per property, alerts fanned out to
	// storage and connected dashboards.
	alertCallback := func(propertyID string, alert *models.Alert) {
		if err := db.InsertAlert(propertyID, alert); err != nil {
			log.Printf("Failed to store alert: %v", err)
		} else {
			log.Printf("Alert created: %s [%s] %s", alert.AlertID, alert.Priority, alert.Title)
		}

		wsHub.BroadcastAlert(propertyID, alert)
	}

	shards := services.NewShardManager(cfg.Processor, alertCallback)
	shards.OnAnomaly(func(anomaly *models.Anomaly) {
		if err := db.InsertAnomaly(anomaly); err != nil {
			log.Printf("Failed to store anomaly: %v", err)
		}
		wsHub.BroadcastAnomaly(anomaly)
	})

	// Initialize Kafka consumer
	consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topics)
	if err != nil {
		log.Fatalf("Failed to initialize Kafka consumer: %v", err)
	}
	defer consumer.Stop()

	log.Printf("Kafka consumer initialized, topics: %v", cfg.Kafka.Topics)

	consumer.Start()

	// Collect validated events into small batches and run them through the
	// per-property processors. Batching keeps per-call overhead low without
	// delaying detection by more than the flush interval.
	go func() {
		ticker := time.NewTicker(batchFlushInterval)
		defer ticker.Stop()

		var batch []*models.StreamEvent
		flush := func() {
			if len(batch) == 0 {
				return
			}
			shards.Ingest(batch)
			for _, event := range batch {
				wsHub.BroadcastEvent(event)
			}
			batch = nil
		}

		for {
			select {
			case event, ok := <-consumer.EventChannel():
				if !ok {
					flush()
					return
				}
				if dedup.Seen(event.EventID) {
					continue
				}
				batch = append(batch, event)
				if len(batch) >= batchMaxSize {
					flush()
				}

			case <-ticker.C:
				flush()

			case err := <-consumer.ErrorChannel():
				if err != nil {
					log.Printf("Kafka consumer error: %v", err)
				}
			}
		}
	}()

	// Periodic metrics broadcast for connected dashboards
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			wsHub.BroadcastMetrics(map[string]interface{}{
				"metrics":           shards.AggregateMetrics(),
				"properties":        shards.Properties(),
				"connected_clients": wsHub.GetClientCount(),
				"timestamp":         time.Now(),
			})
		}
	}()

	// Initialize HTTP handlers
	handler := handlers.New(db, wsHub, shards, dedup)

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	router.Use(func(ctx *gin.Context) {
		c.HandlerFunc(ctx.Writer, ctx.Request)
		if ctx.Request.Method == "OPTIONS" {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}
		ctx.Next()
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"version":   "1.0.0",
		})
	})

	// API routes
	api := router.Group("/api")
	{
		// Ingestion (webhook-style producers)
		api.POST("/events", handler.IngestEvents)

		// Stream metrics
		api.GET("/metrics", handler.GetStreamMetrics)
		api.GET("/properties", handler.GetProperties)

		// Anomalies
		api.GET("/anomalies", handler.GetAnomalies)

		// Alerts
		api.GET("/alerts", handler.GetAlerts)
		api.GET("/alerts/history", handler.GetPersistedAlerts)
		api.PUT("/alerts/:id/acknowledge", handler.AcknowledgeAlert)

		// Forecasting
		api.GET("/forecast", handler.GetForecast)
		api.GET("/baseline", handler.GetBaseline)

		// Processor configuration
		api.GET("/processor/config", handler.GetProcessorConfig)
		api.PUT("/processor/threshold", handler.UpdateThreshold)

		// System health
		api.GET("/system/health", handler.GetSystemHealth)
	}

	// WebSocket endpoint
	router.GET("/ws", handler.WebSocketEndpoint)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("HTTP server listening on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
