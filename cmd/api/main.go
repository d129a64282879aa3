package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.temporal.io/sdk/client"

	"github.com/getmaxun/maxun-sub002/pkg/api"
	"github.com/getmaxun/maxun-sub002/pkg/database"
)

func main() {
	log.Println("Starting Selector Extraction API Server")

	// Get configuration from environment
	port := getEnvOrDefault("PORT", "8080")
	mysqlDSN := getEnvOrDefault("MYSQL_DSN", "maxun:maxun@tcp(localhost:3306)/maxun?parseTime=true")
	temporalHost := getEnvOrDefault("TEMPORAL_HOST", "localhost:7233")

	// Initialize database
	db, err := database.New(mysqlDSN)
	if err != nil {
		log.Printf("Warning: Failed to connect to database: %v", err)
		log.Println("Running without database persistence")
		db = nil
	}
	if db != nil {
		defer db.Close()
	}

	// Initialize Temporal client
	temporalClient, err := client.Dial(client.Options{
		HostPort: temporalHost,
	})
	if err != nil {
		log.Fatalf("Failed to create Temporal client: %v", err)
	}
	defer temporalClient.Close()

	// Create API handlers
	handlers := api.NewHandlers(db, temporalClient)

	// Setup router
	router := mux.NewRouter()

	// Health check
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}).Methods("GET")

	// API routes
	apiRouter := router.PathPrefix("/api").Subrouter()

	// Robots
	apiRouter.HandleFunc("/robots", handlers.ListRobots).Methods("GET")
	apiRouter.HandleFunc("/robots", handlers.CreateRobot).Methods("POST")
	apiRouter.HandleFunc("/robots/{id}", handlers.GetRobot).Methods("GET")
	apiRouter.HandleFunc("/robots/{id}", handlers.DeleteRobot).Methods("DELETE")

	// Inference preview
	apiRouter.HandleFunc("/infer", handlers.InferFields).Methods("POST")

	// Runs
	apiRouter.HandleFunc("/robots/{id}/run", handlers.ExecuteRobot).Methods("POST")
	apiRouter.HandleFunc("/runs", handlers.ListRuns).Methods("GET")
	apiRouter.HandleFunc("/runs/{id}", handlers.GetRun).Methods("GET")
	apiRouter.HandleFunc("/runs/{id}/cancel", handlers.CancelRun).Methods("POST")

	// WebSockets: live capture session and run progress
	apiRouter.HandleFunc("/capture", handlers.CaptureSession).Methods("GET")
	apiRouter.HandleFunc("/runs/{id}/stream", handlers.StreamRunUpdates).Methods("GET")

	// Setup CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	handler := c.Handler(router)

	// Create server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("API server listening on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
