package main

import (
	"log"
	"os"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/getmaxun/maxun-sub002/pkg/database"
	"github.com/getmaxun/maxun-sub002/pkg/temporal/activities"
	"github.com/getmaxun/maxun-sub002/pkg/temporal/workflows"
)

const TaskQueue = "selector-extraction"

func main() {
	// Get Temporal host from environment
	temporalHost := os.Getenv("TEMPORAL_HOST")
	if temporalHost == "" {
		temporalHost = "localhost:7233"
	}

	// Create Temporal client
	c, err := client.Dial(client.Options{
		HostPort: temporalHost,
	})
	if err != nil {
		log.Fatalf("Failed to create Temporal client: %v", err)
	}
	defer c.Close()

	// Initialize database for result storage
	mysqlDSN := getEnvOrDefault("MYSQL_DSN", "maxun:maxun@tcp(localhost:3306)/maxun?parseTime=true")
	db, err := database.New(mysqlDSN)
	if err != nil {
		log.Printf("Warning: Failed to connect to database: %v", err)
		log.Println("Extraction results will not be persisted")
		db = nil
	}
	if db != nil {
		defer db.Close()
	}

	// Create activities
	acts := activities.NewActivities(db)

	// Create worker
	w := worker.New(c, TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     5,
		MaxConcurrentWorkflowTaskExecutionSize: 10,
	})

	// Register workflows
	w.RegisterWorkflow(workflows.ExtractionWorkflow)

	// Register activities
	w.RegisterActivity(acts.FetchPagesActivity)
	w.RegisterActivity(acts.ExtractPageActivity)
	w.RegisterActivity(acts.StoreResultsActivity)
	w.RegisterActivity(acts.MarkRunFailedActivity)

	log.Printf("Starting Temporal worker on task queue: %s", TaskQueue)
	log.Printf("Temporal host: %s", temporalHost)

	// Start worker
	err = w.Run(worker.InterruptCh())
	if err != nil {
		log.Fatalf("Worker failed: %v", err)
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
