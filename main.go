package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"studyqc/adapters/excel"
	"studyqc/adapters/postgres"
	"studyqc/adapters/postgres/migrations"
	"studyqc/app"
	"studyqc/httpapi"
	"studyqc/internal"
	"studyqc/internal/config"
	"studyqc/ports"
)

func main() {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.NewDefaultLogger()

	// Run history is optional: without DATABASE_URL the service runs
	// file-to-file and records nothing.
	var db *sqlx.DB
	var runs ports.RunRepository
	if appConfig.Database.Enabled {
		db, err = initDatabase(appConfig.Database.URL)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()
		runs = postgres.NewRunRepository(db)
		log.Println("✅ Database connected, run history enabled")
	} else {
		log.Println("⚠️ DATABASE_URL not set, run history disabled")
	}

	source := excel.NewStudySource(logger)
	writer := excel.NewWriter(logger)
	qcService := app.NewQCService(source, writer, writer, runs, logger)
	batchService := app.NewBatchService(qcService, appConfig.Batch.Concurrency, logger)

	gin.SetMode(appConfig.Server.GinMode)
	server := httpapi.NewServer(qcService, batchService, runs, appConfig.Study, logger)

	// Ops sidecar: health probes and pprof on a separate port
	if appConfig.Ops.Enabled {
		ready := func() bool { return true }
		if db != nil {
			ready = func() bool { return db.Ping() == nil }
		}
		ops := httpapi.NewOpsRouter(ready)
		go func() {
			log.Printf("🔧 Ops endpoints on port %s (healthz, readyz, debug/pprof)", appConfig.Ops.Port)
			log.Printf("💡 View profiles: go tool pprof http://localhost:%s/debug/pprof/profile?seconds=30", appConfig.Ops.Port)
			if err := http.ListenAndServe(":"+appConfig.Ops.Port, ops); err != nil {
				log.Printf("❌ ops server failed: %v", err)
			}
		}()
	}

	log.Printf("🚀 Starting StudyQC server on port %s", appConfig.Server.Port)
	log.Fatal(server.Start(":" + appConfig.Server.Port))
}

// initDatabase connects to PostgreSQL and brings the schema up to date
func initDatabase(databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := migrations.NewMigrator(db.DB).Up(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}
