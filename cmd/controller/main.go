// Package main is the entry point for the schemaplane controller.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"schemaplane/internal/config"
	"schemaplane/internal/controller"
	"schemaplane/internal/controller/handlers"
	"schemaplane/internal/executor"
	"schemaplane/internal/logger"
	"schemaplane/internal/observability"
	"schemaplane/internal/store/postgres"
	"schemaplane/internal/tenantdb"
)

func main() {
	// Parse flags
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	configPath := flag.String("config", "", "Path to config file (default: environment only)")
	flag.Parse()

	// Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogger := logger.New("controller")

	// Setup Database
	ctx := context.Background()
	// Connect to Postgres (the control plane store)
	store, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer store.Close()

	// Run migrations if requested
	if *migrateFlag {
		log.Println("Running database migrations...")
		if err := postgres.Migrate(store.DB()); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations completed successfully")
	}

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, "schemaplane-controller", cfg.OTELEndpoint)
	if err != nil {
		log.Fatalf("Failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("Failed to shutdown tracer: %v", err)
		}
	}()

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to init metrics: %v", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Printf("Failed to shutdown metrics: %v", err)
		}
	}()

	// Async gauge that queries the DB only when scraped.
	if err := observability.RegisterPendingGroupsGauge(func(ctx context.Context) (int64, error) {
		count, err := store.CountPendingGroups(ctx)
		if err != nil {
			log.Printf("Failed to count pending groups: %v", err)
			return 0, nil // Don't crash metrics scrape on DB error
		}
		return count, nil
	}); err != nil {
		log.Printf("Failed to register pending groups metric: %v", err)
	}

	// Tenant database connections, one pool per distinct DSN.
	tenantPool := tenantdb.NewPool(cfg.StatementTimeout)
	defer tenantPool.Close()

	runner := executor.New(store, tenantPool, slogger)
	h := handlers.New(store, runner, tenantPool, cfg.TenantDSNTemplate, slogger)

	// Start Server
	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := controller.New(controller.Options{
		Addr:        addr,
		AdminSecret: cfg.AdminSecret,
		Metrics:     metricsHandler,
	}, store, h)

	go func() {
		log.Printf("SchemaPlane Controller starting on %s", addr)
		if err := srv.Run(ctx); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down controller...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited properly")
}
