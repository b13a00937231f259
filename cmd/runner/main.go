// Package main is the entry point for the schemaplane runner.
// The runner is the execution agent for approved operation groups:
// it owns concurrency, polling, and the tenant database connections.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"schemaplane/internal/config"
	"schemaplane/internal/executor"
	"schemaplane/internal/logger"
	"schemaplane/internal/observability"
	"schemaplane/internal/runner"
	"schemaplane/internal/store/postgres"
	"schemaplane/internal/tenantdb"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file (default: environment only)")
	concurrency := flag.Int("concurrency", 1, "Number of groups to execute concurrently")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogger := logger.New("runner")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, "schemaplane-runner", cfg.OTELEndpoint)
	if err != nil {
		log.Fatalf("Failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("Failed to shutdown tracer: %v", err)
		}
	}()

	// Control plane store
	st, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer st.Close()

	// Tenant database connections
	tenantPool := tenantdb.NewPool(cfg.StatementTimeout)
	defer tenantPool.Close()

	exec := executor.New(st, tenantPool, slogger)

	hostname, _ := os.Hostname()
	r := runner.New(st, exec, runner.Config{
		ID:           fmt.Sprintf("runner-%s-%d", hostname, os.Getpid()),
		Concurrency:  *concurrency,
		PollInterval: cfg.RunnerPollInterval,
		BatchLimit:   cfg.RunnerBatchLimit,
	})

	log.Printf("Runner started with concurrency %d", *concurrency)
	go r.Run(ctx)

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

	// Start a dedicated metrics server on port 6162
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metricsHandler)
		log.Println("Runner metrics listening on :6162")
		if err := http.ListenAndServe(":6162", mux); err != nil {
			log.Printf("Metrics server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down runner...")
	cancel()

	<-r.Done()
}
