// Package main is the entry point for the castplane controller.
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

	"castplane/internal/actions"
	"castplane/internal/blob"
	"castplane/internal/config"
	"castplane/internal/controller"
	"castplane/internal/controller/handlers"
	"castplane/internal/dispatch"
	"castplane/internal/events"
	"castplane/internal/identity"
	"castplane/internal/logger"
	"castplane/internal/observability"
	"castplane/internal/store/postgres"
)

func main() {
	// Parse flags
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	configPath := flag.String("config", "", "Path to config file (default: castplane.yaml in current directory)")
	flag.Parse()

	// Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.LogLevel)

	// Setup Database
	ctx := context.Background()
	store, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer store.Close()

	// Run migrations if requested
	if *migrateFlag {
		log.Println("Running database migrations...")
		version, err := postgres.Migrate(store.DB())
		if err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Printf("Migrations completed successfully (schema version %d)", version)
	}

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, observability.TracingConfig{
		ServiceName:   "castplane-controller",
		CollectorAddr: cfg.OTELEndpoint,
		SampleRatio:   cfg.OTELSampleRatio,
	})
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

	instruments, err := observability.NewInstruments()
	if err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}

	// Dispatch
	bus := events.NewHTTPBus(cfg.EventsURL, cfg.EventsKey)
	dispatcher := dispatch.New(bus,
		cfg.DispatchPolicy(),
		dispatch.WithLogger(appLogger),
		dispatch.WithInstruments(instruments),
	)

	blobs := blob.NewHTTPStore(cfg.BlobAPIURL, cfg.BlobToken)
	svc, err := actions.New(actions.Deps{
		Projects:    store,
		Blobs:       blobs,
		Dispatcher:  dispatcher,
		Logger:      appLogger,
		Instruments: instruments,
	}, actions.Options{
		MaxFileSize: cfg.MaxFileSize,
		Cleanup:     cfg.CleanupPolicy(),
	})
	if err != nil {
		log.Fatalf("Failed to build project actions: %v", err)
	}

	if cfg.AdminSecret == "" {
		log.Println("CASTPLANE_ADMIN_SECRET is not set, admin routes are disabled")
	}

	// Start Server
	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := controller.New(addr, controller.Options{
		Actions:        svc,
		Store:          store,
		Identity:       identity.NewStoreProvider(store),
		Logger:         appLogger,
		AdminSecret:    cfg.AdminSecret,
		MetricsHandler: metricsHandler,
		RateLimitTTL:   cfg.RateLimitTTL,
		ActionBudget:   cfg.ActionBudget(),
		Readiness: map[string]handlers.ReadinessCheck{
			"events": bus.Check,
			"blob":   blobs.Check,
		},
	})

	go func() {
		log.Printf("Castplane Controller starting on %s", addr)
		if err := srv.Run(ctx); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// In-flight requests may be inside a full retry run.
	log.Println("Shutting down controller...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), srv.WriteDeadline()+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	if err := svc.Drain(shutdownCtx); err != nil {
		appLogger.Error("exiting with detached work unfinished, projects may lack their events", "error", err)
		return
	}
	log.Println("Server exited properly")
}
