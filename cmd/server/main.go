package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/smartcity/flowsense/internal/delivery/http"
	"github.com/smartcity/flowsense/internal/domain"
	"github.com/smartcity/flowsense/internal/repository/noop"
	"github.com/smartcity/flowsense/internal/repository/postgres"
	"github.com/smartcity/flowsense/internal/repository/sqlite"
	"github.com/smartcity/flowsense/internal/service"
	"github.com/smartcity/flowsense/internal/timeutil"
	"github.com/smartcity/flowsense/internal/video"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	cfg := loadConfig()

	// Event sink: PostgreSQL, then SQLite, then disabled
	sink, closeSink := openSink(cfg)
	defer closeSink()

	// Dependency Injection: Services
	clock := timeutil.RealClock{}
	store := service.NewDensityStore()
	mlBridge := service.NewMLBridge(cfg.VisionServiceURL)
	aggregator := service.NewLaneAggregator(store, mlBridge, video.StillsOpener{},
		service.WithSampleInterval(cfg.SampleInterval),
	)
	controller := service.NewPhaseController(store, sink,
		service.WithCycleOrder(cfg.CycleOrder),
	)
	signalSvc := service.NewSignalService(store, controller, aggregator, sink, clock)

	healthCtx, healthCancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := mlBridge.Health(healthCtx); err != nil {
		log.Printf("Warning: vehicle detection service unavailable, lane counts will read 0: %v", err)
	}
	healthCancel()

	// The phase controller runs for the lifetime of the process
	if err := controller.Start(context.Background()); err != nil {
		log.Fatalf("Controller error: %v", err)
	}

	var retention *service.RetentionJob
	if pruner, ok := sink.(domain.EventPruner); ok && cfg.HistoryRetention > 0 {
		retention = service.NewRetentionJob(pruner, cfg.HistoryRetention, clock)
		if err := retention.Start(cfg.RetentionSchedule); err != nil {
			log.Printf("Warning: history retention disabled: %v", err)
			retention = nil
		}
	}

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName:      "FlowSense Signal API v1.0",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorHandler: http.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Routes
	http.SetupRoutes(app, signalSvc)

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s (storage: %s, cycle: %v)", cfg.Port, sink.Name(), cfg.CycleOrder)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	signalSvc.WaitBackground()
	if retention != nil {
		retention.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := controller.Shutdown(ctx); err != nil {
		log.Printf("Controller forced to shutdown: %v", err)
	}
	log.Println("Server exited gracefully")
}

// openSink selects the event sink once at startup so the rest of the
// service never branches on whether persistence is enabled
func openSink(cfg *Config) (domain.EventSink, func()) {
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err == nil {
			err = pool.Ping(ctx)
			if err != nil {
				pool.Close()
			}
		}
		if err != nil {
			log.Printf("Warning: Could not connect to database: %v", err)
		} else {
			sink := postgres.NewPostgresSink(pool)
			if err := sink.EnsureSchema(ctx); err != nil {
				log.Printf("Warning: %v", err)
			}
			log.Println("Connected to PostgreSQL")
			return sink, pool.Close
		}
	}

	if cfg.SQLitePath != "" {
		sink, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			log.Printf("Warning: Could not open SQLite database: %v", err)
		} else {
			log.Printf("Recording traffic history to %s", cfg.SQLitePath)
			return sink, func() {
				if err := sink.Close(); err != nil {
					log.Printf("Failed to close SQLite database: %v", err)
				}
			}
		}
	}

	log.Println("Traffic history disabled (set DATABASE_URL or SQLITE_PATH to enable)")
	return noop.NewSink(), func() {}
}
