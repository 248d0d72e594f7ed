package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"career-roadmap/backend/config"
	"career-roadmap/backend/controllers"
	"career-roadmap/backend/metrics"
	"career-roadmap/backend/middleware"
	"career-roadmap/backend/oracle"
	"career-roadmap/backend/repository"
	"career-roadmap/backend/routes"
	"career-roadmap/backend/services"
	"career-roadmap/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Initialize logger
	logger, err := utils.NewLogger(cfg.LogMode)
	if err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database
	db, err := utils.InitDB(cfg)
	if err != nil {
		logger.Fatal("database init failed", "driver", cfg.DBDriver, "error", err.Error())
	}

	collector := metrics.NewCollector("career_roadmap")

	model, err := oracle.New(cfg.Oracle, logger)
	if err != nil {
		logger.Fatal("oracle init failed", "error", err.Error())
	}

	var store repository.Store = repository.NewRoadmapRepository(db)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		store = repository.NewCachedStore(store, rdb, cfg.CacheTTL, logger, collector)
		logger.Info("roadmap cache enabled", "redis_addr", cfg.RedisAddr, "ttl", cfg.CacheTTL.String())
	}

	generator := services.NewGenerator(model, logger, collector)
	lifecycle := services.NewLifecycle(store, generator, logger, collector, cfg.ListLimit)
	normalizer := services.NewNormalizer(cfg.DefaultWeeks, cfg.MaxWeeks)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "career-roadmap",
		ErrorHandler: middleware.ErrorHandler(logger),
		ReadTimeout:  30 * time.Second,
		// Generation waits on the model.
		WriteTimeout: cfg.Oracle.Timeout + 30*time.Second,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSAllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, X-Request-ID",
	}))
	app.Use(middleware.MetricsMiddleware(collector))
	app.Use(middleware.LoggingMiddleware(logger))

	// Setup routes
	routes.SetupRoutes(app, routes.Handlers{
		Roadmaps: controllers.NewRoadmapController(lifecycle, normalizer, logger),
		Health:   controllers.NewHealthController(store),
		Metrics:  collector,
	})

	go func() {
		if err := app.Listen(":" + cfg.ServerPort); err != nil {
			logger.Fatal("server stopped", "error", err.Error())
		}
	}()
	logger.Info("server started", "port", cfg.ServerPort, "oracle", model.Name())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error("shutdown failed", "error", err.Error())
	}
}
