package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"sumup/internal/config"
	"sumup/internal/handlers"
	"sumup/internal/jobs"
	"sumup/internal/logging"
	"sumup/internal/preflight"
	"sumup/internal/services"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting Sum-up Server...")

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, Bluesky: %s, Model: %s)", cfg.Port, cfg.BlueskyServiceURL, cfg.OpenAIModel)

	// Run preflight checks
	results := preflight.NewChecker(cfg).RunAll()
	if preflight.HasFailures(results) {
		log.Println("❌ Pre-flight checks failed. Please fix the issues above before starting the server.")
		os.Exit(1)
	}
	log.Println("✅ All pre-flight checks passed")

	// Initialize services
	cache := services.NewSummaryCache(cfg.CacheTTL)
	services.InitMetrics(cache)
	log.Println("✅ Prometheus metrics initialized")

	upstream := services.NewUpstreamClient(cfg.BlueskyServiceURL, cfg.UpstreamTimeout)
	sessions := services.NewSessionManager(upstream, cfg.BlueskyAccount, cfg.BlueskyKey)

	// No traffic is served without a valid upstream session
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), cfg.UpstreamTimeout)
	err := sessions.Refresh(startupCtx)
	cancelStartup()
	if err != nil {
		log.Fatalf("❌ Failed to acquire initial Bluesky session: %v", err)
	}

	prompts := services.NewPromptLibrary()
	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()
	if cfg.PromptsFile != "" {
		if err := prompts.LoadFile(cfg.PromptsFile); err != nil {
			log.Fatalf("❌ Failed to load prompts: %v", err)
		}
		if err := prompts.Watch(appCtx, cfg.PromptsFile); err != nil {
			log.Printf("⚠️  Prompt hot reload disabled: %v", err)
		}
	}

	feeds := services.NewFeedService(upstream, sessions, cfg.FeedLimit, cfg.FeedRequestsPerSecond)
	generator := services.NewSummaryGenerator(services.SummaryGeneratorConfig{
		APIKey:  cfg.OpenAIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
	}, prompts)
	summarizeService := services.NewSummarizeService(feeds, generator, cache, cfg.UpstreamTimeout*3)
	log.Println("✅ Summarize service initialized")

	// Background jobs
	jobScheduler, err := jobs.NewJobScheduler()
	if err != nil {
		log.Fatalf("❌ Failed to create job scheduler: %v", err)
	}
	if err := jobScheduler.RegisterCritical("session_refresh", jobs.NewSessionRefreshJob(sessions, cfg.SessionRefreshInterval)); err != nil {
		log.Fatalf("❌ Failed to register session refresh: %v", err)
	}
	if err := jobScheduler.Register("cache_clear", jobs.NewCacheClearJob(cache, cfg.CacheClearInterval, cfg.CacheClearCron)); err != nil {
		log.Fatalf("❌ Failed to register cache clear: %v", err)
	}
	jobScheduler.Start()

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Sum-up v1.0",
		ErrorHandler: handlers.ErrorHandler,
		UnescapePath: true, // handles and styles arrive URL-encoded
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.UpstreamTimeout * 3, // feed fetch plus generation
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))

	prometheus := fiberprometheus.New("sumup")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: "GET,OPTIONS",
	}))
	app.Use(compress.New())

	summarizeHandler := handlers.NewSummarizeHandler(summarizeService, cfg.UpstreamTimeout*3)
	healthHandler := handlers.NewHealthHandler(sessions, cache, jobScheduler)
	handlers.RegisterRoutes(app, summarizeHandler, healthHandler)

	if info, err := os.Stat(cfg.SiteDir); err == nil && info.IsDir() {
		app.Static("/", cfg.SiteDir, fiber.Static{
			Compress:      true,
			CacheDuration: 24 * time.Hour,
		})
		log.Printf("🌐 Frontend serving from %s", cfg.SiteDir)
	}

	log.Printf("✅ Server ready on port %s", cfg.Port)
	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)
	if cfg.CacheClearCron != "" {
		log.Printf("🕐 Background jobs: session refresh (every %v), cache clear (%s)", cfg.SessionRefreshInterval, cfg.CacheClearCron)
	} else {
		log.Printf("🕐 Background jobs: session refresh (every %v), cache clear (every %v)", cfg.SessionRefreshInterval, cfg.CacheClearInterval)
	}

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan

		log.Printf("🛑 Received %s, shutting down server...", strings.ToUpper(sig.String()))

		jobScheduler.Stop()
		cancelApp()

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
