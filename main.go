package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/autobot-tf/reputation-backend/config"
	"github.com/autobot-tf/reputation-backend/database"
	"github.com/autobot-tf/reputation-backend/handlers"
	"github.com/autobot-tf/reputation-backend/jobs"
	"github.com/autobot-tf/reputation-backend/services"
	"github.com/autobot-tf/reputation-backend/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func main() {
	startedAt := time.Now()

	// Load config
	cfg := config.LoadConfig()
	configureLogging(cfg)

	ctx := context.Background()

	store, err := database.Open(ctx, database.Options{
		Driver:      cfg.StoreDriver,
		DataDir:     cfg.DataDir,
		DatabaseURL: cfg.DatabaseURL,
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open reputation store")
	}

	var metrics *shared.ServiceMetrics
	if cfg.MetricsEnabled {
		metrics = shared.NewServiceMetrics("reputation-backend")
	}

	// Outbound clients share pooled transports per timeout
	httpClients := shared.NewHTTPClientFactory(cfg.GetHTTPTimeout())

	sourceConfig := func(baseURL, apiKey string) *services.SourceClientConfig {
		sc := services.DefaultSourceClientConfig(baseURL)
		sc.APIKey = apiKey
		sc.Version = cfg.Version
		sc.Timeout = cfg.GetHTTPTimeout()
		return sc
	}

	untrustedConfig := services.DefaultUntrustedListConfig(cfg.UntrustedListURL)
	untrustedConfig.Version = cfg.Version
	untrustedService := services.NewUntrustedListService(untrustedConfig, store, httpClients, metrics)

	reputationService := services.NewReputationService(
		services.ReputationSources{
			Community:      untrustedService,
			Marketplace:    services.NewMarketplaceService(sourceConfig(cfg.MarketplaceAPIURL, cfg.MarketplaceAPIKey), httpClients),
			Primary:        services.NewBackpackService(sourceConfig(cfg.BackpackAPIURL, cfg.BackpackAPIKey), httpClients),
			ReputationSite: services.NewSteamRepService(sourceConfig(cfg.SteamRepAPIURL, ""), httpClients),
		},
		store,
		services.ReputationServiceOptions{
			Freshness: services.NewFreshnessPolicy(cfg.GetFreshnessConfig()),
			Metrics:   metrics,
		},
	)

	rateLimit := cfg.GetRateLimitConfig()
	logrus.WithFields(logrus.Fields{
		"version":          cfg.Version,
		"store_driver":     cfg.StoreDriver,
		"cache_ttl":        cfg.GetCacheTTL(),
		"error_retry":      cfg.GetErrorRetryWindow(),
		"rate_limit_max":   rateLimit.Max,
		"rate_limit_every": rateLimit.Window,
		"metrics_enabled":  cfg.MetricsEnabled,
	}).Info("Reputation services initialized")

	// Background jobs
	var refreshJob *jobs.UntrustedRefreshJob
	if interval := cfg.GetUntrustedRefreshInterval(); interval > 0 {
		refreshJob = jobs.NewUntrustedRefreshJob(untrustedService, interval)
		refreshJob.Start()
	}

	// Setup Fiber
	app := fiber.New(fiber.Config{
		AppName:               "reputation-backend " + cfg.Version,
		ProxyHeader:           cfg.TrustedProxyHeader,
		DisableStartupMessage: true,
	})

	// Middleware
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New())
	app.Use(cors.New())

	app.Get("/health", handlers.NewHealthHandler(store, cfg.Version, startedAt).GetHealth)

	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	}

	handlers.RegisterRoutes(app,
		handlers.NewReputationHandler(reputationService),
		handlers.NewUntrustedHandler(untrustedService),
		rateLimit,
	)

	app.Static("/", cfg.PublicDir)

	go func() {
		logrus.Infof("Server is now live at http://localhost:%s", cfg.ServerPort)
		if err := app.Listen(":" + cfg.ServerPort); err != nil {
			logrus.WithError(err).Fatal("Server failed to start")
		}
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	received := <-signals

	logrus.Warnf("Received kill signal `%s`", received)

	if refreshJob != nil {
		refreshJob.Stop()
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logrus.WithError(err).Error("Server shutdown failed")
	}

	untrustedService.Wait()
	httpClients.CleanupAllClients()
	if err := store.Close(); err != nil {
		logrus.WithError(err).Error("Failed to close reputation store")
	}

	logrus.Infof("Server uptime: %v", time.Since(startedAt).Round(time.Second))
}

func configureLogging(cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.Warnf("Invalid LOG_LEVEL value: %s, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
