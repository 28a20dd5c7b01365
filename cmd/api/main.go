package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/healthdesk/healthdesk-platform/internal/accounts"
	"github.com/healthdesk/healthdesk-platform/internal/api/router"
	"github.com/healthdesk/healthdesk-platform/internal/cache"
	"github.com/healthdesk/healthdesk-platform/internal/config"
	"github.com/healthdesk/healthdesk-platform/internal/locations"
	"github.com/healthdesk/healthdesk-platform/internal/observability/metrics"
	"github.com/healthdesk/healthdesk-platform/internal/reporting"
	"github.com/healthdesk/healthdesk-platform/internal/scheduling"
	"github.com/healthdesk/healthdesk-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting healthdesk-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()

	loc := cfg.BusinessLocation()

	accountsService := accounts.NewService(
		accounts.NewStore(pool),
		cache.NewRedisCache(redisClient, "accounts"),
		cfg.LocationCacheTTL, logger)
	locationsService := locations.NewService(
		locations.NewStore(pool),
		cache.NewRedisCache(redisClient, "locations"),
		cfg.LocationCacheTTL, logger)
	accountsService.WithLocations(locationsService)
	schedulingService := scheduling.NewService(
		scheduling.NewStore(pool), accountsService, loc,
		metrics.NewSchedulingMetrics(nil), logger)
	reportingService := reporting.NewService(
		reporting.NewStore(pool), accountsService,
		cache.NewRedisCache(redisClient, "reports"),
		cfg.ReportCacheTTL,
		metrics.NewReportingMetrics(nil), logger)

	r := router.New(&router.Config{
		Logger:              logger,
		AccountsHandler:     accounts.NewHandler(accountsService, logger),
		AppointmentsHandler: scheduling.NewHandler(schedulingService, logger),
		LocationsHandler:    locations.NewHandler(locationsService, logger),
		ReportsHandler:      reporting.NewHandler(reportingService, logger),
		JWTSecret:           cfg.AuthJWTSecret,
		Directory:           accountsService,
		MetricsHandler:      promhttp.Handler(),
		RateLimitPerSecond:  10,
		RateLimitBurst:      30,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
