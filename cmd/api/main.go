package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-bi/cmd/mainconfig"
	"github.com/wolfman30/clinic-bi/internal/api/router"
	"github.com/wolfman30/clinic-bi/internal/app/bootstrap"
	appconfig "github.com/wolfman30/clinic-bi/internal/config"
	"github.com/wolfman30/clinic-bi/internal/dashboard"
	"github.com/wolfman30/clinic-bi/internal/dataset"
	httpmiddleware "github.com/wolfman30/clinic-bi/internal/http/middleware"
	"github.com/wolfman30/clinic-bi/internal/observability/metrics"
	"github.com/wolfman30/clinic-bi/pkg/logging"
)

func main() {
	// Optional .env for local runs
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-bi API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"dataset_source", cfg.DatasetSource,
		"cache_backend", cfg.CacheBackend,
	)

	ctx := context.Background()

	pool := connectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool != nil {
		defer pool.Close()
	}

	s3Client, err := setupS3(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	source, err := bootstrap.BuildSource(cfg, s3Client, pool, logger)
	if err != nil {
		logger.Error("failed to configure dataset source", "error", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.CacheBackend == appconfig.CacheRedis {
		redisClient = bootstrap.BuildRedisClient(ctx, cfg, logger, true)
		if redisClient != nil {
			defer redisClient.Close()
		}
	}
	cache := bootstrap.BuildCache(cfg, redisClient, logger)

	metricsHandler, dashboardMetrics := setupMetrics()

	svc := dashboard.NewService(source, bootstrap.EngineOptions(cfg), cache, dashboardMetrics, logger)
	if _, err := svc.Reload(ctx); err != nil {
		logger.Error("initial dataset load failed", "error", err)
		os.Exit(1)
	}

	limiter := setupRateLimiter(cfg)
	if limiter != nil {
		defer limiter.Stop()
	}

	r := router.New(&router.Config{
		Logger:             logger,
		DashboardHandler:   dashboard.NewHandler(svc, logger),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// SIGHUP reloads the dataset; SIGINT/SIGTERM shut down.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range sigs {
		if sig != syscall.SIGHUP {
			break
		}
		reloadDataset(ctx, svc, logger)
	}

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func setupMetrics() (http.Handler, *metrics.DashboardMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewDashboardMetrics(reg)
}

func connectPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(databaseURL) == "" {
		return nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		logger.Error("failed to ping postgres", "error", err)
		pool.Close()
		return nil
	}
	logger.Info("connected to postgres")
	return pool
}

// setupS3 only builds a client when the dataset lives in S3.
func setupS3(ctx context.Context, cfg *appconfig.Config) (dataset.S3API, error) {
	if cfg.DatasetSource != appconfig.SourceS3 {
		return nil, nil
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return mainconfig.NewS3Client(awsCfg, cfg), nil
}

func setupRateLimiter(cfg *appconfig.Config) *httpmiddleware.RateLimiter {
	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst <= 0 {
		return nil
	}
	return httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
}

func reloadDataset(ctx context.Context, svc *dashboard.Service, logger *logging.Logger) {
	reloadCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	snap, err := svc.Reload(reloadCtx)
	if err != nil {
		logger.Error("dataset reload failed; keeping previous snapshot", "error", err)
		return
	}
	logger.Info("dataset reloaded", "version", snap.Version)
}
