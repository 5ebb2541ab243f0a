package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-bi/internal/analytics"
	appconfig "github.com/wolfman30/clinic-bi/internal/config"
	"github.com/wolfman30/clinic-bi/internal/dashboard"
	"github.com/wolfman30/clinic-bi/internal/dataset"
	"github.com/wolfman30/clinic-bi/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildCache picks the view cache backend. A redis backend without a
// reachable client falls back to the in-process cache.
func BuildCache(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) dashboard.Cache {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		return dashboard.NoopCache{}
	}
	switch cfg.CacheBackend {
	case appconfig.CacheNone:
		logger.Info("view cache disabled")
		return dashboard.NoopCache{}
	case appconfig.CacheRedis:
		if redisClient != nil {
			logger.Info("view cache backed by redis", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
			return dashboard.NewRedisCache(redisClient, cfg.CacheTTL)
		}
		logger.Warn("redis cache requested but client unavailable; using memory cache")
	case appconfig.CacheMemory, "":
	default:
		logger.Warn("unknown cache backend; using memory cache", "backend", cfg.CacheBackend)
	}
	return dashboard.NewMemoryCache(cfg.CacheTTL, cfg.CacheMaxEntries)
}

// BuildSource returns the dataset source named by DATASET_SOURCE. The S3
// client and pool are only required by their respective backends.
func BuildSource(cfg *appconfig.Config, s3Client dataset.S3API, pool *pgxpool.Pool, logger *logging.Logger) (dataset.Source, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	switch cfg.DatasetSource {
	case appconfig.SourceFile, "":
		return dataset.NewFileSource(cfg.DatasetPath, logger), nil
	case appconfig.SourceS3:
		if s3Client == nil {
			return nil, fmt.Errorf("bootstrap: s3 dataset source requires an s3 client")
		}
		if strings.TrimSpace(cfg.DatasetS3Bucket) == "" {
			return nil, fmt.Errorf("bootstrap: DATASET_S3_BUCKET is required for the s3 source")
		}
		return dataset.NewS3Source(s3Client, cfg.DatasetS3Bucket, cfg.DatasetS3Key, logger), nil
	case appconfig.SourcePostgres:
		if pool == nil {
			return nil, fmt.Errorf("bootstrap: postgres dataset source requires DATABASE_URL")
		}
		return dataset.NewPostgresSource(pool), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown dataset source %q", cfg.DatasetSource)
	}
}

// EngineOptions maps configuration onto aggregation options.
func EngineOptions(cfg *appconfig.Config) analytics.Options {
	if cfg == nil {
		return analytics.Options{}
	}
	return analytics.Options{
		TrendMode:   analytics.ParseTrendMode(cfg.TrendMode),
		TrendSeed:   cfg.TrendSeed,
		Attribution: analytics.ParseAttribution(cfg.OperatorAttribution),
	}
}
