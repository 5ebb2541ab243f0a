package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Dataset sources.
const (
	SourceFile     = "file"
	SourceS3       = "s3"
	SourcePostgres = "postgres"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Dataset source
	DatasetSource   string
	DatasetPath     string
	DatasetS3Bucket string
	DatasetS3Key    string
	DatabaseURL     string

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	SnapshotBucket      string

	// View cache
	CacheBackend    string
	CacheTTL        time.Duration
	CacheMaxEntries int
	RedisAddr       string
	RedisPassword   string
	RedisTLS        bool

	// Aggregation behavior
	TrendMode           string
	TrendSeed           int64
	OperatorAttribution string

	// HTTP
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatasetSource:   strings.ToLower(strings.TrimSpace(getEnv("DATASET_SOURCE", SourceFile))),
		DatasetPath:     getEnv("DATASET_PATH", "data/data.json"),
		DatasetS3Bucket: getEnv("DATASET_S3_BUCKET", ""),
		DatasetS3Key:    getEnv("DATASET_S3_KEY", "datasets/data.json"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),

		AWSRegion:           getEnv("AWS_REGION", "eu-south-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		SnapshotBucket:      getEnv("SNAPSHOT_BUCKET", ""),

		CacheBackend:    strings.ToLower(strings.TrimSpace(getEnv("CACHE_BACKEND", CacheMemory))),
		CacheTTL:        getEnvAsDuration("CACHE_TTL", 10*time.Minute),
		CacheMaxEntries: getEnvAsInt("CACHE_MAX_ENTRIES", 1024),
		RedisAddr:       getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisTLS:        getEnvAsBool("REDIS_TLS", false),

		TrendMode:           strings.ToLower(strings.TrimSpace(getEnv("TREND_MODE", "monthly"))),
		TrendSeed:           getEnvAsInt64("TREND_SEED", 1),
		OperatorAttribution: strings.ToLower(strings.TrimSpace(getEnv("OPERATOR_ATTRIBUTION", "full"))),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 50),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 100),
	}
}

// IsDev reports whether the service runs in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
