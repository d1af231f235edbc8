package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// AnalysisWindowDays is the rolling usage window applied by the
	// scheduler and the manual analysis trigger.
	AnalysisWindowDays int

	// SchedulerInterval overrides the daily analysis cadence.
	SchedulerInterval time.Duration
	// RecommendationRetentionDays is how long pending recommendations stay
	// decidable.
	RecommendationRetentionDays int

	// Generator knobs. Zero values keep the engine defaults.
	EngineMaxSignalPct    float64
	EngineMaxTotalPct     float64
	EngineConfidenceFloor float64
	PriceFloorMinor       int64
	PriceCeilingMinor     int64

	RateLimitEnabled  bool
	IngestUserRate    float64
	IngestUserBurst   int
	IngestGlobalRate  float64
	IngestGlobalBurst int

	// BootstrapAdminKey, when set, is seeded as an active admin API key on
	// startup so self-hosted installs are usable out of the box.
	BootstrapAdminKey string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:                     getenv("APP_SERVICE", "pricing"),
		AppVersion:                  getenv("APP_VERSION", "0.1.0"),
		Environment:                 getenv("ENVIRONMENT", "development"),
		HTTPAddr:                    getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint:                getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:                      getenv("DATABASE_TYPE", "postgres"),
		DBHost:                      getenv("DATABASE_HOST", "localhost"),
		DBPort:                      getenv("DATABASE_PORT", "5432"),
		DBName:                      getenv("DATABASE_NAME", "pricing"),
		DBUser:                      getenv("DATABASE_USER", "postgres"),
		DBPassword:                  getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:                   getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:               getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:               getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime:           getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime:           getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),
		RedisAddr:                   strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword:               getenv("REDIS_PASSWORD", ""),
		RedisDB:                     getenvInt("REDIS_DB", 0),
		AnalysisWindowDays:          getenvInt("ANALYSIS_WINDOW_DAYS", 90),
		SchedulerInterval:           getenvDuration("SCHEDULER_INTERVAL", 24*time.Hour),
		RecommendationRetentionDays: getenvInt("RECOMMENDATION_RETENTION_DAYS", 14),
		EngineMaxSignalPct:          getenvFloat("ENGINE_MAX_SIGNAL_PCT", 0),
		EngineMaxTotalPct:           getenvFloat("ENGINE_MAX_TOTAL_PCT", 0),
		EngineConfidenceFloor:       getenvFloat("ENGINE_CONFIDENCE_FLOOR", 0),
		PriceFloorMinor:             int64(getenvInt("PRICE_FLOOR_MINOR", 0)),
		PriceCeilingMinor:           int64(getenvInt("PRICE_CEILING_MINOR", 0)),
		RateLimitEnabled:            getenvBool("RATE_LIMIT_ENABLED", false),
		IngestUserRate:              getenvFloat("INGEST_USER_RATE", 5),
		IngestUserBurst:             getenvInt("INGEST_USER_BURST", 10),
		IngestGlobalRate:            getenvFloat("INGEST_GLOBAL_RATE", 200),
		IngestGlobalBurst:           getenvInt("INGEST_GLOBAL_BURST", 400),
		BootstrapAdminKey:           strings.TrimSpace(getenv("BOOTSTRAP_ADMIN_KEY", "")),
	}
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getenvBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
