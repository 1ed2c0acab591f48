package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StorageModePostgres = "postgres"
	StorageModeMemory   = "memory"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// StorageMode selects postgres or the in-process memory store.
	StorageMode string

	// JWT
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// Server
	Port        string
	CORSOrigins string
	AppEnv      string
	SentryDSN   string

	// Onboarding
	WorkflowsPath       string
	MarketplaceStatuses []string

	// Contract documents: a local directory, or a storage API bucket.
	ContractsDir      string
	StorageURL        string
	StorageBucket     string
	StorageServiceKey string

	// Email
	ResendAPIKey string
	EmailFrom    string

	// Analytics
	AnalyticsBuffer        int
	AnalyticsFlushInterval time.Duration
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "onboarding_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		StorageMode: strings.ToLower(getEnv("STORAGE_MODE", StorageModePostgres)),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:  parseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m"), 15*time.Minute),
		JWTRefreshExpiry: parseDuration(getEnv("JWT_REFRESH_EXPIRY", "168h"), 168*time.Hour),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		AppEnv:      getEnv("APP_ENV", "development"),
		SentryDSN:   getEnv("SENTRY_DSN", ""),

		WorkflowsPath:       getEnv("WORKFLOWS_PATH", "config/workflows.yaml"),
		MarketplaceStatuses: parseCSV(getEnv("MARKETPLACE_STATUSES", "boarding")),

		ContractsDir:      getEnv("CONTRACTS_DIR", "contracts"),
		StorageURL:        getEnv("STORAGE_URL", ""),
		StorageBucket:     getEnv("STORAGE_BUCKET", "contracts"),
		StorageServiceKey: getEnv("STORAGE_SERVICE_KEY", ""),

		ResendAPIKey: getEnv("RESEND_API_KEY", ""),
		EmailFrom:    getEnv("EMAIL_FROM", "Marketplace <onboarding@resend.dev>"),

		AnalyticsBuffer:        parseInt(getEnv("ANALYTICS_BUFFER", "50"), 50),
		AnalyticsFlushInterval: parseDuration(getEnv("ANALYTICS_FLUSH_INTERVAL", "5s"), 5*time.Second),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// UsesRemoteStorage reports whether contracts come from the storage API.
func (c *Config) UsesRemoteStorage() bool {
	return c.StorageURL != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
