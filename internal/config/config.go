package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all configuration for the station search service
type Config struct {
	// HTTP server
	Port           string   `validate:"required,numeric"`
	AllowedOrigins []string `validate:"min=1"`
	StaticDir      string

	// TfL Unified API
	TfLBaseURL  string        `validate:"required,url"`
	TfLAppID    string
	TfLAppKey   string
	Mode        string        `validate:"required"`
	HTTPTimeout time.Duration `validate:"gt=0"`

	// Directory index
	IndexStaleAfter time.Duration `validate:"gt=0"`
	RebuildBackoff  time.Duration `validate:"gte=0"`
	BuildTimeout    time.Duration `validate:"gt=0"`
	BuildWorkers    int           `validate:"gte=1,lte=32"`
	WarmIndex       bool

	// Query resolution
	MinQueryLength int           `validate:"gte=1"`
	MaxResults     int           `validate:"gte=1,lte=100"`
	QueryTimeout   time.Duration `validate:"gt=0"`
	LiveTimeout    time.Duration `validate:"gt=0"`
	LiveMaxHits    int           `validate:"gte=1,lte=50"`
	HierarchyDepth int           `validate:"gte=1,lte=8"`

	// Per-query result cache
	CacheSize        int           `validate:"gte=1"`
	CacheTTL         time.Duration `validate:"gt=0"`
	DegradedCacheTTL time.Duration `validate:"gte=0"`
	EmptyCacheTTL    time.Duration `validate:"gte=0"`

	// Optional shared cache
	RedisAddr     string
	RedisPassword string
	RedisDB       int `validate:"gte=0"`

	// Offline snapshot
	SnapshotBackend    string `validate:"oneof=file sqlite postgres"`
	SnapshotPath       string
	SQLitePath         string
	DatabaseURL        string
	SnapshotMaxAgeDays int `validate:"gte=1"`
	SnapshotWatch      bool
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	return &Config{
		// HTTP server
		Port:           getEnv("PORT", "8081"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		StaticDir:      getEnv("STATIC_DIR", ""),

		// TfL Unified API
		TfLBaseURL:  getEnv("TFL_BASE_URL", "https://api.tfl.gov.uk"),
		TfLAppID:    getEnv("TFL_APP_ID", ""),
		TfLAppKey:   getEnv("TFL_API_KEY", ""),
		Mode:        getEnv("TFL_MODE", "tube"),
		HTTPTimeout: getEnvDuration("TFL_HTTP_TIMEOUT", 8*time.Second),

		// Directory index
		IndexStaleAfter: getEnvDuration("INDEX_STALE_AFTER", 6*time.Hour),
		RebuildBackoff:  getEnvDuration("INDEX_REBUILD_BACKOFF", 30*time.Second),
		BuildTimeout:    getEnvDuration("INDEX_BUILD_TIMEOUT", 60*time.Second),
		BuildWorkers:    getEnvInt("INDEX_BUILD_WORKERS", 4),
		WarmIndex:       getEnvBool("INDEX_WARM", true),

		// Query resolution
		MinQueryLength: getEnvInt("SEARCH_MIN_QUERY", 2),
		MaxResults:     getEnvInt("SEARCH_MAX_RESULTS", 12),
		QueryTimeout:   getEnvDuration("SEARCH_TIMEOUT", 5*time.Second),
		LiveTimeout:    getEnvDuration("SEARCH_LIVE_TIMEOUT", 4*time.Second),
		LiveMaxHits:    getEnvInt("SEARCH_LIVE_MAX_HITS", 10),
		HierarchyDepth: getEnvInt("HIERARCHY_MAX_DEPTH", 3),

		// Per-query result cache
		CacheSize:        getEnvInt("SEARCH_CACHE_SIZE", 1000),
		CacheTTL:         getEnvDuration("SEARCH_CACHE_TTL", 60*time.Second),
		DegradedCacheTTL: getEnvDuration("SEARCH_CACHE_DEGRADED_TTL", 15*time.Second),
		EmptyCacheTTL:    getEnvDuration("SEARCH_CACHE_EMPTY_TTL", 5*time.Second),

		// Optional shared cache
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASS", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		// Offline snapshot
		SnapshotBackend:    strings.ToLower(getEnv("SNAPSHOT_BACKEND", "file")),
		SnapshotPath:       getEnv("SNAPSHOT_PATH", "data/tube-stations.json"),
		SQLitePath:         getEnv("SQLITE_DATABASE", "data/snapshots.db"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		SnapshotMaxAgeDays: getEnvInt("SNAPSHOT_MAX_AGE_DAYS", 7),
		SnapshotWatch:      getEnvBool("SNAPSHOT_WATCH", true),
	}
}

// Validate checks field constraints and cross-field requirements
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.SnapshotBackend == "postgres" && c.DatabaseURL == "" {
		return fmt.Errorf("invalid config: SNAPSHOT_BACKEND=postgres requires DATABASE_URL")
	}
	if c.LiveTimeout > c.QueryTimeout {
		return fmt.Errorf("invalid config: SEARCH_LIVE_TIMEOUT (%v) exceeds SEARCH_TIMEOUT (%v)", c.LiveTimeout, c.QueryTimeout)
	}
	return nil
}

// SnapshotMaxAge returns the snapshot staleness threshold as a duration
func (c *Config) SnapshotMaxAge() time.Duration {
	return time.Duration(c.SnapshotMaxAgeDays) * 24 * time.Hour
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings ("90s") or bare seconds ("90")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
