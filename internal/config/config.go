package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Storage backends for the team dataset.
const (
	StorageNone     = "none"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Config holds all service settings, populated from environment variables
// and an optional .env file.
type Config struct {
	EnvFile       string
	EnvFileLoaded bool

	DataDir         string
	ExportDir       string
	CityFilter      []string
	RefreshSchedule string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Dataset persistence.
	StorageType  string
	DatabasePath string
	DatabaseURL  string
	KeepRuns     int // 0 keeps every run

	// Kafka publication of canonical records.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	// OpenWeather collection.
	OpenWeatherAPIKey    string
	OpenWeatherBaseURL   string
	OpenWeatherTimeout   time.Duration
	OpenWeatherCacheSize int
	OpenWeatherCacheTTL  time.Duration
}

// Load reads configuration from the environment, applying defaults where
// unset. Variables from ENV_FILE (default ".env") are loaded first when the
// file exists; they never override variables already set.
func Load() (*Config, error) {
	envFile := sharedcfg.EnvOrDefault("ENV_FILE", ".env")
	envLoaded := false
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
		envLoaded = true
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	owTimeout, err := parsePositiveDuration("OPENWEATHER_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	owCacheTTL, err := parsePositiveDuration("OPENWEATHER_CACHE_TTL", "10m")
	if err != nil {
		return nil, err
	}
	owCacheSize, err := parseInt("OPENWEATHER_CACHE_SIZE", 100, 1)
	if err != nil {
		return nil, err
	}
	keepRuns, err := parseInt("WEATHER_KEEP_RUNS", 1, 0)
	if err != nil {
		return nil, err
	}

	logLevel := sharedcfg.EnvOrDefault("LOG_LEVEL", "info")
	if parseBool(os.Getenv("DEBUG")) {
		logLevel = "debug"
	}

	apiKey := os.Getenv("OPENWEATHER_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("OPENWEATHER_API_KEY_BACKUP")
	}

	cfg := &Config{
		EnvFile:       envFile,
		EnvFileLoaded: envLoaded,

		DataDir:         sharedcfg.EnvOrDefault("DATA_DIR", "data"),
		ExportDir:       sharedcfg.EnvOrDefault("EXPORT_DIR", "exports"),
		CityFilter:      ParseList(os.Getenv("CITY_FILTER")),
		RefreshSchedule: sharedcfg.EnvOrDefault("REFRESH_SCHEDULE", "@every 5m"),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        logLevel,
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		StorageType:  normalizeStorageType(sharedcfg.EnvOrDefault("WEATHER_STORAGE_TYPE", "sql")),
		DatabasePath: sharedcfg.EnvOrDefault("WEATHER_DATABASE_PATH", "data/weather_dashboard.db"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		KeepRuns:     keepRuns,

		KafkaEnabled: parseBool(os.Getenv("KAFKA_ENABLED")),
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "team-weather-records"),

		OpenWeatherAPIKey:    apiKey,
		OpenWeatherBaseURL:   sharedcfg.EnvOrDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5"),
		OpenWeatherTimeout:   owTimeout,
		OpenWeatherCacheSize: owCacheSize,
		OpenWeatherCacheTTL:  owCacheTTL,
	}

	if cfg.DataDir == "" {
		return nil, errors.New("DATA_DIR is required")
	}
	if _, err := cron.ParseStandard(cfg.RefreshSchedule); err != nil {
		return nil, fmt.Errorf("invalid REFRESH_SCHEDULE: %w", err)
	}
	switch cfg.StorageType {
	case StorageNone, StorageSQLite:
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("WEATHER_STORAGE_TYPE is postgres but DATABASE_URL is not set")
		}
	default:
		return nil, fmt.Errorf("invalid WEATHER_STORAGE_TYPE %q", cfg.StorageType)
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaTopic == "" {
			return nil, errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	return cfg, nil
}

// normalizeStorageType maps accepted aliases onto the Storage constants.
// "sql" is the historical default and means the embedded SQLite file.
func normalizeStorageType(s string) string {
	switch s = strings.ToLower(strings.TrimSpace(s)); s {
	case "sql", "sqlite", "sqlite3":
		return StorageSQLite
	case "postgres", "postgresql", "pg":
		return StoragePostgres
	case "", "none", "off":
		return StorageNone
	default:
		return s
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}

// ParseList splits a comma-separated list, dropping blank entries.
func ParseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive, got %s", key, d)
	}
	return d, nil
}

// parseInt reads an integer of at least minimum, or def when unset.
func parseInt(key string, def, minimum int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n < minimum {
		return 0, fmt.Errorf("invalid %s: must be at least %d, got %d", key, minimum, n)
	}
	return n, nil
}
