package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	// Database. Driver is "mysql" for a shared server deployment or
	// "sqlite3" for a self-contained one; the MySQL fields are ignored
	// when running on SQLite.
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	SQLitePath string

	// Collection scanning.
	ScanInterval     time.Duration // period between scheduled reindex runs
	ScanInitialDelay time.Duration // delay before the first scheduled run
	WatchEnabled     bool          // rescan directories on filesystem events

	// Album art storage. Local directory by default, MinIO when an
	// endpoint is configured.
	ArtDir         string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// Optional Redis browse cache; disabled when the host is empty.
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Logging.
	LogLevel string
	LogFile  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// getEnvDuration gets an environment variable as a duration string
// (e.g. "24h", "90s") or returns a default value.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override variables already set in the environment.
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, relying on environment variables and defaults.")
	}

	return &Config{
		DBDriver:   getEnv("DB_DRIVER", "sqlite3"),
		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "melodex"),
		SQLitePath: getEnv("SQLITE_PATH", "melodex.db"),

		ScanInterval:     getEnvDuration("SCAN_INTERVAL", 24*time.Hour),
		ScanInitialDelay: getEnvDuration("SCAN_INITIAL_DELAY", 0),
		WatchEnabled:     getEnvBool("WATCH_ENABLED", false),

		ArtDir:         getEnv("ART_DIR", "albumart"),
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "melodex-art"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
	}
}
