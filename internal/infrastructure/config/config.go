// internal/infrastructure/config/config.go
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// App
	AppVersion string

	// Server
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MongoDB
	MongoURI      string
	MongoDB       string
	MongoUser     string
	MongoPassword string

	// Fleet reference data. Postgres is preferred when a DSN is set,
	// otherwise the CSV file is used.
	PostgresURI  string
	FleetCSVPath string

	// Flight-status lookup provider
	LookupBaseURL      string
	LookupAPIKey       string
	LookupClientID     string
	LookupClientSecret string
	LookupTokenURL     string
	LookupTimeout      time.Duration

	// Bulk refresh
	RefreshConcurrency int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	// Set defaults and override with env vars
	config := &Config{
		AppVersion:   getEnv("APP_VERSION", "1.0.0"),
		Port:         getEnv("PORT", "8080"),
		ReadTimeout:  time.Duration(getEnvAsInt("READ_TIMEOUT", 30)) * time.Second,
		WriteTimeout: time.Duration(getEnvAsInt("WRITE_TIMEOUT", 30)) * time.Second,

		MongoURI:      getEnv("MONGODB_DSN", "mongodb://localhost:27017"),
		MongoDB:       getEnv("MONGO_DB", "justdrive"),
		MongoUser:     getEnv("MONGO_USER", ""),
		MongoPassword: getEnv("MONGO_PASSWORD", ""),

		PostgresURI:  getEnv("POSTGRES_DSN", ""),
		FleetCSVPath: getEnv("FLEET_CSV_PATH", "fleet.csv"),

		LookupBaseURL:      getEnv("LOOKUP_BASE_URL", "https://api.flightstatus.dev"),
		LookupAPIKey:       getEnv("LOOKUP_API_KEY", ""),
		LookupClientID:     getEnv("LOOKUP_CLIENT_ID", ""),
		LookupClientSecret: getEnv("LOOKUP_CLIENT_SECRET", ""),
		LookupTokenURL:     getEnv("LOOKUP_TOKEN_URL", ""),
		LookupTimeout:      time.Duration(getEnvAsInt("LOOKUP_TIMEOUT", 15)) * time.Second,

		RefreshConcurrency: getEnvAsInt("REFRESH_CONCURRENCY", 8),
	}

	return config, nil
}

// Helper functions to get environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
