package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
)

// Config holds all configuration for the channel inventory service
type Config struct {
	// Server
	Port        string
	Environment string

	// Database
	DatabaseURL string

	// Optional infrastructure
	RedisAddr string
	NATSURL   string

	// Secrets
	CredentialEncryptionKey string

	// Sync Settings
	SyncBatchSize int
	SyncPageSize  int

	// HTTP
	CORSAllowedOrigins string
}

// Load loads configuration from environment variables
func Load() *Config {
	databaseURL := getEnv("DATABASE_URL", "")
	if databaseURL == "" {
		dbHost := getEnv("DB_HOST", "localhost")
		dbPort := getEnv("DB_PORT", "5432")
		dbUser := getEnv("DB_USER", "postgres")
		dbPassword := getEnv("DB_PASSWORD", "")
		dbName := getEnv("DB_NAME", "channel_inventory")
		dbSSLMode := getEnv("DB_SSLMODE", "disable")

		databaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			dbUser, dbPassword, dbHost, dbPort, dbName, dbSSLMode)
	}

	config := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		DatabaseURL: databaseURL,

		RedisAddr: getEnv("REDIS_ADDR", ""),
		NATSURL:   getEnv("NATS_URL", ""),

		CredentialEncryptionKey: getEnv("CREDENTIAL_ENCRYPTION_KEY", ""),

		SyncBatchSize: getEnvAsInt("SYNC_BATCH_SIZE", 500),
		SyncPageSize:  getEnvAsInt("SYNC_PAGE_SIZE", 50),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
	}

	if config.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	if config.CredentialEncryptionKey == "" {
		log.Println("Warning: CREDENTIAL_ENCRYPTION_KEY not set, channel secrets will be stored unencrypted")
	}

	return config
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}
