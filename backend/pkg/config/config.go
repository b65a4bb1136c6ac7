package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	apperrors "ontology-store/backend/pkg/errors"
)

// Config holds all application configuration
type Config struct {
	// App
	Port string
	Env  string

	// Neo4j
	Neo4jURI            string
	Neo4jUser           string
	Neo4jPassword       string
	Neo4jDatabase       string // empty selects the server default database
	Neo4jMaxPoolSize    int
	Neo4jConnectTimeout time.Duration

	// Store behaviour
	DefaultQueryLimit int
	LastWriteWins     bool // disables the version check on update
	EnsureIndexes     bool

	// Observability
	MetricsEnabled bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		Env:                 getEnv("ENV", "development"),
		Neo4jURI:            getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:           getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:       getEnv("NEO4J_PASSWORD", "password"),
		Neo4jDatabase:       getEnv("NEO4J_DATABASE", ""),
		Neo4jMaxPoolSize:    getEnvInt("NEO4J_MAX_POOL_SIZE", 100),
		Neo4jConnectTimeout: time.Duration(getEnvInt("NEO4J_CONNECT_TIMEOUT_SECONDS", 5)) * time.Second,
		DefaultQueryLimit:   getEnvInt("STORE_DEFAULT_LIMIT", 100),
		LastWriteWins:       getEnvBool("STORE_LAST_WRITE_WINS", false),
		EnsureIndexes:       getEnvBool("STORE_ENSURE_INDEXES", true),
		MetricsEnabled:      getEnvBool("METRICS_ENABLED", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.Neo4jURI == "" {
		return apperrors.NewConfigMissingRequired("NEO4J_URI")
	}
	if c.Neo4jUser == "" {
		return apperrors.NewConfigMissingRequired("NEO4J_USER")
	}
	if c.Neo4jPassword == "" {
		return apperrors.NewConfigMissingRequired("NEO4J_PASSWORD")
	}
	if c.Neo4jMaxPoolSize <= 0 {
		return apperrors.NewConfigValidationFailed("NEO4J_MAX_POOL_SIZE", "must be positive")
	}
	if c.Neo4jConnectTimeout <= 0 {
		return apperrors.NewConfigValidationFailed("NEO4J_CONNECT_TIMEOUT_SECONDS", "must be positive")
	}
	if c.DefaultQueryLimit <= 0 {
		return apperrors.NewConfigValidationFailed("STORE_DEFAULT_LIMIT", "must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
