package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	CORS     CORSConfig
	Batch    BatchConfig
	Matcher  MatcherConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	PoolMin  int
	PoolMax  int
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// BatchConfig holds batch-job processing configuration.
type BatchConfig struct {
	// ChunkSize is the number of rows processed between progress writes.
	ChunkSize int
	// Workers is the number of jobs that may run concurrently.
	Workers int
	// MaxRowErrors bounds the per-row error messages kept on a job record.
	MaxRowErrors int
}

// MatcherConfig holds parcel-matching configuration.
type MatcherConfig struct {
	// FuzzyThreshold is the minimum Jaro-Winkler score for a fuzzy address match.
	FuzzyThreshold float64
	// CacheSize is the capacity of the parcel candidate LRU cache.
	CacheSize int
}

// Load reads configuration from environment variables.
// It uses viper to read values and provides sensible defaults for development.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults for development
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "jibun")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_POOL_MIN", 2)
	v.SetDefault("DB_POOL_MAX", 10)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:3001")
	v.SetDefault("BATCH_CHUNK_SIZE", 100)
	v.SetDefault("BATCH_WORKERS", 4)
	v.SetDefault("BATCH_MAX_ROW_ERRORS", 20)
	v.SetDefault("MATCHER_FUZZY_THRESHOLD", 0.92)
	v.SetDefault("MATCHER_CACHE_SIZE", 2048)

	// Bind environment variables
	v.AutomaticEnv()

	// Build configuration
	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("PORT"),
			Env:  v.GetString("ENV"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			PoolMin:  v.GetInt("DB_POOL_MIN"),
			PoolMax:  v.GetInt("DB_POOL_MAX"),
		},
		CORS: CORSConfig{
			Origins: parseOrigins(v.GetString("CORS_ORIGINS")),
		},
		Batch: BatchConfig{
			ChunkSize:    v.GetInt("BATCH_CHUNK_SIZE"),
			Workers:      v.GetInt("BATCH_WORKERS"),
			MaxRowErrors: v.GetInt("BATCH_MAX_ROW_ERRORS"),
		},
		Matcher: MatcherConfig{
			FuzzyThreshold: v.GetFloat64("MATCHER_FUZZY_THRESHOLD"),
			CacheSize:      v.GetInt("MATCHER_CACHE_SIZE"),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	// Validate database config
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Port == "" {
		return fmt.Errorf("DB_PORT is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Database.PoolMin < 0 {
		return fmt.Errorf("DB_POOL_MIN must be non-negative")
	}
	if c.Database.PoolMax < 1 {
		return fmt.Errorf("DB_POOL_MAX must be at least 1")
	}
	if c.Database.PoolMin > c.Database.PoolMax {
		return fmt.Errorf("DB_POOL_MIN must be less than or equal to DB_POOL_MAX")
	}

	// Validate CORS config
	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	// Validate batch config
	if c.Batch.ChunkSize < 1 {
		return fmt.Errorf("BATCH_CHUNK_SIZE must be at least 1")
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("BATCH_WORKERS must be at least 1")
	}
	if c.Batch.MaxRowErrors < 0 {
		return fmt.Errorf("BATCH_MAX_ROW_ERRORS must be non-negative")
	}

	// Validate matcher config
	if c.Matcher.FuzzyThreshold <= 0 || c.Matcher.FuzzyThreshold > 1 {
		return fmt.Errorf("MATCHER_FUZZY_THRESHOLD must be in (0, 1]")
	}
	if c.Matcher.CacheSize < 1 {
		return fmt.Errorf("MATCHER_CACHE_SIZE must be at least 1")
	}

	return nil
}

// parseOrigins splits a comma-separated string of origins into a slice.
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
