// ABOUTME: Centralized configuration for the persona engine
// ABOUTME: Loads from environment variables with validation and defaults
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the persona engine
type Config struct {
	// Storage settings
	DBPath string

	// Ingest settings
	WriteMode         string
	IngestParallelism int
	InsightConfidence float64
	TimelineLimit     int

	// Observability
	MetricsAddr string

	// OpenAI settings
	OpenAIKey  string
	ChatModel  string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:            os.Getenv("PERSONA_DB_PATH"),
		WriteMode:         strings.ToLower(getEnv("PERSONA_WRITE_MODE", "queue")),
		IngestParallelism: getEnvInt("PERSONA_INGEST_PARALLELISM", 8),
		InsightConfidence: getEnvFloat("PERSONA_INSIGHT_CONFIDENCE", 0.7),
		TimelineLimit:     getEnvInt("PERSONA_TIMELINE_LIMIT", 0),
		MetricsAddr:       os.Getenv("PERSONA_METRICS_ADDR"),
		OpenAIKey:         os.Getenv("OPENAI_API_KEY"),
		ChatModel:         getEnv("PERSONA_OPENAI_MODEL", "gpt-4o-mini"),
		Timeout:           getEnvDuration("OPENAI_TIMEOUT", 30*time.Second),
		MaxRetries:        getEnvInt("OPENAI_MAX_RETRIES", 3),
		RetryDelay:        getEnvDuration("OPENAI_RETRY_DELAY", 2*time.Second),
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.WriteMode != "queue" && c.WriteMode != "reject" {
		return fmt.Errorf("PERSONA_WRITE_MODE must be queue or reject, got %q", c.WriteMode)
	}
	if c.InsightConfidence <= 0 || c.InsightConfidence > 1 {
		return fmt.Errorf("PERSONA_INSIGHT_CONFIDENCE must be in (0,1], got %f", c.InsightConfidence)
	}
	if c.IngestParallelism < 1 {
		return fmt.Errorf("PERSONA_INGEST_PARALLELISM must be at least 1, got %d", c.IngestParallelism)
	}
	if c.TimelineLimit < 0 {
		return fmt.Errorf("PERSONA_TIMELINE_LIMIT must not be negative, got %d", c.TimelineLimit)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("OPENAI_MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	return nil
}

// HasOpenAI reports whether a synthesis collaborator can be configured
func (c *Config) HasOpenAI() bool {
	return c.OpenAIKey != ""
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
