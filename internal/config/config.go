// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DataDir     string
	DBPath      string
	PuzzlesFile string

	TurnTimeout    time.Duration
	OracleTimeout  time.Duration
	OracleRetries  int
	MaxTurns       int
	StorageMaxSize int

	OpenAIKey     string
	OpenAIBaseURL string
	JudgeModel    string
	GenerateModel string

	Autogen AutogenConfig
}

// AutogenConfig controls the background puzzle generation worker.
type AutogenConfig struct {
	Enabled   bool
	StartHour int
	EndHour   int
	Interval  time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DataDir:     getEnv("DATA_DIR", "./data"),
		DBPath:      getEnv("DB_PATH", "./data/puzzles.db"),
		PuzzlesFile: getEnv("PUZZLES_FILE", ""),

		TurnTimeout:    getEnvDuration("TURN_TIMEOUT", 5*time.Minute),
		OracleTimeout:  getEnvDuration("ORACLE_TIMEOUT", 30*time.Second),
		OracleRetries:  getEnvInt("ORACLE_RETRIES", 3),
		MaxTurns:       getEnvInt("MAX_TURNS", 0),
		StorageMaxSize: getEnvInt("STORAGE_MAX_SIZE", 50),

		OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		JudgeModel:    getEnv("ORACLE_MODEL", "gpt-4o-mini"),
		GenerateModel: getEnv("GENERATE_MODEL", "gpt-4o"),

		Autogen: AutogenConfig{
			Enabled:   getEnvBool("AUTOGEN_ENABLED", false),
			StartHour: getEnvInt("AUTOGEN_START_HOUR", 3),
			EndHour:   getEnvInt("AUTOGEN_END_HOUR", 6),
			Interval:  getEnvDuration("AUTOGEN_INTERVAL", 5*time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.TurnTimeout <= 0 {
		return fmt.Errorf("TURN_TIMEOUT must be positive")
	}
	if c.OracleTimeout <= 0 {
		return fmt.Errorf("ORACLE_TIMEOUT must be positive")
	}
	if c.OracleRetries <= 0 {
		return fmt.Errorf("ORACLE_RETRIES must be positive")
	}
	if c.StorageMaxSize <= 0 {
		return fmt.Errorf("STORAGE_MAX_SIZE must be positive")
	}
	if c.Autogen.StartHour < 0 || c.Autogen.StartHour > 23 ||
		c.Autogen.EndHour < 0 || c.Autogen.EndHour > 23 {
		return fmt.Errorf("AUTOGEN hours must be within 0-23")
	}
	if c.Autogen.Interval <= 0 {
		return fmt.Errorf("AUTOGEN_INTERVAL must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
