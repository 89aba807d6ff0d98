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
	Port         string
	FrontendURL  string
	Debug        bool
	DBPath       string
	Gemini       GeminiConfig
	Credits      CreditConfig
	ToastTTL     time.Duration
	PreviewGrace time.Duration
	StateIdleTTL time.Duration
}

// GeminiConfig controls the generative API client.
type GeminiConfig struct {
	APIKey     string
	BaseURL    string
	FlashModel string // chat, idea suggestion, freeform generation
	ProModel   string // full prompt synthesis, code generation
}

// CreditConfig controls the credit ledger.
type CreditConfig struct {
	Starter            int
	CodeGenerationCost int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		Debug:       getEnvBool("DEBUG", false),
		DBPath:      getEnv("DB_PATH", "./data/forge.db"),
		Gemini: GeminiConfig{
			APIKey:     getEnv("GEMINI_API_KEY", ""),
			BaseURL:    strings.TrimRight(getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"), "/"),
			FlashModel: getEnv("FLASH_MODEL", "gemini-2.5-flash"),
			ProModel:   getEnv("PRO_MODEL", "gemini-2.5-pro"),
		},
		Credits: CreditConfig{
			Starter:            getEnvInt("STARTER_CREDITS", 20),
			CodeGenerationCost: getEnvInt("CODE_GENERATION_COST", 5),
		},
		ToastTTL:     getEnvDuration("TOAST_TTL", 3*time.Second),
		PreviewGrace: getEnvDuration("PREVIEW_GRACE", 150*time.Millisecond),
		StateIdleTTL: getEnvDuration("STATE_IDLE_TTL", 30*time.Minute),
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
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Gemini.BaseURL == "" {
		return fmt.Errorf("GEMINI_BASE_URL cannot be empty")
	}
	if c.Gemini.FlashModel == "" || c.Gemini.ProModel == "" {
		return fmt.Errorf("FLASH_MODEL and PRO_MODEL cannot be empty")
	}
	if c.Credits.Starter <= 0 {
		return fmt.Errorf("STARTER_CREDITS must be > 0")
	}
	if c.Credits.CodeGenerationCost <= 0 {
		return fmt.Errorf("CODE_GENERATION_COST must be > 0")
	}
	if c.ToastTTL <= 0 {
		return fmt.Errorf("TOAST_TTL must be > 0")
	}
	if c.StateIdleTTL <= 0 {
		return fmt.Errorf("STATE_IDLE_TTL must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// AIEnabled reports whether an API key is configured.
func (c *Config) AIEnabled() bool {
	return c.Gemini.APIKey != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
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

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return b
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
