// Package config provides environment-backed configuration for the
// intake service. The process command and server both load from here;
// .env files are read by main via godotenv before Load runs.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Config holds service configuration
type Config struct {
	// Port is the HTTP listen port
	Port int `validate:"gte=1,lte=65535"`
	// DatabaseURL is the PostgreSQL connection string
	DatabaseURL string `validate:"required"`
	// GeminiAPIKey authenticates the language-model collaborator.
	// Empty disables the analysis and narrative stages.
	GeminiAPIKey string
	// ExtractionURL is the base URL of the external parsing service
	ExtractionURL string `validate:"omitempty,url"`
	// ExtractionToken is the bearer token for the parsing service
	ExtractionToken string
	// StorageBucket names the GCS bucket for uploads. Empty selects
	// local-directory storage under StorageDir.
	StorageBucket string
	// StorageDir is the local storage root when no bucket is set
	StorageDir string
}

// Load reads configuration from the environment and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Port:            8080,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		ExtractionURL:   os.Getenv("EXTRACTION_URL"),
		ExtractionToken: os.Getenv("EXTRACTION_TOKEN"),
		StorageBucket:   os.Getenv("STORAGE_BUCKET"),
		StorageDir:      os.Getenv("STORAGE_DIR"),
	}

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		cfg.Port = p
	}

	if cfg.StorageDir == "" {
		cfg.StorageDir = "data/uploads"
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
