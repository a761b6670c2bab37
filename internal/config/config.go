package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// BackendMemory keeps engagement data in process memory; it is lost on
	// restart and meant for development and tests.
	BackendMemory = "memory"
	// BackendDatabase persists engagement data through the relational store.
	BackendDatabase = "database"
)

const (
	defaultPort         = "8080"
	defaultJWTTTL       = "24h"
	defaultStoreBackend = BackendDatabase
	defaultPlacesURL    = "https://maps.googleapis.com/maps/api/place"
)

type Config struct {
	Port        string
	DatabaseURL string

	JWTSecret string
	JWTTTL    time.Duration

	// StoreBackend selects the engagement backend once at startup. It is an
	// explicit value handed to the bootstrap wiring, never read again after
	// Load returns.
	StoreBackend string

	PlacesAPIKey  string
	PlacesBaseURL string
}

func Load() (*Config, error) {
	// Best effort: a missing .env file is fine in production.
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", defaultPort),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:     strings.TrimSpace(os.Getenv("JWT_SECRET")),
		StoreBackend:  strings.ToLower(getEnv("STORE_BACKEND", defaultStoreBackend)),
		PlacesAPIKey:  strings.TrimSpace(os.Getenv("PLACES_API_KEY")),
		PlacesBaseURL: getEnv("PLACES_BASE_URL", defaultPlacesURL),
	}

	var err error
	cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL)
	if err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is empty")
	}
	switch cfg.StoreBackend {
	case BackendMemory:
	case BackendDatabase:
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=%s", BackendDatabase)
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendMemory, BackendDatabase, cfg.StoreBackend)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseDurationEnv(key, fallback string) (time.Duration, error) {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, raw)
	}
	return d, nil
}
