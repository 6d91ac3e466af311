package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	defaultDBPath = "./dev.db"
	defaultPort   = "8080"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	DBPath     string
	Port       string
	AdminToken string
	LogLevel   string
	Env        string
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// Best-effort: load local dev environment variables.
	// We don't fail if the file is missing; production should use real env injection.
	_ = godotenv.Load()

	cfg := Config{
		DBPath:     os.Getenv("DB_PATH"),
		Port:       os.Getenv("PORT"),
		AdminToken: os.Getenv("ADMIN_TOKEN"),
		LogLevel:   os.Getenv("LOG_LEVEL"),
		Env:        os.Getenv("APP_ENV"),
	}

	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if cfg.AdminToken == "" {
		log.Warn().Msg("ADMIN_TOKEN is not set; admin pricing endpoints are disabled")
	}

	return cfg
}

// IsDev reports whether the app runs in local development mode.
func (c Config) IsDev() bool {
	return c.Env == "" || c.Env == "dev" || c.Env == "development"
}
