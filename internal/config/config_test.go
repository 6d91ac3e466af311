package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_PATH", "")
	t.Setenv("PORT", "")
	t.Setenv("ADMIN_TOKEN", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("APP_ENV", "")

	cfg := Load()

	assert.Equal(t, "./dev.db", cfg.DBPath)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.IsDev())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DB_PATH", "/var/lib/merlin/quotes.db")
	t.Setenv("PORT", "9090")
	t.Setenv("ADMIN_TOKEN", "sekrit")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("APP_ENV", "production")

	cfg := Load()

	assert.Equal(t, "/var/lib/merlin/quotes.db", cfg.DBPath)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "sekrit", cfg.AdminToken)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.IsDev())
}
