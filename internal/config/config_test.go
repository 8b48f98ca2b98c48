package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "bookstore", cfg.Mongo.Database)
	assert.Equal(t, time.Hour, cfg.Auth.AccessTTL())
	assert.Equal(t, 24*time.Hour, cfg.Auth.RefreshTTL())
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, 5*time.Second, cfg.Auth.RevocationTimeout())
	assert.False(t, cfg.App.IsProduction())
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadRequiresMongoURI(t *testing.T) {
	t.Setenv("MONGO_URI", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsRefreshShorterThanAccess(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "120")
	t.Setenv("AUTH_REFRESH_TOKEN_TTL_MINUTES", "60")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadInvalidRedisDB(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("REDIS_DB", "abc")

	_, err := Load()
	require.Error(t, err)
}

func TestIsProduction(t *testing.T) {
	assert.True(t, AppConfig{Env: "production"}.IsProduction())
	assert.True(t, AppConfig{Env: "Production"}.IsProduction())
	assert.False(t, AppConfig{Env: "staging"}.IsProduction())
}
