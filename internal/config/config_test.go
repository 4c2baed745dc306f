package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T) *AppConfig {
	t.Helper()
	t.Chdir(t.TempDir())
	cfg, err := LoadWith(viper.New())
	require.NoError(t, err)
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := load(t)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 24*time.Hour, cfg.Security.TokenTTL)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 100, cfg.RateLimit.Limit)
	assert.Equal(t, "property-images", cfg.Storage.Bucket)
	assert.Equal(t, int64(10<<20), cfg.Storage.MaxUploadBytes)
	assert.Empty(t, cfg.CORS.AllowOrigins)
	assert.Equal(t, "realtyhub:tasks", cfg.Worker.Stream)
	assert.EqualValues(t, 5, cfg.Worker.MaxDeliveries)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("REALTYHUB_SECURITY_JWTSECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("REALTYHUB_RATELIMIT_WINDOW", "1m")
	t.Setenv("REALTYHUB_RATELIMIT_LIMIT", "5")
	t.Setenv("REALTYHUB_CORS_ALLOWORIGINS", "https://a.example, https://b.example,")
	t.Setenv("REALTYHUB_DATABASE_DRIVER", "memory")

	cfg := load(t)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 5, cfg.RateLimit.Limit)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowOrigins)
	require.NoError(t, cfg.Validate())
}

func TestValidateRefusesMissingSecret(t *testing.T) {
	t.Setenv("REALTYHUB_DATABASE_DRIVER", "memory")
	cfg := load(t)
	assert.ErrorIs(t, cfg.Validate(), ErrInsecureSecret)

	cfg.Security.JWTSecret = "short"
	assert.ErrorIs(t, cfg.Validate(), ErrInsecureSecret)
}

func TestValidateDriverRules(t *testing.T) {
	cfg := load(t)
	cfg.Security.JWTSecret = "0123456789abcdef0123456789abcdef"

	assert.Error(t, cfg.Validate(), "postgres without dsn")

	cfg.Postgres.DSN = "postgres://localhost/realtyhub"
	assert.NoError(t, cfg.Validate())

	cfg.Database.Driver = "memory"
	cfg.Environment = "production"
	assert.Error(t, cfg.Validate())

	cfg.Environment = "development"
	cfg.RateLimit.Backend = "redis"
	assert.Error(t, cfg.Validate(), "redis backend without redis")
}
