package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_USER", "beatwave")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "beatwave")
	t.Setenv("JWT_SECRET", "jwt-secret")
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		setRequiredEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "http://localhost:8080", cfg.Server.PublicBaseURL)
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, time.Hour, cfg.JWT.AccessTokenExpiry)
		assert.Equal(t, 60*time.Second, cfg.Storage.SignedURLTTL)
		assert.Equal(t, 15*time.Minute, cfg.Gate.SessionTTL)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
		assert.Equal(t, "0 9 * * 1", cfg.Schedule.DigestCron)
	})

	t.Run("overrides", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("SERVER_PORT", "9000")
		t.Setenv("PUBLIC_BASE_URL", "https://beatwave.example/")
		t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
		t.Setenv("SIGNED_URL_TTL", "2m")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, "https://beatwave.example", cfg.Server.PublicBaseURL)
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, 2*time.Minute, cfg.Storage.SignedURLTTL)
	})

	t.Run("missing db host", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("DB_HOST", "")

		_, err := Load()
		assert.EqualError(t, err, "DB_HOST is required")
	})

	t.Run("invalid duration", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("GATE_SESSION_TTL", "soon")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid GATE_SESSION_TTL")
	})
}

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{Host: "db", Port: 3306, User: "u", Password: "p", DBName: "beatwave"}}

	assert.Equal(t, "u:p@tcp(db:3306)/beatwave?parseTime=true&charset=utf8mb4", cfg.DSN())
}
