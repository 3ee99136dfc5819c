package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, int32(8188), cfg.HTTP.Port)
	assert.Equal(t, "0.0.0.0", cfg.HTTP.Host)
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, DefaultStorageDir, cfg.Storage.Dir)
	assert.Equal(t, "/storage", cfg.Storage.PublicPath)
	assert.Equal(t, int64(10<<20), cfg.Storage.MaxUploadBytes)
	assert.Equal(t, int64(50_000_000), cfg.Storage.MaxImagePixels)
	assert.Equal(t, 5, cfg.Listing.PageSize)
	assert.True(t, cfg.Tasks.Enabled)
	assert.Equal(t, 2, cfg.Tasks.Workers)
	assert.Equal(t, "30 3 * * *", cfg.Sweep.Schedule)
	assert.Equal(t, time.Hour, cfg.Sweep.GracePeriod)
	assert.Equal(t, 90, cfg.Audit.RetentionDays)
	assert.Equal(t, 24*time.Hour, cfg.Session.Lifetime)
	assert.True(t, cfg.Session.SecureCookies)
	assert.Empty(t, cfg.Session.CSRFSecret)
	assert.Empty(t, cfg.CORS.AllowedOrigins)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_PATH", "/data/library.db")
	t.Setenv("PAGE_SIZE", "20")
	t.Setenv("TASKS_ENABLED", "false")
	t.Setenv("SWEEP_SCHEDULE", "@hourly")
	t.Setenv("SWEEP_GRACE_PERIOD", "10m")
	t.Setenv("SESSION_SECURE_COOKIES", "false")
	t.Setenv("CSRF_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("METRICS_ENABLED", "false")

	cfg := NewConfig()

	assert.Equal(t, int32(9000), cfg.HTTP.Port)
	assert.Equal(t, "/data/library.db", cfg.Database.Path)
	assert.Equal(t, 20, cfg.Listing.PageSize)
	assert.False(t, cfg.Tasks.Enabled)
	assert.Equal(t, "@hourly", cfg.Sweep.Schedule)
	assert.Equal(t, 10*time.Minute, cfg.Sweep.GracePeriod)
	assert.False(t, cfg.Session.SecureCookies)
	assert.Len(t, cfg.Session.CSRFSecret, 32)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.False(t, cfg.Metrics.Enabled)
}
