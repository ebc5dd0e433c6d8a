package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 75*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, int64(10<<20), cfg.Upload.MaxFileSize)
	assert.Equal(t, int64(20<<20), cfg.Upload.ChatMaxFileSize)
	assert.Equal(t, 2, cfg.Upload.MaxFiles)
	assert.Equal(t, 60*time.Second, cfg.Media.UploadTimeout)
	assert.Equal(t, RealtimeModeWebSocket, cfg.Realtime.Mode)
	assert.Equal(t, BackendMemory, cfg.Presence.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Presence.IdleTimeout)
	assert.Equal(t, 100, cfg.RateLimit.PerMinute)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("REALTIME_MODE", "Polling")
	t.Setenv("PRESENCE_BACKEND", "redis")
	t.Setenv("PRESENCE_IDLE_TIMEOUT", "1m")
	t.Setenv("PRESENCE_TTL", "2m")
	t.Setenv("ADMIN_EMAIL", " Admin@Example.com ")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("CHAT_MAX_FILE_SIZE", "1024")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, RealtimeModePolling, cfg.Realtime.Mode)
	assert.Equal(t, BackendRedis, cfg.Presence.Backend)
	assert.Equal(t, time.Minute, cfg.Presence.IdleTimeout)
	assert.Equal(t, "admin@example.com", cfg.Auth.AdminEmail)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, int64(1024), cfg.Upload.ChatMaxFileSize)
	assert.True(t, cfg.NeedsRedis())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"AUTH_JWT_SECRET": ""}},
		{"bad realtime mode", map[string]string{"REALTIME_MODE": "carrier-pigeon"}},
		{"bad presence backend", map[string]string{"PRESENCE_BACKEND": "etcd"}},
		{"bad storage backend", map[string]string{"STORAGE_BACKEND": "mongo"}},
		{"ttl shorter than idle", map[string]string{"PRESENCE_BACKEND": "redis", "PRESENCE_TTL": "1m"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("AUTH_JWT_SECRET", "secret")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
