package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"ENVIRONMENT", "AI_TIMEOUT", "STORAGE_TIMEOUT", "STORAGE_BACKEND", "CORS_ORIGINS", "AI_MODEL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 60*time.Second, cfg.AITimeout)
	assert.Equal(t, 15*time.Second, cfg.StorageTimeout)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, StorageBackendLocal, cfg.StorageBackend)
	assert.Equal(t, "gpt-4o-mini", cfg.AIModel)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("AI_TIMEOUT", "90s")
	t.Setenv("STORAGE_TIMEOUT", "5")
	t.Setenv("STORAGE_BACKEND", "S3")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")

	cfg := Load()
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 90*time.Second, cfg.AITimeout)
	assert.Equal(t, 5*time.Second, cfg.StorageTimeout)
	assert.Equal(t, StorageBackendS3, cfg.StorageBackend)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestGetDuration_InvalidFallsBack(t *testing.T) {
	t.Setenv("SOME_TIMEOUT", "soon")
	assert.Equal(t, time.Minute, getDuration("SOME_TIMEOUT", time.Minute))

	t.Setenv("SOME_TIMEOUT", "-3s")
	assert.Equal(t, time.Minute, getDuration("SOME_TIMEOUT", time.Minute))
}
