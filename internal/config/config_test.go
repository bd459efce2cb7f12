package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"HTTP_ADDR", "DETECT_TIMEOUT", "SESSION_IDLE_TTL", "LOG_RETENTION", "GEMINI_MODEL", "REDIS_ADDR"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, 5*time.Second, cfg.DetectTimeout)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTTL)
	assert.Equal(t, 10000, cfg.LogRetention)
	assert.Equal(t, "gemini-1.5-flash-001", cfg.GeminiModel)
	assert.Empty(t, cfg.RedisAddr)
	assert.NotEmpty(t, cfg.DBPath)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("DETECT_TIMEOUT", "750ms")
	t.Setenv("SESSION_IDLE_TTL", "90")
	t.Setenv("RATE_PER_SEC", "2.5")

	cfg := Load()

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 750*time.Millisecond, cfg.DetectTimeout)
	assert.Equal(t, 90*time.Second, cfg.SessionIdleTTL)
	assert.Equal(t, 2.5, cfg.RatePerSec)
}

func TestGetEnvHelpers_InvalidValues(t *testing.T) {
	t.Setenv("DRISHTI_TEST_INT", "many")
	t.Setenv("DRISHTI_TEST_DUR", "soon")
	t.Setenv("DRISHTI_TEST_FLOAT", "fast")

	assert.Equal(t, 7, getEnvInt("DRISHTI_TEST_INT", 7))
	assert.Equal(t, time.Minute, getEnvDuration("DRISHTI_TEST_DUR", time.Minute))
	assert.Equal(t, 1.5, getEnvFloat("DRISHTI_TEST_FLOAT", 1.5))
	assert.Equal(t, "fallback", getEnv("DRISHTI_TEST_UNSET", "fallback"))
}
