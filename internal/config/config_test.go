package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "gpt-5-nano", cfg.OpenAI.DefaultModel)
	assert.Equal(t, 500, cfg.OpenAI.MaxCompletionTokens)
	assert.Equal(t, "low", cfg.OpenAI.ReasoningEffort)
	assert.Equal(t, "tts-1", cfg.TTS.Model)
	assert.Equal(t, "gpt-realtime-mini", cfg.Realtime.Model)
	assert.Equal(t, 10*time.Second, cfg.Realtime.ConnectTimeout)
	assert.Empty(t, cfg.OpenAI.APIKey)
}

func TestLoadPortForms(t *testing.T) {
	cases := map[string]string{
		"9090":           ":9090",
		":7000":          ":7000",
		"127.0.0.1:8081": "127.0.0.1:8081",
	}
	for in, want := range cases {
		t.Setenv("PORT", in)
		cfg, err := Load()
		require.NoError(t, err, in)
		assert.Equal(t, want, cfg.Server.Addr)
	}

	t.Setenv("PORT", "80 80")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadFileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte(`
openai:
  default_model: gpt-4o
  max_completion_tokens: 800
cache:
  backend: memory
  max_entries: 16
  ttl: 5m
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("OPENAI_MAX_COMPLETION_TOKENS", "1200")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.DefaultModel)
	assert.Equal(t, 1200, cfg.OpenAI.MaxCompletionTokens)
	assert.Equal(t, 16, cfg.Cache.MaxEntries)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
}

func TestLoadInvalidValues(t *testing.T) {
	t.Setenv("OPENAI_MAX_COMPLETION_TOKENS", "many")
	_, err := Load()
	require.ErrorContains(t, err, "OPENAI_MAX_COMPLETION_TOKENS")
}

func TestLoadRedisRequiresAddr(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("REDIS_ADDR", "localhost:6379")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Cache.Backend)
}

func TestParseOptionalDurationEnv(t *testing.T) {
	t.Setenv("X_TIMEOUT", "30")
	d, err := parseOptionalDurationEnv("X_TIMEOUT")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, *d)

	t.Setenv("X_TIMEOUT", "1m30s")
	d, err = parseOptionalDurationEnv("X_TIMEOUT")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, *d)

	t.Setenv("X_TIMEOUT", "soon")
	_, err = parseOptionalDurationEnv("X_TIMEOUT")
	require.Error(t, err)
}
