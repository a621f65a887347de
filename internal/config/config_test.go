package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, []string{"gemini-2.5-flash", "gemini-2.5-flash-lite", "gemini-3-flash-preview"}, cfg.GeminiModels)
	assert.Equal(t, []string{"gemma-3-27b-it", "gemma-3-12b-it"}, cfg.GeminiBackupModels)
	assert.Equal(t, "gemini-2.5-flash", cfg.CandidateModel)
	assert.Equal(t, ImageBackendImagen, cfg.ImageBackend)
	assert.Equal(t, ImageResponseJSON, cfg.ImageResponse)
	assert.Equal(t, 120*time.Second, cfg.TextTimeout)
	assert.Equal(t, 180*time.Second, cfg.MediaTimeout)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Empty(t, cfg.RedisURL)
	assert.Empty(t, cfg.OllamaHost)
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("GEMINI_MODELS", "only-model")
	t.Setenv("IMAGE_BACKEND", "HuggingFace")
	t.Setenv("HUGGING_FACE_ACCESS_TOKEN", "hf")
	t.Setenv("IMAGE_RESPONSE", "raw")
	t.Setenv("CACHE_TTL", "5m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, []string{"only-model"}, cfg.GeminiModels)
	assert.Equal(t, ImageBackendHuggingFace, cfg.ImageBackend)
	assert.Equal(t, ImageResponseRaw, cfg.ImageResponse)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			GeminiAPIKey:  "key",
			GeminiModels:  []string{"m"},
			ImageBackend:  ImageBackendImagen,
			ImageResponse: ImageResponseJSON,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing key", func(c *Config) { c.GeminiAPIKey = "" }, true},
		{"no models", func(c *Config) { c.GeminiModels = nil }, true},
		{"ollama only", func(c *Config) { c.GeminiModels = nil; c.OllamaHost = "http://localhost:11434" }, false},
		{"unknown image backend", func(c *Config) { c.ImageBackend = "dalle" }, true},
		{"huggingface without token", func(c *Config) { c.ImageBackend = ImageBackendHuggingFace }, true},
		{"local image backend", func(c *Config) { c.ImageBackend = ImageBackendLocal }, false},
		{"unknown image response", func(c *Config) { c.ImageResponse = "xml" }, true},
		{"negative rate limit", func(c *Config) { c.RateLimitPerMinute = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLogLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("bogus"))
}

func TestGetEnv(t *testing.T) {
	t.Setenv("GEM_TEST_VALUE", "set")
	assert.Equal(t, "set", GetEnv("GEM_TEST_VALUE", "default"))
	assert.Equal(t, "default", GetEnv("GEM_TEST_UNSET_VALUE", "default"))
}
