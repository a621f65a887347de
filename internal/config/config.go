package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	ImageBackendImagen      = "imagen"
	ImageBackendHuggingFace = "huggingface"
	ImageBackendLocal       = "local"

	ImageResponseJSON = "json"
	ImageResponseRaw  = "raw"
)

type Config struct {
	Port        string     `envconfig:"PORT" default:"8080"`
	Environment string     `envconfig:"ENVIRONMENT" default:"development"`
	LogLevelRaw string     `envconfig:"LOG_LEVEL" default:"info"`
	LogLevel    slog.Level `ignored:"true"`

	GeminiAPIKey       string        `envconfig:"GEMINI_API_KEY"`
	GeminiBaseURL      string        `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta"`
	GeminiModels       []string      `envconfig:"GEMINI_MODELS" default:"gemini-2.5-flash,gemini-2.5-flash-lite,gemini-3-flash-preview"`
	GeminiBackupModels []string      `envconfig:"GEMINI_BACKUP_MODELS" default:"gemma-3-27b-it,gemma-3-12b-it"`
	CandidateModel     string        `envconfig:"CANDIDATE_MODEL" default:"gemini-2.5-flash"`
	TextTimeout        time.Duration `envconfig:"TEXT_TIMEOUT" default:"120s"`

	// Optional local model appended after the backup tier.
	OllamaHost  string `envconfig:"OLLAMA_HOST"`
	OllamaModel string `envconfig:"OLLAMA_MODEL" default:"gemma3:12b"`

	ImageBackend     string        `envconfig:"IMAGE_BACKEND" default:"imagen"`
	ImageResponse    string        `envconfig:"IMAGE_RESPONSE" default:"json"`
	ImageModel       string        `envconfig:"IMAGE_MODEL" default:"imagen-3.0-generate-001"`
	HuggingFaceToken string        `envconfig:"HUGGING_FACE_ACCESS_TOKEN"`
	HuggingFaceURL   string        `envconfig:"HUGGING_FACE_URL" default:"https://router.huggingface.co/models/stabilityai/stable-diffusion-xl-base-1.0"`
	LocalImageURL    string        `envconfig:"LOCAL_IMAGE_URL" default:"http://127.0.0.1:7860"`
	AudioModel       string        `envconfig:"AUDIO_MODEL" default:"lyria-002"`
	MediaTimeout     time.Duration `envconfig:"MEDIA_TIMEOUT" default:"180s"`

	// Media cache; disabled when empty.
	RedisURL string        `envconfig:"REDIS_URL"`
	CacheTTL time.Duration `envconfig:"CACHE_TTL" default:"24h"`

	RateLimitPerMinute int      `envconfig:"RATE_LIMIT_PER_MINUTE" default:"30"`
	CORSOrigins        []string `envconfig:"CORS_ORIGINS"`
	WorldConfigPath    string   `envconfig:"WORLD_CONFIG_PATH"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)
	cfg.ImageBackend = strings.ToLower(cfg.ImageBackend)
	cfg.ImageResponse = strings.ToLower(cfg.ImageResponse)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return errors.New("GEMINI_API_KEY is required")
	}
	if len(c.GeminiModels)+len(c.GeminiBackupModels) == 0 && c.OllamaHost == "" {
		return errors.New("at least one text model must be configured")
	}
	switch c.ImageBackend {
	case ImageBackendImagen, ImageBackendLocal:
	case ImageBackendHuggingFace:
		if c.HuggingFaceToken == "" {
			return errors.New("HUGGING_FACE_ACCESS_TOKEN is required for the huggingface image backend")
		}
	default:
		return fmt.Errorf("unsupported IMAGE_BACKEND %q", c.ImageBackend)
	}
	switch c.ImageResponse {
	case ImageResponseJSON, ImageResponseRaw:
	default:
		return fmt.Errorf("unsupported IMAGE_RESPONSE %q", c.ImageResponse)
	}
	if c.RateLimitPerMinute < 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetEnv returns the value of key or defaultValue when it is unset.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
