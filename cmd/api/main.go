package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/gem-engine/internal/config"
	"github.com/jwebster45206/gem-engine/internal/handlers"
	"github.com/jwebster45206/gem-engine/internal/logger"
	"github.com/jwebster45206/gem-engine/internal/metrics"
	"github.com/jwebster45206/gem-engine/internal/middleware"
	"github.com/jwebster45206/gem-engine/internal/resolver"
	"github.com/jwebster45206/gem-engine/internal/services"
	"github.com/jwebster45206/gem-engine/pkg/world"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting GEM Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"models", cfg.GeminiModels,
		"backup_models", cfg.GeminiBackupModels,
		"image_backend", cfg.ImageBackend)

	worldCfg := world.Bundled()
	if cfg.WorldConfigPath != "" {
		worldCfg, err = world.Load(cfg.WorldConfigPath)
		if err != nil {
			log.Error("Failed to load world config", "error", err, "path", cfg.WorldConfigPath)
			os.Exit(1)
		}
	}
	log.Info("World config loaded", "genres", worldCfg.GenreKeys())

	m := metrics.New()

	initCtx, initCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer initCancel()

	genaiClient, err := services.NewGeminiClient(initCtx, cfg.GeminiAPIKey)
	if err != nil {
		log.Error("Failed to create Gemini client", "error", err)
		os.Exit(1)
	}

	var models []resolver.Model
	for _, name := range cfg.GeminiModels {
		models = append(models, resolver.Primary(services.NewGeminiService(genaiClient, name, cfg.TextTimeout, log))...)
	}
	for _, name := range cfg.GeminiBackupModels {
		models = append(models, resolver.Backup(services.NewGeminiService(genaiClient, name, cfg.TextTimeout, log))...)
	}

	checks := map[string]services.Pinger{}
	if cfg.OllamaHost != "" {
		ollama, err := services.NewOllamaService(cfg.OllamaHost, cfg.OllamaModel, cfg.TextTimeout, log)
		if err != nil {
			log.Error("Failed to configure Ollama", "error", err)
			os.Exit(1)
		}
		models = append(models, resolver.Backup(ollama)...)
		checks["ollama"] = ollama
		log.Info("Using local Ollama model as last fallback", "model", cfg.OllamaModel)
	}

	turnResolver := resolver.NewTurnResolver(models, worldCfg, m, log)
	candidates := resolver.NewCandidateGenerator(
		services.NewGeminiService(genaiClient, cfg.CandidateModel, cfg.TextTimeout, log), m, log)

	predict := services.NewPredictClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.MediaTimeout)

	var image services.MediaGenerator
	switch cfg.ImageBackend {
	case config.ImageBackendHuggingFace:
		image = services.NewHuggingFaceBackend(cfg.HuggingFaceURL, cfg.HuggingFaceToken, cfg.MediaTimeout)
	case config.ImageBackendLocal:
		image = services.NewLocalImageBackend(cfg.LocalImageURL, cfg.MediaTimeout)
	default:
		image = services.NewImagenBackend(predict, cfg.ImageModel)
	}
	var audio services.MediaGenerator = services.NewLyriaBackend(predict, cfg.AudioModel)

	var cache *services.RedisService
	if cfg.RedisURL != "" {
		cache, err = services.NewRedisService(cfg.RedisURL, log)
		if err != nil {
			log.Error("Failed to configure Redis", "error", err)
			os.Exit(1)
		}
		if err := cache.WaitForConnection(initCtx); err != nil {
			log.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		log.Info("Media cache enabled", "ttl", cfg.CacheTTL)
		checks["redis"] = cache
		image = services.NewCachedGenerator(image, cache, "image", cfg.CacheTTL, m, log)
		audio = services.NewCachedGenerator(audio, cache, "audio", cfg.CacheTTL, m, log)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)
	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-cleanupCtx.Done():
				return
			case <-ticker.C:
				limiter.Cleanup()
			}
		}
	}()

	handler := handlers.NewRouter(handlers.Deps{
		Turn:          turnResolver,
		Candidates:    candidates,
		Image:         image,
		Audio:         audio,
		World:         worldCfg,
		ImageResponse: cfg.ImageResponse,
		HealthChecks:  checks,
		Models:        turnResolver.Models(),
		RateLimiter:   limiter,
		CORSOrigins:   cfg.CORSOrigins,
		Metrics:       m,
		Logger:        log,
	})

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: media generation can run for minutes and carries its own deadline.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")
	stopCleanup()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if cache != nil {
		if err := cache.Close(); err != nil {
			log.Error("Error closing cache connection", "error", err)
		}
	}
	if err := genaiClient.Close(); err != nil {
		log.Error("Error closing Gemini client", "error", err)
	}

	log.Info("Server exited")
}
