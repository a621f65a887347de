package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwebster45206/gem-engine/internal/config"
	"github.com/jwebster45206/gem-engine/internal/logger"
	"github.com/jwebster45206/gem-engine/pkg/client"
	"github.com/jwebster45206/gem-engine/pkg/session"
)

type ConsoleConfig struct {
	APIBaseURL string
	Timeout    time.Duration
	StatePath  string
	LogPath    string
	Images     bool
	Audio      bool
}

func main() {
	cfg := &ConsoleConfig{
		APIBaseURL: config.GetEnv("API_BASE_URL", "http://localhost:8080"),
		Timeout:    client.DefaultTimeout,
		StatePath:  config.GetEnv("GEM_STATE_PATH", session.DefaultStatePath()),
		LogPath:    os.Getenv("GEM_LOG_PATH"),
		Images:     config.GetEnv("GEM_IMAGES", "on") != "off",
		Audio:      config.GetEnv("GEM_AUDIO", "on") != "off",
	}

	// The terminal belongs to the UI; logs go to a file or nowhere.
	var logOut io.Writer = io.Discard
	if cfg.LogPath != "" {
		f, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer func() {
			_ = f.Close() // Ignore error in defer
		}()
		logOut = f
	}
	log := logger.New(logOut, "development", slog.LevelDebug)

	api := client.New(cfg.APIBaseURL, &http.Client{Timeout: cfg.Timeout})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if !api.Health(ctx) {
		fmt.Fprintf(os.Stderr, "Could not connect to API at %s. Please ensure the API is running.\n", cfg.APIBaseURL)
		os.Exit(1)
	}

	worldCfg, err := api.Genres(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load genres: %v\n", err)
		os.Exit(1)
	}

	ctrl := session.NewController(api, session.NewFileStore(cfg.StatePath),
		session.Options{Images: cfg.Images, Audio: cfg.Audio}, log)

	p := tea.NewProgram(NewConsoleUI(cfg, api, ctrl, worldCfg, log),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}
