package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jwebster45206/gem-engine/pkg/prompts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestOllamaService_Generate(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = w.Write([]byte(`{"model":"gemma3","response":"{\"scenario_text\":\"x\"}","done":true}` + "\n"))
	}))
	defer server.Close()

	svc, err := NewOllamaService(server.URL, "gemma3", 5*time.Second, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "ollama/gemma3", svc.Name())

	out, err := svc.Generate(context.Background(),
		prompts.Prompt{System: "sys", User: "usr"},
		GenerateOptions{Temperature: 0.7, Seed: 99, JSON: true})
	require.NoError(t, err)
	assert.Equal(t, `{"scenario_text":"x"}`, out)

	assert.Equal(t, "gemma3", received["model"])
	assert.Equal(t, "sys", received["system"])
	assert.Equal(t, "usr", received["prompt"])
	assert.Equal(t, "json", received["format"])
	assert.Equal(t, false, received["stream"])
	options := received["options"].(map[string]any)
	assert.Equal(t, 99.0, options["seed"])
}

func TestOllamaService_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		rateLimited bool
		empty       bool
	}{
		{
			name:        "rate limited",
			status:      http.StatusTooManyRequests,
			body:        `{"status":"busy"}`,
			rateLimited: true,
		},
		{
			name:   "empty output",
			status: http.StatusOK,
			body:   `{"model":"gemma3","response":"  ","done":true}`,
			empty:  true,
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   `{"error":"model crashed"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body + "\n"))
			}))
			defer server.Close()

			svc, err := NewOllamaService(server.URL, "gemma3", 5*time.Second, testLogger())
			require.NoError(t, err)

			_, err = svc.Generate(context.Background(), prompts.Prompt{User: "x"}, GenerateOptions{})
			require.Error(t, err)
			assert.Equal(t, tt.rateLimited, errors.Is(err, ErrRateLimited))
			assert.Equal(t, tt.empty, errors.Is(err, ErrEmptyOutput))
		})
	}
}

func TestOllamaService_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	svc, err := NewOllamaService(server.URL, "gemma3", time.Second, testLogger())
	require.NoError(t, err)
	assert.NoError(t, svc.Ping(context.Background()))

	server.Close()
	assert.Error(t, svc.Ping(context.Background()))
}

func TestNewOllamaService_InvalidURL(t *testing.T) {
	_, err := NewOllamaService("http://[::1", "m", time.Second, testLogger())
	assert.Error(t, err)
}
