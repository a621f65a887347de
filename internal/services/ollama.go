package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jwebster45206/gem-engine/pkg/prompts"
	"github.com/ollama/ollama/api"
)

// OllamaService implements TextModel against a local Ollama server. It is
// used as the last backup tier.
type OllamaService struct {
	client    *api.Client
	modelName string
	timeout   time.Duration
	logger    *slog.Logger
}

var (
	_ TextModel = (*OllamaService)(nil)
	_ Pinger    = (*OllamaService)(nil)
)

// NewOllamaService creates a new Ollama service instance
func NewOllamaService(baseURL, modelName string, timeout time.Duration, logger *slog.Logger) (*OllamaService, error) {
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", baseURL, err)
	}

	return &OllamaService{
		client:    api.NewClient(base, &http.Client{Timeout: timeout}),
		modelName: modelName,
		timeout:   timeout,
		logger:    logger,
	}, nil
}

func (o *OllamaService) Name() string {
	return "ollama/" + o.modelName
}

// Ping checks that the Ollama server is reachable.
func (o *OllamaService) Ping(ctx context.Context) error {
	if err := o.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama heartbeat failed: %w", err)
	}
	return nil
}

// Generate runs a non-streaming generate call. Unlike the Gemini API, Ollama
// takes the seed as a sampling option.
func (o *OllamaService) Generate(ctx context.Context, prompt prompts.Prompt, opts GenerateOptions) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:  o.modelName,
		System: prompt.System,
		Prompt: prompt.User,
		Stream: &stream,
		Options: map[string]interface{}{
			"temperature": opts.Temperature,
			"seed":        opts.Seed,
			"top_p":       geminiTopP,
			"top_k":       geminiTopK,
			"num_predict": geminiMaxOutputTokens,
		},
	}
	if opts.JSON {
		req.Format = json.RawMessage(`"json"`)
	}

	var sb strings.Builder
	start := time.Now()
	err := o.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		var statusErr api.StatusError
		if errors.As(err, &statusErr) {
			return "", &UpstreamError{Backend: o.Name(), StatusCode: statusErr.StatusCode, Message: statusErr.ErrorMessage}
		}
		return "", fmt.Errorf("ollama request failed: %w", err)
	}

	out := strings.TrimSpace(sb.String())
	o.logger.Debug("Ollama response received",
		"model", o.modelName,
		"duration", time.Since(start),
		"length", len(out))
	if out == "" {
		return "", fmt.Errorf("%w from %s", ErrEmptyOutput, o.Name())
	}
	return out, nil
}
