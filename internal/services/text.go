package services

import (
	"context"

	"github.com/jwebster45206/gem-engine/pkg/prompts"
)

const (
	DefaultTurnTemperature      = 0.7
	DefaultCandidateTemperature = 0.8
)

// GenerateOptions tunes one text generation call.
type GenerateOptions struct {
	Temperature float32
	Seed        int64
	// JSON asks the backend to constrain output to JSON where supported.
	JSON bool
}

// TextModel generates raw text for a prompt.
type TextModel interface {
	// Name identifies the model in responses, logs and metrics.
	Name() string

	// Generate returns the model's text. Rate limits are reported as errors
	// matching ErrRateLimited and empty answers as ErrEmptyOutput.
	Generate(ctx context.Context, prompt prompts.Prompt, opts GenerateOptions) (string, error)
}

// Pinger is implemented by dependencies that report health.
type Pinger interface {
	Ping(ctx context.Context) error
}
