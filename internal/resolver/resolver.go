// Package resolver turns a turn request into a validated narrative response
// by walking the configured text models in priority order.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/gem-engine/internal/metrics"
	"github.com/jwebster45206/gem-engine/internal/services"
	"github.com/jwebster45206/gem-engine/pkg/fallback"
	"github.com/jwebster45206/gem-engine/pkg/prompts"
	"github.com/jwebster45206/gem-engine/pkg/turn"
	"github.com/jwebster45206/gem-engine/pkg/world"
)

// Model is one text backend and its tier.
type Model struct {
	services.TextModel
	Backup bool
}

// Primary and Backup label a list of models with a tier.
func Primary(models ...services.TextModel) []Model { return tier(models, false) }
func Backup(models ...services.TextModel) []Model  { return tier(models, true) }

func tier(models []services.TextModel, backup bool) []Model {
	out := make([]Model, 0, len(models))
	for _, m := range models {
		out = append(out, Model{TextModel: m, Backup: backup})
	}
	return out
}

// TurnResolver resolves narrative turns.
type TurnResolver struct {
	models  []Model
	world   *world.WorldConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewTurnResolver(models []Model, cfg *world.WorldConfig, m *metrics.Metrics, logger *slog.Logger) *TurnResolver {
	return &TurnResolver{
		models:  models,
		world:   cfg,
		metrics: m,
		logger:  logger,
	}
}

// Models returns the names of the configured models in attempt order.
func (r *TurnResolver) Models() []string {
	names := make([]string, 0, len(r.models))
	for _, m := range r.models {
		names = append(names, m.Name())
	}
	return names
}

// Resolve validates req, prompts each model until one yields a parseable
// response, and returns it with exactly turn.ChoiceCount choices.
func (r *TurnResolver) Resolve(ctx context.Context, req *turn.Request) (*turn.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	builder := prompts.FromRequest(req)
	if genre, ok := r.genre(req.GenreKey); ok {
		builder = builder.WithGenreLabel(genre.Label)
	}
	prompt, err := builder.Build()
	if err != nil {
		return nil, err
	}

	opts := services.GenerateOptions{
		Temperature: services.DefaultTurnTemperature,
		Seed:        req.Seed,
		JSON:        true,
	}

	backends := make([]fallback.Backend[*turn.Response], 0, len(r.models))
	for _, m := range r.models {
		backends = append(backends, fallback.Backend[*turn.Response]{
			Name:   m.Name(),
			Backup: m.Backup,
			Call: func(ctx context.Context) (*turn.Response, error) {
				return r.attempt(ctx, m, prompt, opts)
			},
		})
	}

	result, err := fallback.Run(ctx, backends, ClassifyTextError)
	if err != nil {
		r.recordFailure(err)
		return nil, err
	}

	resp := result.Value
	if resp.NormalizeChoices() {
		r.logger.Warn("Model returned wrong number of choices, using fallback choices",
			"model", result.Backend)
	}
	resp.ModelName = result.Backend
	resp.IsBackup = result.Backup

	if result.Backup {
		r.metrics.Turn("backup")
	} else {
		r.metrics.Turn("primary")
	}
	r.logger.Info("Turn resolved",
		"model", result.Backend,
		"backup", result.Backup,
		"skipped", len(result.Attempts),
		"prologue", req.IsPrologue(),
		"is_ending", resp.IsEnding)
	return resp, nil
}

func (r *TurnResolver) attempt(ctx context.Context, m Model, prompt prompts.Prompt, opts services.GenerateOptions) (*turn.Response, error) {
	start := time.Now()
	text, err := m.Generate(ctx, prompt, opts)
	if err == nil {
		var resp *turn.Response
		resp, err = turn.Parse(text)
		if err == nil {
			r.metrics.ObserveModel(m.Name(), metrics.OutcomeSuccess, time.Since(start))
			return resp, nil
		}
	}

	outcome := ClassifyTextError(err)
	r.metrics.ObserveModel(m.Name(), outcomeLabel(outcome), time.Since(start))
	if outcome == fallback.Skip {
		r.logger.Warn("Model skipped, trying next", "model", m.Name(), "error", err)
	} else {
		r.logger.Error("Model failed", "model", m.Name(), "error", err)
	}
	return nil, err
}

func (r *TurnResolver) genre(key string) (world.GenreConfig, bool) {
	if r.world == nil || key == "" {
		return world.GenreConfig{}, false
	}
	return r.world.Genre(key)
}

func (r *TurnResolver) recordFailure(err error) {
	var exhausted *fallback.ExhaustedError
	if errors.As(err, &exhausted) {
		r.metrics.Turn("exhausted")
		r.logger.Warn("All models exhausted", "error", err)
		return
	}
	r.metrics.Turn("failed")
}

// ClassifyTextError skips to the next model on quota, empty or malformed
// output and aborts on anything else.
func ClassifyTextError(err error) fallback.Outcome {
	switch {
	case errors.Is(err, services.ErrRateLimited),
		errors.Is(err, services.ErrEmptyOutput),
		errors.Is(err, turn.ErrMalformedOutput):
		return fallback.Skip
	default:
		return fallback.Fail
	}
}

func outcomeLabel(o fallback.Outcome) string {
	switch o {
	case fallback.Success:
		return metrics.OutcomeSuccess
	case fallback.Skip:
		return metrics.OutcomeSkip
	default:
		return metrics.OutcomeFail
	}
}
