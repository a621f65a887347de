package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jwebster45206/gem-engine/internal/metrics"
	"github.com/jwebster45206/gem-engine/internal/services"
	"github.com/jwebster45206/gem-engine/pkg/prompts"
	"github.com/jwebster45206/gem-engine/pkg/turn"
	"github.com/jwebster45206/gem-engine/pkg/world"
)

// ErrGenreCount is returned when a candidate request does not name exactly
// world.CandidateCount genres.
var ErrGenreCount = fmt.Errorf("%w: exactly %d genres are required", ErrInvalidRequest, world.CandidateCount)

// CandidateGenerator asks a single model for one world setting per genre.
type CandidateGenerator struct {
	model   services.TextModel
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewCandidateGenerator(model services.TextModel, m *metrics.Metrics, logger *slog.Logger) *CandidateGenerator {
	return &CandidateGenerator{model: model, metrics: m, logger: logger}
}

// Generate returns one candidate per genre key. The model is not retried;
// unparseable output is reported as turn.ErrMalformedOutput.
func (g *CandidateGenerator) Generate(ctx context.Context, genreKeys []string) ([]world.Candidate, error) {
	if len(genreKeys) != world.CandidateCount {
		return nil, ErrGenreCount
	}
	for _, key := range genreKeys {
		if strings.TrimSpace(key) == "" {
			return nil, ErrGenreCount
		}
	}

	prompt, err := prompts.BuildCandidates(genreKeys)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	text, err := g.model.Generate(ctx, prompt, services.GenerateOptions{
		Temperature: services.DefaultCandidateTemperature,
		JSON:        true,
	})
	if err != nil {
		g.metrics.ObserveModel(g.model.Name(), outcomeLabel(ClassifyTextError(err)), time.Since(start))
		return nil, err
	}

	candidates, err := parseCandidates(text, genreKeys)
	if err != nil {
		g.metrics.ObserveModel(g.model.Name(), metrics.OutcomeFail, time.Since(start))
		g.logger.Error("Failed to parse candidates", "model", g.model.Name(), "error", err)
		return nil, err
	}
	g.metrics.ObserveModel(g.model.Name(), metrics.OutcomeSuccess, time.Since(start))

	g.logger.Info("Candidates generated", "model", g.model.Name(), "count", len(candidates))
	return candidates, nil
}

// parseCandidates decodes exactly one candidate per requested genre key.
func parseCandidates(text string, genreKeys []string) ([]world.Candidate, error) {
	payload := turn.ExtractJSONArray(text)
	if payload == "" {
		return nil, fmt.Errorf("%w: empty output", turn.ErrMalformedOutput)
	}

	var candidates []world.Candidate
	if err := json.Unmarshal([]byte(payload), &candidates); err != nil {
		return nil, fmt.Errorf("%w: %v", turn.ErrMalformedOutput, err)
	}
	if len(candidates) != len(genreKeys) {
		return nil, fmt.Errorf("%w: expected %d candidates, got %d", turn.ErrMalformedOutput, len(genreKeys), len(candidates))
	}

	requested := make(map[string]bool, len(genreKeys))
	for _, key := range genreKeys {
		requested[strings.TrimSpace(key)] = true
	}
	seen := make(map[string]bool, len(candidates))

	var errs []error
	for i := range candidates {
		candidates[i].Normalize()
		if err := candidates[i].Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		key := candidates[i].GenreKey
		switch {
		case !requested[key]:
			errs = append(errs, fmt.Errorf("candidate %q was not requested", key))
		case seen[key]:
			errs = append(errs, fmt.Errorf("duplicate candidate %q", key))
		}
		seen[key] = true
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("%w: %v", turn.ErrMalformedOutput, err)
	}
	return candidates, nil
}
