package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/gem-engine/internal/resolver"
	"github.com/jwebster45206/gem-engine/pkg/world"
)

// CandidateGenerator is satisfied by *resolver.CandidateGenerator.
type CandidateGenerator interface {
	Generate(ctx context.Context, genreKeys []string) ([]world.Candidate, error)
}

// CandidatesRequest is the body of POST /v1/candidates.
type CandidatesRequest struct {
	SelectedGenres []string `json:"selectedGenres"`
}

// CandidatesHandler serves POST /v1/candidates.
type CandidatesHandler struct {
	generator CandidateGenerator
	logger    *slog.Logger
}

func NewCandidatesHandler(g CandidateGenerator, logger *slog.Logger) *CandidatesHandler {
	return &CandidatesHandler{
		generator: g,
		logger:    logger,
	}
}

func (h *CandidatesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, h.logger, http.MethodPost) {
		return
	}

	var req CandidatesRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	candidates, err := h.generator.Generate(r.Context(), req.SelectedGenres)
	if err != nil {
		status := resolver.HTTPStatus(err)
		h.logger.Warn("Candidate generation failed", "error", err, "status", status, "genres", req.SelectedGenres)
		writeError(w, h.logger, status, err.Error())
		return
	}

	writeJSON(w, h.logger, http.StatusOK, candidates)
}
