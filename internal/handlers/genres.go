package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/gem-engine/pkg/world"
)

// GenresHandler serves GET /v1/genres with the loaded world configuration.
type GenresHandler struct {
	world  *world.WorldConfig
	logger *slog.Logger
}

func NewGenresHandler(cfg *world.WorldConfig, logger *slog.Logger) *GenresHandler {
	return &GenresHandler{world: cfg, logger: logger}
}

func (h *GenresHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, h.logger, http.MethodGet) {
		return
	}
	writeJSON(w, h.logger, http.StatusOK, h.world)
}
