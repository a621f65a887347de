package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/gem-engine/internal/resolver"
	"github.com/jwebster45206/gem-engine/pkg/turn"
)

// TurnResolver is satisfied by *resolver.TurnResolver.
type TurnResolver interface {
	Resolve(ctx context.Context, req *turn.Request) (*turn.Response, error)
}

// TurnHandler serves POST /v1/turn.
type TurnHandler struct {
	resolver TurnResolver
	logger   *slog.Logger
}

func NewTurnHandler(r TurnResolver, logger *slog.Logger) *TurnHandler {
	return &TurnHandler{
		resolver: r,
		logger:   logger,
	}
}

func (h *TurnHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, h.logger, http.MethodPost) {
		return
	}

	var req turn.Request
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	h.logger.Info("Turn requested",
		"genre", req.GenreKey,
		"turn_count", req.TurnCount,
		"history_len", len(req.History),
		"prologue", req.IsPrologue())

	resp, err := h.resolver.Resolve(r.Context(), &req)
	if err != nil {
		status := resolver.HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("Turn failed", "error", err, "status", status)
		} else {
			h.logger.Warn("Turn rejected", "error", err, "status", status)
		}
		writeError(w, h.logger, status, err.Error())
		return
	}

	writeJSON(w, h.logger, http.StatusOK, resp)
}
