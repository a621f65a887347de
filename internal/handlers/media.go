package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jwebster45206/gem-engine/internal/config"
	"github.com/jwebster45206/gem-engine/internal/metrics"
	"github.com/jwebster45206/gem-engine/internal/services"
	"github.com/jwebster45206/gem-engine/pkg/prompts"
	"github.com/jwebster45206/gem-engine/pkg/world"
)

// ImageRequest is the body of POST /v1/image. Either field selects the
// subject; visualSummary wins and is drawn as a kamishibai scene.
type ImageRequest struct {
	Prompt        string `json:"prompt"`
	VisualSummary string `json:"visualSummary"`
	GenreKey      string `json:"genreKey"`
}

type ImageResponse struct {
	ImageURL string `json:"imageUrl"`
}

// ImageHandler serves POST /v1/image.
type ImageHandler struct {
	generator services.MediaGenerator
	world     *world.WorldConfig
	raw       bool
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewImageHandler answers with raw image bytes when responseMode is
// config.ImageResponseRaw and with a JSON data URL otherwise.
func NewImageHandler(g services.MediaGenerator, cfg *world.WorldConfig, responseMode string, m *metrics.Metrics, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{
		generator: g,
		world:     cfg,
		raw:       responseMode == config.ImageResponseRaw,
		metrics:   m,
		logger:    logger,
	}
}

func (h *ImageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, h.logger, http.MethodPost) {
		return
	}

	var req ImageRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	var suffix, style string
	if h.world != nil {
		style = h.world.GlobalImageStyle
		if genre, ok := h.world.Genre(req.GenreKey); ok {
			suffix = genre.ImageStyleSuffix
		}
	}
	prompt := prompts.ImagePrompt(req.Prompt, req.VisualSummary, suffix, style)
	if prompt == "" {
		writeError(w, h.logger, http.StatusBadRequest, "Prompt is required")
		return
	}

	media, err := h.generator.Generate(r.Context(), prompt)
	h.metrics.Media("image", h.generator.Name(), err == nil)
	if err != nil {
		status := mediaStatus(err)
		h.logger.Error("Image generation failed", "error", err, "backend", h.generator.Name(), "status", status)
		writeError(w, h.logger, status, err.Error())
		return
	}

	h.logger.Info("Image generated", "backend", h.generator.Name(), "bytes", len(media.Data))

	if h.raw {
		w.Header().Set("Content-Type", media.MIMEType)
		w.Header().Set("Content-Length", strconv.Itoa(len(media.Data)))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(media.Data); err != nil {
			h.logger.Error("Error writing image", "error", err)
		}
		return
	}
	writeJSON(w, h.logger, http.StatusOK, ImageResponse{ImageURL: media.DataURL()})
}

type AudioRequest struct {
	Prompt string `json:"prompt"`
}

type AudioResponse struct {
	AudioURL string `json:"audioUrl"`
}

// AudioHandler serves POST /v1/audio.
type AudioHandler struct {
	generator services.MediaGenerator
	suffix    string
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewAudioHandler(g services.MediaGenerator, cfg *world.WorldConfig, m *metrics.Metrics, logger *slog.Logger) *AudioHandler {
	h := &AudioHandler{
		generator: g,
		metrics:   m,
		logger:    logger,
	}
	if cfg != nil {
		h.suffix = cfg.AudioPromptSuffix
	}
	return h
}

func (h *AudioHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, h.logger, http.MethodPost) {
		return
	}

	var req AudioRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	prompt := prompts.AudioPrompt(req.Prompt, h.suffix)
	if prompt == "" {
		writeError(w, h.logger, http.StatusBadRequest, "Prompt is required")
		return
	}

	media, err := h.generator.Generate(r.Context(), prompt)
	h.metrics.Media("audio", h.generator.Name(), err == nil)
	if err != nil {
		status := mediaStatus(err)
		h.logger.Error("Audio generation failed", "error", err, "backend", h.generator.Name(), "status", status)
		writeError(w, h.logger, status, err.Error())
		return
	}

	writeJSON(w, h.logger, http.StatusOK, AudioResponse{AudioURL: media.DataURL()})
}
