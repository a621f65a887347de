package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/gem-engine/internal/metrics"
	"github.com/jwebster45206/gem-engine/internal/middleware"
	"github.com/jwebster45206/gem-engine/internal/services"
	"github.com/jwebster45206/gem-engine/pkg/world"
)

// Deps are the collaborators the API needs. RateLimiter and Metrics are
// optional.
type Deps struct {
	Turn          TurnResolver
	Candidates    CandidateGenerator
	Image         services.MediaGenerator
	Audio         services.MediaGenerator
	World         *world.WorldConfig
	ImageResponse string
	HealthChecks  map[string]services.Pinger
	Models        []string
	RateLimiter   *middleware.RateLimiter
	CORSOrigins   []string
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
}

// NewRouter wires every endpoint and wraps the mux in CORS and request
// logging.
func NewRouter(d Deps) http.Handler {
	limit := func(h http.Handler) http.Handler {
		if d.RateLimiter == nil {
			return h
		}
		return d.RateLimiter.Limit(h)
	}

	mux := http.NewServeMux()

	mux.Handle("/health", NewHealthHandler(d.HealthChecks, d.Models, d.Logger))
	mux.Handle("/metrics", d.Metrics.Handler())
	mux.Handle("/v1/genres", NewGenresHandler(d.World, d.Logger))

	mux.Handle("/v1/turn", limit(NewTurnHandler(d.Turn, d.Logger)))
	mux.Handle("/v1/candidates", limit(NewCandidatesHandler(d.Candidates, d.Logger)))
	mux.Handle("/v1/image", limit(NewImageHandler(d.Image, d.World, d.ImageResponse, d.Metrics, d.Logger)))
	mux.Handle("/v1/audio", limit(NewAudioHandler(d.Audio, d.World, d.Metrics, d.Logger)))

	return middleware.Logger(d.Metrics, middleware.CORS(d.CORSOrigins, mux))
}
