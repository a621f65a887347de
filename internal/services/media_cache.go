package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/gem-engine/internal/metrics"
)

// CachedGenerator memoizes a MediaGenerator in a Cache. Entries are data
// URLs keyed by kind and a name-based UUID of backend and prompt.
type CachedGenerator struct {
	next    MediaGenerator
	cache   Cache
	kind    string
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
}

var _ MediaGenerator = (*CachedGenerator)(nil)

// NewCachedGenerator wraps next. kind is "image" or "audio".
func NewCachedGenerator(next MediaGenerator, cache Cache, kind string, ttl time.Duration, m *metrics.Metrics, logger *slog.Logger) *CachedGenerator {
	return &CachedGenerator{
		next:    next,
		cache:   cache,
		kind:    kind,
		ttl:     ttl,
		metrics: m,
		logger:  logger,
	}
}

func (g *CachedGenerator) Name() string { return g.next.Name() }

// CacheKey returns the cache key for prompt.
func (g *CachedGenerator) CacheKey(prompt string) string {
	return g.kind + ":" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(g.next.Name()+"\n"+prompt)).String()
}

// Generate serves a cached clip when present. Cache failures are logged and
// never fail the request.
func (g *CachedGenerator) Generate(ctx context.Context, prompt string) (*Media, error) {
	key := g.CacheKey(prompt)

	cached, err := g.cache.Get(ctx, key)
	if err != nil {
		g.logger.Warn("Media cache read failed", "kind", g.kind, "error", err)
	}
	if cached != "" {
		media, err := ParseDataURL(cached)
		if err == nil {
			g.metrics.CacheLookup(g.kind, true)
			g.logger.Debug("Media cache hit", "kind", g.kind, "key", key)
			return media, nil
		}
		g.logger.Warn("Discarding corrupt media cache entry", "key", key, "error", err)
		if err := g.cache.Del(ctx, key); err != nil {
			g.logger.Warn("Media cache delete failed", "key", key, "error", err)
		}
	}
	g.metrics.CacheLookup(g.kind, false)

	media, err := g.next.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	if err := g.cache.Set(ctx, key, media.DataURL(), g.ttl); err != nil {
		g.logger.Warn("Media cache write failed", "kind", g.kind, "error", err)
	}
	return media, nil
}
