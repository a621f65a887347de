package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/jwebster45206/gem-engine/pkg/turn"
)

// ErrSessionReplaced is returned to a caller whose turn completed after the
// session was restarted or started again. The result is discarded.
var ErrSessionReplaced = errors.New("session was replaced while the turn was in flight")

// API is the subset of the HTTP client the controller needs.
type API interface {
	Turn(ctx context.Context, req *turn.Request) (*turn.Response, error)
	Image(ctx context.Context, prompt, visualSummary, genreKey string) (string, error)
	Audio(ctx context.Context, prompt string) (string, error)
}

// Options toggles background media enrichment.
type Options struct {
	Images bool
	Audio  bool
}

// Controller owns the State for one player and is safe for concurrent use.
// Every change is persisted and published on Updates.
type Controller struct {
	api    API
	store  Store
	opts   Options
	logger *slog.Logger

	mu    sync.Mutex
	state State
	// generation changes on Start and Restart. Turn and media results
	// captured under an older generation are dropped.
	generation uint64
	updates    chan State
	wg         sync.WaitGroup
}

func NewController(api API, store Store, opts Options, logger *slog.Logger) *Controller {
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		api:     api,
		store:   store,
		opts:    opts,
		logger:  logger,
		state:   State{Phase: PhaseStart},
		updates: make(chan State, 16),
	}
}

// Updates delivers state snapshots. Snapshots are dropped when the reader
// falls behind; State always returns the latest.
func (c *Controller) Updates() <-chan State {
	return c.updates
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Wait blocks until background enrichments have finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Start resumes the saved session for worldSetting and genreKey, or begins
// a new one and requests its prologue.
func (c *Controller) Start(ctx context.Context, worldSetting, genreKey string, seed int64) (State, error) {
	saved, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Warn("Failed to load saved session", "error", err)
		saved = nil
	}

	s, resumed := RestoreFromPersistence(saved, worldSetting, genreKey, seed)
	c.mu.Lock()
	c.generation++
	c.commitLocked(ctx, s)
	c.mu.Unlock()

	if resumed && s.HasStarted() {
		c.logger.Info("Resumed saved session", "genre", genreKey, "turn_count", s.TurnCount)
		return s, nil
	}
	return c.runTurn(ctx, "")
}

// SubmitAction plays one turn. Follow-up actions that only change local
// state (restart, leaving the deep dive) never reach the API.
func (c *Controller) SubmitAction(ctx context.Context, action string) (State, error) {
	action = strings.TrimSpace(action)
	current := c.State()

	if current.Phase == PhaseEnding {
		switch action {
		case FollowUpRestart:
			return c.Restart(ctx)
		case FollowUpExitDeepDive:
			return c.ExitDeepDive(ctx), nil
		case FollowUpDeepDive:
			c.EnterDeepDive(ctx)
		}
	}
	return c.runTurn(ctx, action)
}

// Restart discards the saved session and returns to genre selection.
func (c *Controller) Restart(ctx context.Context) (State, error) {
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Warn("Failed to clear saved session", "error", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.state = State{Phase: PhaseGenreSelect}
	c.publishLocked()
	return c.state.Clone(), nil
}

func (c *Controller) EnterDeepDive(ctx context.Context) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commitLocked(ctx, EnterDeepDive(c.state))
	return c.state.Clone()
}

func (c *Controller) ExitDeepDive(ctx context.Context) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commitLocked(ctx, ExitDeepDive(c.state))
	return c.state.Clone()
}

func (c *Controller) runTurn(ctx context.Context, action string) (State, error) {
	c.mu.Lock()
	next, req, err := BeginTurn(c.state, action)
	if err != nil {
		c.mu.Unlock()
		return c.State(), err
	}
	c.state = next
	gen := c.generation
	c.publishLocked()
	c.mu.Unlock()

	resp, err := c.api.Turn(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		c.logger.Info("Discarding turn from a replaced session", "turn_count", req.TurnCount, "error", err)
		return c.state.Clone(), ErrSessionReplaced
	}
	if err != nil {
		c.logger.Error("Turn failed", "error", err, "turn_count", req.TurnCount)
		c.commitLocked(ctx, ApplyTurnError(c.state, err))
		return c.state.Clone(), err
	}

	c.commitLocked(ctx, ApplyTurnResult(c.state, action, resp))
	c.logger.Info("Turn resolved",
		"turn_count", c.state.TurnCount,
		"model", resp.ModelName,
		"backup", resp.IsBackup,
		"ending", resp.IsEnding)
	c.enrichLocked(c.state)
	return c.state.Clone(), nil
}

// enrichLocked starts the illustration and audio fetches for s's current
// response. Each result is dropped if another turn has replaced it.
func (c *Controller) enrichLocked(s State) {
	resp := s.CurrentResponse
	if resp == nil {
		return
	}
	scenario := resp.ScenarioText
	genreKey := s.GenreKey
	gen := c.generation

	if c.opts.Images && (resp.VisualSummary != "" || resp.ImagePrompt != "") {
		prompt, summary := resp.ImagePrompt, resp.VisualSummary
		c.goEnrich("image", gen, scenario, func(ctx context.Context) (Enrichment, error) {
			url, err := c.api.Image(ctx, prompt, summary, genreKey)
			return Enrichment{ImageURL: url}, err
		})
	}
	if c.opts.Audio && resp.AudioPrompt != "" {
		prompt := resp.AudioPrompt
		c.goEnrich("audio", gen, scenario, func(ctx context.Context) (Enrichment, error) {
			url, err := c.api.Audio(ctx, prompt)
			return Enrichment{AudioURL: url}, err
		})
	}
}

func (c *Controller) goEnrich(kind string, gen uint64, scenario string, fetch func(context.Context) (Enrichment, error)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx := context.Background()

		e, err := fetch(ctx)
		if err != nil {
			c.logger.Warn("Media enrichment failed", "kind", kind, "error", err)
			return
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.generation {
			c.logger.Debug("Discarding media from a replaced session", "kind", kind)
			return
		}
		next, ok := ApplyEnrichment(c.state, scenario, e)
		if !ok {
			c.logger.Debug("Discarding stale media", "kind", kind)
			return
		}
		c.commitLocked(ctx, next)
	}()
}

// commitLocked replaces the state, saves it and publishes it.
func (c *Controller) commitLocked(ctx context.Context, s State) {
	c.state = s
	if s.Phase == PhasePlaying || s.Phase == PhaseEnding {
		if err := c.store.Save(ctx, s); err != nil {
			c.logger.Warn("Failed to save session", "error", err)
		}
	}
	c.publishLocked()
}

func (c *Controller) publishLocked() {
	select {
	case c.updates <- c.state.Clone():
	default:
	}
}
