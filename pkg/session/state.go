// Package session holds the player's game state and the pure transitions
// that move it from turn to turn.
package session

import (
	"errors"
	"strings"

	"github.com/jwebster45206/gem-engine/pkg/chat"
	"github.com/jwebster45206/gem-engine/pkg/prompts"
	"github.com/jwebster45206/gem-engine/pkg/turn"
)

type Phase string

const (
	PhaseStart       Phase = "start"
	PhaseGenreSelect Phase = "genre_select"
	PhasePlaying     Phase = "playing"
	PhaseEnding      Phase = "ending"
)

// HistoryLimit bounds the history sent with each turn request.
const HistoryLimit = prompts.DefaultHistoryLimit

var (
	ErrTurnInFlight = errors.New("a turn is already in progress")
	ErrEmptyAction  = errors.New("action must not be empty after the prologue")
)

// State is one game session. Transitions never mutate their input; they
// return a new State that shares nothing mutable with the old one.
type State struct {
	Phase           Phase              `json:"phase"`
	WorldSetting    string             `json:"worldSetting"`
	GenreKey        string             `json:"genreKey"`
	History         []chat.ChatMessage `json:"history"`
	CurrentResponse *turn.Response     `json:"currentResponse,omitempty"`
	Seed            int64              `json:"seed"`
	TurnCount       int                `json:"turnCount"`
	IsDeepDiveMode  bool               `json:"isDeepDiveMode"`

	// Transient; never persisted.
	IsLoading bool   `json:"-"`
	Error     string `json:"-"`
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	out.History = chat.Clone(s.History)
	out.CurrentResponse = s.CurrentResponse.Clone()
	return out
}

// HasStarted reports whether the prologue has been received.
func (s State) HasStarted() bool {
	return s.CurrentResponse != nil || len(s.History) > 0
}

// NewState returns a fresh session ready for its prologue.
func NewState(worldSetting, genreKey string, seed int64) State {
	return State{
		Phase:        PhasePlaying,
		WorldSetting: worldSetting,
		GenreKey:     genreKey,
		History:      []chat.ChatMessage{},
		Seed:         seed,
	}
}

// RestoreFromPersistence resumes saved when it belongs to the same world
// setting and genre, and starts over otherwise. Transient fields are
// cleared either way.
func RestoreFromPersistence(saved *State, worldSetting, genreKey string, seed int64) (State, bool) {
	if saved == nil || saved.WorldSetting != worldSetting || saved.GenreKey != genreKey {
		return NewState(worldSetting, genreKey, seed), false
	}
	out := saved.Clone()
	out.IsLoading = false
	out.Error = ""
	if out.History == nil {
		out.History = []chat.ChatMessage{}
	}
	if out.Phase != PhaseEnding {
		out.Phase = PhasePlaying
	}
	return out, true
}

// BeginTurn marks s as loading and returns the request for action. An empty
// action is only accepted before the prologue has been received.
func BeginTurn(s State, action string) (State, *turn.Request, error) {
	if s.IsLoading {
		return s, nil, ErrTurnInFlight
	}
	action = strings.TrimSpace(action)
	if action == "" && s.HasStarted() {
		return s, nil, ErrEmptyAction
	}

	turnCount := s.TurnCount
	if action != "" {
		turnCount++
	}

	req := &turn.Request{
		WorldSetting: s.WorldSetting,
		GenreKey:     s.GenreKey,
		Action:       action,
		History:      chat.Window(chat.Clone(s.History), HistoryLimit),
		Seed:         s.Seed,
		TurnCount:    turnCount,
	}

	out := s.Clone()
	out.IsLoading = true
	out.Error = ""
	return out, req, nil
}

// ApplyTurnResult records a successful turn.
func ApplyTurnResult(s State, action string, resp *turn.Response) State {
	out := s.Clone()
	action = strings.TrimSpace(action)

	next := resp.Clone()
	next.NormalizeChoices()

	if action != "" {
		out.History = append(out.History, chat.ChatMessage{Role: chat.ChatRoleUser, Content: action})
		out.TurnCount++
	}
	out.History = append(out.History, chat.ChatMessage{Role: chat.ChatRoleAgent, Content: next.ScenarioText})
	out.CurrentResponse = next
	out.IsLoading = false
	out.Error = ""
	if next.IsEnding {
		out.Phase = PhaseEnding
	}
	return out
}

// ApplyTurnError keeps the previous response and surfaces err to the player.
func ApplyTurnError(s State, err error) State {
	out := s.Clone()
	out.IsLoading = false
	if err != nil {
		out.Error = err.Error()
	}
	return out
}

// Enrichment is a background media result. Empty fields are left alone.
type Enrichment struct {
	ImageURL string
	AudioURL string
}

// ApplyEnrichment patches the current response only while it is still the
// one the media was generated for. It reports whether s changed.
func ApplyEnrichment(s State, scenarioText string, e Enrichment) (State, bool) {
	if s.CurrentResponse == nil || s.CurrentResponse.ScenarioText != scenarioText {
		return s, false
	}
	out := s.Clone()
	if e.ImageURL != "" {
		out.CurrentResponse.ImageURL = e.ImageURL
	}
	if e.AudioURL != "" {
		out.CurrentResponse.AudioURL = e.AudioURL
	}
	return out, true
}

func EnterDeepDive(s State) State {
	out := s.Clone()
	out.IsDeepDiveMode = true
	return out
}

func ExitDeepDive(s State) State {
	out := s.Clone()
	out.IsDeepDiveMode = false
	return out
}

// Follow-up actions offered once the story has ended.
const (
	FollowUpDeepDive     = "裏話を聞く"
	FollowUpRestart      = "最初から遊ぶ"
	FollowUpWorld        = "舞台設定の裏話を聞く"
	FollowUpOtherChoices = "他の選択肢の結果を聞く"
	FollowUpUnusedIdeas  = "逆提案（没設定）を聞く"
	FollowUpBackToMenu   = "裏話メニューに戻る"
	FollowUpExitDeepDive = "裏話を終える"
)

var (
	endingFollowUps   = []string{FollowUpDeepDive, FollowUpRestart}
	deepDiveFollowUps = []string{FollowUpWorld, FollowUpOtherChoices, FollowUpUnusedIdeas, FollowUpBackToMenu, FollowUpExitDeepDive}
)

// FollowUps returns the canned actions for an ended story, or nil while the
// story is still running.
func FollowUps(s State) []string {
	if s.Phase != PhaseEnding {
		return nil
	}
	if s.IsDeepDiveMode {
		return append([]string(nil), deepDiveFollowUps...)
	}
	return append([]string(nil), endingFollowUps...)
}

// Choices returns the actions offered for the current response: follow-ups
// after an ending, the response's four choices otherwise.
func Choices(s State) []string {
	if f := FollowUps(s); f != nil {
		return f
	}
	if s.CurrentResponse == nil {
		return nil
	}
	return append([]string(nil), s.CurrentResponse.Choices...)
}
