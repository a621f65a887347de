// Package turn defines the request and response shapes of a single narrative
// turn and the permissive parsing applied to model output.
package turn

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jwebster45206/gem-engine/pkg/chat"
)

// ChoiceCount is the number of choices every turn offers.
const ChoiceCount = 4

// FallbackChoices replace the model's choices when it returns the wrong number.
var FallbackChoices = [ChoiceCount]string{
	"周囲をよく観察する",
	"慎重に先へ進む",
	"持ち物を確認する",
	"しばらく様子を見る",
}

// DefaultAction is sent to the model in place of an empty action.
const DefaultAction = "ゲームスタート"

var (
	ErrMissingWorldSetting = errors.New("worldSetting is required")
	ErrMissingAction       = errors.New("action is required once the story has started")
)

// Request is the body of a turn call.
type Request struct {
	WorldSetting string             `json:"worldSetting"`
	GenreKey     string             `json:"genreKey"`
	Action       string             `json:"action"`
	History      []chat.ChatMessage `json:"history"`
	Seed         int64              `json:"seed"`
	TurnCount    int                `json:"turnCount"`
}

// IsPrologue reports whether the request asks for the opening scene.
func (r *Request) IsPrologue() bool {
	return len(r.History) == 0 && strings.TrimSpace(r.Action) == ""
}

func (r *Request) Validate() error {
	if strings.TrimSpace(r.WorldSetting) == "" {
		return ErrMissingWorldSetting
	}
	if len(r.History) > 0 && strings.TrimSpace(r.Action) == "" {
		return ErrMissingAction
	}
	for i, msg := range r.History {
		if err := msg.Validate(); err != nil {
			return fmt.Errorf("history[%d]: %w", i, err)
		}
	}
	return nil
}

// Response is one generated narrative update.
type Response struct {
	ScenarioText  string   `json:"scenario_text"`
	Status        Status   `json:"status"`
	Choices       []string `json:"choices"`
	IsQuestion    bool     `json:"is_question"`
	IsEnding      bool     `json:"is_ending,omitempty"`
	VisualSummary string   `json:"visualSummary,omitempty"`
	ImagePrompt   string   `json:"imagePrompt,omitempty"`
	ImageURL      string   `json:"imageUrl,omitempty"`
	AudioPrompt   string   `json:"audio_prompt,omitempty"`
	AudioURL      string   `json:"audioUrl,omitempty"`
	ModelName     string   `json:"modelName,omitempty"`
	IsBackup      bool     `json:"isBackup,omitempty"`
}

// UnmarshalJSON accepts image_prompt as an alias of imagePrompt.
func (r *Response) UnmarshalJSON(data []byte) error {
	type plain Response
	aux := struct {
		*plain
		ImagePromptAlias string `json:"image_prompt"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if r.ImagePrompt == "" {
		r.ImagePrompt = aux.ImagePromptAlias
	}
	return nil
}

// Clone returns a deep copy.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	out := *r
	out.Choices = append([]string(nil), r.Choices...)
	out.Status = r.Status.Clone()
	return &out
}

// NormalizeChoices enforces exactly ChoiceCount choices, substituting
// FallbackChoices when the model returned a different number or blanks.
// It reports whether the fallback was used.
func (r *Response) NormalizeChoices() bool {
	if len(r.Choices) == ChoiceCount {
		ok := true
		for _, c := range r.Choices {
			if strings.TrimSpace(c) == "" {
				ok = false
				break
			}
		}
		if ok {
			return false
		}
	}
	r.Choices = append([]string(nil), FallbackChoices[:]...)
	return true
}

// Status is the player status panel. Keys other than hp, inventory and
// situation are genre specific and kept verbatim in Extra.
type Status struct {
	HP        int                        `json:"hp"`
	Inventory []string                   `json:"inventory"`
	Situation string                     `json:"situation"`
	Extra     map[string]json.RawMessage `json:"-"`
}

func (s Status) Clone() Status {
	out := s
	out.Inventory = append([]string(nil), s.Inventory...)
	if s.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(s.Extra))
		for k, v := range s.Extra {
			out.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}

// Stat returns a genre-specific numeric stat, or hp for the key "hp".
func (s Status) Stat(key string) (float64, bool) {
	if key == "hp" {
		return float64(s.HP), true
	}
	raw, ok := s.Extra[key]
	if !ok {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	return v, true
}

func (s Status) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Extra)+3)
	for k, v := range s.Extra {
		out[k] = v
	}
	out["hp"] = s.HP
	inventory := s.Inventory
	if inventory == nil {
		inventory = []string{}
	}
	out["inventory"] = inventory
	out["situation"] = s.Situation
	return json.Marshal(out)
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*s = Status{}
	for k, v := range fields {
		switch k {
		case "hp":
			// Models sometimes answer with a float or a quoted number.
			var f float64
			if err := json.Unmarshal(v, &f); err != nil {
				var str string
				if json.Unmarshal(v, &str) != nil {
					return fmt.Errorf("status.hp: %w", err)
				}
				if _, scanErr := fmt.Sscan(str, &f); scanErr != nil {
					return fmt.Errorf("status.hp: %w", scanErr)
				}
			}
			s.HP = int(f)
		case "inventory":
			if err := json.Unmarshal(v, &s.Inventory); err != nil {
				return fmt.Errorf("status.inventory: %w", err)
			}
		case "situation":
			if err := json.Unmarshal(v, &s.Situation); err != nil {
				return fmt.Errorf("status.situation: %w", err)
			}
		default:
			if s.Extra == nil {
				s.Extra = make(map[string]json.RawMessage)
			}
			s.Extra[k] = v
		}
	}
	return nil
}
