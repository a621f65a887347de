package prompts

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/gem-engine/pkg/chat"
	"github.com/jwebster45206/gem-engine/pkg/turn"
)

// DefaultHistoryLimit is the number of history entries embedded in a prompt.
const DefaultHistoryLimit = 20

// Prompt is a system instruction paired with one user prompt.
type Prompt struct {
	System string
	User   string
}

// Combined folds the system instruction into the user prompt, for models
// that do not accept a separate system instruction.
func (p Prompt) Combined() string {
	return p.System + "\n\n---\n\n" + p.User
}

// Builder composes the prompt for one narrative turn using a fluent interface.
type Builder struct {
	worldSetting string
	genreKey     string
	genreLabel   string
	action       string
	history      []chat.ChatMessage
	seed         int64
	turnCount    int
	historyLimit int
}

// New creates a new prompt builder with default settings.
func New() *Builder {
	return &Builder{
		historyLimit: DefaultHistoryLimit,
	}
}

// FromRequest seeds a builder with every field of a turn request.
func FromRequest(req *turn.Request) *Builder {
	return New().
		WithWorld(req.WorldSetting, req.GenreKey).
		WithAction(req.Action).
		WithHistory(req.History).
		WithSeed(req.Seed).
		WithTurnCount(req.TurnCount)
}

func (b *Builder) WithWorld(worldSetting, genreKey string) *Builder {
	b.worldSetting = worldSetting
	b.genreKey = genreKey
	return b
}

// WithGenreLabel adds the human readable genre name next to its key.
func (b *Builder) WithGenreLabel(label string) *Builder {
	b.genreLabel = label
	return b
}

func (b *Builder) WithAction(action string) *Builder {
	b.action = action
	return b
}

func (b *Builder) WithHistory(history []chat.ChatMessage) *Builder {
	b.history = history
	return b
}

func (b *Builder) WithSeed(seed int64) *Builder {
	b.seed = seed
	return b
}

func (b *Builder) WithTurnCount(n int) *Builder {
	b.turnCount = n
	return b
}

// WithHistoryLimit sets the history window size.
func (b *Builder) WithHistoryLimit(limit int) *Builder {
	b.historyLimit = limit
	return b
}

// IsPrologue reports whether the built prompt will ask for the opening scene.
func (b *Builder) IsPrologue() bool {
	return len(b.history) == 0 && strings.TrimSpace(b.action) == ""
}

// Build renders the turn prompt.
func (b *Builder) Build() (Prompt, error) {
	if strings.TrimSpace(b.worldSetting) == "" {
		return Prompt{}, fmt.Errorf("world setting is required")
	}

	action := NormalizeAction(b.action)
	if action == "" {
		action = turn.DefaultAction
	}

	genre := b.genreKey
	if b.genreLabel != "" {
		genre = fmt.Sprintf("%s (%s)", b.genreKey, b.genreLabel)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "WORLD SETTING: %s\n", b.worldSetting)
	fmt.Fprintf(&sb, "GENRE: %s\n", genre)
	fmt.Fprintf(&sb, "TURN COUNT: %d\n", b.turnCount)
	fmt.Fprintf(&sb, "SEED: %d\n", b.seed)
	sb.WriteString("PREVIOUS HISTORY:\n")
	if transcript := chat.FormatTranscript(chat.Window(b.history, b.historyLimit)); transcript != "" {
		sb.WriteString(transcript)
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "\nPLAYER ACTION: %s\n\n", action)
	if b.IsPrologue() {
		sb.WriteString(prologueInstruction)
	} else {
		sb.WriteString(continuationInstruction)
	}

	return Prompt{System: TurnSystemPrompt, User: sb.String()}, nil
}

// BuildCandidates renders the prompt asking for one setting per genre key.
func BuildCandidates(genreKeys []string) (Prompt, error) {
	if len(genreKeys) == 0 {
		return Prompt{}, fmt.Errorf("at least one genre is required")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "以下の%dつのジャンルについて、それぞれ独自の舞台設定を生成し、JSON配列として出力してください。\n\n対象ジャンル:\n", len(genreKeys))
	for i, key := range genreKeys {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, key)
	}
	sb.WriteString("\n第1ステータス（hp）は0でゲームオーバーになるものとし、第2ステータスはジャンル特有の魅力を引き出すものにしてください。\n")
	sb.WriteString("sampleSettingsには、その舞台の始まりとなる導入文を1件だけ記述してください。\n")

	return Prompt{System: CandidatesSystemPrompt, User: sb.String()}, nil
}
