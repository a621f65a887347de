package prompts

import (
	"fmt"
	"strings"
	"testing"

	"github.com/jwebster45206/gem-engine/pkg/chat"
	"github.com/jwebster45206/gem-engine/pkg/turn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	builder := New()
	require.NotNil(t, builder)
	assert.Equal(t, DefaultHistoryLimit, builder.historyLimit)
}

func TestBuilder_FluentInterface(t *testing.T) {
	history := []chat.ChatMessage{{Role: chat.ChatRoleAgent, Content: "opening"}}
	builder := New().
		WithWorld("霧の森", "fantasy").
		WithGenreLabel("ファンタジー").
		WithAction("北へ").
		WithHistory(history).
		WithSeed(42).
		WithTurnCount(3).
		WithHistoryLimit(10)

	assert.Equal(t, "霧の森", builder.worldSetting)
	assert.Equal(t, "fantasy", builder.genreKey)
	assert.Equal(t, "ファンタジー", builder.genreLabel)
	assert.Equal(t, "北へ", builder.action)
	assert.Equal(t, history, builder.history)
	assert.Equal(t, int64(42), builder.seed)
	assert.Equal(t, 3, builder.turnCount)
	assert.Equal(t, 10, builder.historyLimit)
}

func TestBuilder_Build_RequiresWorldSetting(t *testing.T) {
	_, err := New().WithAction("x").Build()
	assert.Error(t, err)
}

func TestBuilder_PrologueFraming(t *testing.T) {
	history := []chat.ChatMessage{{Role: chat.ChatRoleAgent, Content: "opening"}}

	tests := []struct {
		name         string
		action       string
		history      []chat.ChatMessage
		wantPrologue bool
	}{
		{"empty history and empty action", "", nil, true},
		{"whitespace action counts as empty", "   ", nil, true},
		{"action without history", "look around", nil, false},
		{"history without action", "", history, false},
		{"history and action", "look around", history, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New().WithWorld("霧の森", "fantasy").WithAction(tt.action).WithHistory(tt.history).Build()
			require.NoError(t, err)

			assert.Equal(t, tt.wantPrologue, strings.Contains(p.User, prologueInstruction))
			assert.Equal(t, !tt.wantPrologue, strings.Contains(p.User, continuationInstruction))
			assert.Equal(t, TurnSystemPrompt, p.System)
		})
	}
}

func TestBuilder_Build_Content(t *testing.T) {
	req := &turn.Request{
		WorldSetting: "滅びかけた王国",
		GenreKey:     "fantasy",
		Action:       "扉を開ける",
		History: []chat.ChatMessage{
			{Role: chat.ChatRoleAgent, Content: "城門の前に立っている。"},
			{Role: chat.ChatRoleUser, Content: "門を叩く"},
			{Role: chat.ChatRoleAgent, Content: "門が軋んで開いた。"},
		},
		Seed:      777,
		TurnCount: 2,
	}

	p, err := FromRequest(req).Build()
	require.NoError(t, err)

	assert.Contains(t, p.User, "WORLD SETTING: 滅びかけた王国\n")
	assert.Contains(t, p.User, "GENRE: fantasy\n")
	assert.Contains(t, p.User, "TURN COUNT: 2\n")
	assert.Contains(t, p.User, "SEED: 777\n")
	assert.Contains(t, p.User, "GM: 城門の前に立っている。\nPlayer: 門を叩く\nGM: 門が軋んで開いた。\n")
	assert.Contains(t, p.User, "PLAYER ACTION: 扉を開ける\n")
}

func TestBuilder_Build_DefaultActionAndLabel(t *testing.T) {
	p, err := New().WithWorld("x", "horror").WithGenreLabel("ホラー").Build()
	require.NoError(t, err)
	assert.Contains(t, p.User, "PLAYER ACTION: "+turn.DefaultAction)
	assert.Contains(t, p.User, "GENRE: horror (ホラー)")
}

func TestBuilder_Build_HistoryWindow(t *testing.T) {
	var history []chat.ChatMessage
	for i := 0; i < 30; i++ {
		history = append(history, chat.ChatMessage{Role: chat.ChatRoleUser, Content: fmt.Sprintf("entry-%02d", i)})
	}

	p, err := New().WithWorld("x", "y").WithAction("go").WithHistory(history).WithHistoryLimit(5).Build()
	require.NoError(t, err)

	assert.NotContains(t, p.User, "entry-24")
	assert.Contains(t, p.User, "entry-25")
	assert.Contains(t, p.User, "entry-29")
}

func TestBuilder_Build_NormalizesRepeatedActions(t *testing.T) {
	base := New().WithWorld("x", "y").WithHistory([]chat.ChatMessage{{Role: chat.ChatRoleAgent, Content: "z"}})

	full, err := base.WithAction("ＡＢＣ　の扉を開ける").Build()
	require.NoError(t, err)
	half, err := base.WithAction("ABC の扉を開ける").Build()
	require.NoError(t, err)

	assert.Equal(t, half.User, full.User)
}

func TestPrompt_Combined(t *testing.T) {
	p := Prompt{System: "sys", User: "usr"}
	combined := p.Combined()
	assert.True(t, strings.HasPrefix(combined, "sys"))
	assert.True(t, strings.HasSuffix(combined, "usr"))
}

func TestBuildCandidates(t *testing.T) {
	p, err := BuildCandidates([]string{"fantasy", "horror", "scifi"})
	require.NoError(t, err)

	assert.Equal(t, CandidatesSystemPrompt, p.System)
	assert.Contains(t, p.User, "1. fantasy\n2. horror\n3. scifi\n")

	_, err = BuildCandidates(nil)
	assert.Error(t, err)
}
