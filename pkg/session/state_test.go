package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/gem-engine/pkg/chat"
	"github.com/jwebster45206/gem-engine/pkg/turn"
)

func response(text string, choices ...string) *turn.Response {
	return &turn.Response{
		ScenarioText: text,
		Status:       turn.Status{HP: 100},
		Choices:      choices,
	}
}

func fourChoices() []string {
	return []string{"北へ", "南へ", "東へ", "西へ"}
}

func TestBeginTurn(t *testing.T) {
	t.Run("prologue accepts empty action", func(t *testing.T) {
		s := NewState("霧の港町", "mystery", 7)
		next, req, err := BeginTurn(s, "")
		require.NoError(t, err)
		assert.True(t, next.IsLoading)
		assert.False(t, s.IsLoading, "input must not be mutated")
		assert.True(t, req.IsPrologue())
		assert.Equal(t, 0, req.TurnCount)
		assert.Equal(t, int64(7), req.Seed)
	})

	t.Run("empty action after prologue", func(t *testing.T) {
		s := ApplyTurnResult(NewState("w", "g", 1), "", response("始まり", fourChoices()...))
		_, _, err := BeginTurn(s, "   ")
		assert.ErrorIs(t, err, ErrEmptyAction)
	})

	t.Run("turn in flight", func(t *testing.T) {
		s, _, err := BeginTurn(NewState("w", "g", 1), "")
		require.NoError(t, err)
		_, _, err = BeginTurn(s, "進む")
		assert.ErrorIs(t, err, ErrTurnInFlight)
	})

	t.Run("action increments requested turn count", func(t *testing.T) {
		s := ApplyTurnResult(NewState("w", "g", 1), "", response("始まり", fourChoices()...))
		_, req, err := BeginTurn(s, " 扉を開ける ")
		require.NoError(t, err)
		assert.Equal(t, "扉を開ける", req.Action)
		assert.Equal(t, 1, req.TurnCount)
		assert.Len(t, req.History, 1)
	})

	t.Run("history is windowed", func(t *testing.T) {
		s := NewState("w", "g", 1)
		for i := 0; i < HistoryLimit+6; i++ {
			s.History = append(s.History, chat.ChatMessage{Role: chat.ChatRoleAgent, Content: fmt.Sprint(i)})
		}
		_, req, err := BeginTurn(s, "a")
		require.NoError(t, err)
		require.Len(t, req.History, HistoryLimit)
		assert.Equal(t, fmt.Sprint(HistoryLimit+5), req.History[HistoryLimit-1].Content)
	})
}

func TestApplyTurnResult(t *testing.T) {
	s := NewState("w", "g", 1)
	s = ApplyTurnResult(s, "", response("プロローグ", fourChoices()...))
	assert.Equal(t, 0, s.TurnCount)
	require.Len(t, s.History, 1)
	assert.Equal(t, chat.ChatRoleAgent, s.History[0].Role)

	s.IsLoading = true
	s.Error = "old"
	before := s
	s = ApplyTurnResult(s, "叫ぶ", response("返事はない", "only one"))
	assert.Equal(t, 1, s.TurnCount)
	assert.False(t, s.IsLoading)
	assert.Empty(t, s.Error)
	require.Len(t, s.History, 3)
	assert.Equal(t, chat.ChatMessage{Role: chat.ChatRoleUser, Content: "叫ぶ"}, s.History[1])
	assert.Equal(t, "返事はない", s.History[2].Content)
	assert.Equal(t, turn.FallbackChoices[:], s.CurrentResponse.Choices)
	assert.Len(t, before.History, 1, "previous state keeps its history")
	assert.Equal(t, PhasePlaying, s.Phase)

	end := response("幕が下りる", fourChoices()...)
	end.IsEnding = true
	s = ApplyTurnResult(s, "眠る", end)
	assert.Equal(t, PhaseEnding, s.Phase)
	assert.Equal(t, []string{FollowUpDeepDive, FollowUpRestart}, Choices(s))
}

func TestApplyTurnError(t *testing.T) {
	s := ApplyTurnResult(NewState("w", "g", 1), "", response("前の場面", fourChoices()...))
	s, _, err := BeginTurn(s, "走る")
	require.NoError(t, err)

	s = ApplyTurnError(s, errors.New("API returned status 429: all 3 backends exhausted"))
	assert.False(t, s.IsLoading)
	assert.Contains(t, s.Error, "429")
	assert.Equal(t, "前の場面", s.CurrentResponse.ScenarioText)
	assert.Equal(t, 0, s.TurnCount)
}

func TestApplyEnrichment_StaleResultIgnored(t *testing.T) {
	s := ApplyTurnResult(NewState("w", "g", 1), "", response("場面A", fourChoices()...))
	s = ApplyTurnResult(s, "進む", response("場面B", fourChoices()...))

	same, ok := ApplyEnrichment(s, "場面A", Enrichment{ImageURL: "data:image/png;base64,AA=="})
	assert.False(t, ok)
	assert.Empty(t, same.CurrentResponse.ImageURL)

	next, ok := ApplyEnrichment(s, "場面B", Enrichment{AudioURL: "data:audio/mpeg;base64,AA=="})
	require.True(t, ok)
	assert.Equal(t, "data:audio/mpeg;base64,AA==", next.CurrentResponse.AudioURL)
	assert.Empty(t, s.CurrentResponse.AudioURL, "input must not be mutated")

	_, ok = ApplyEnrichment(NewState("w", "g", 1), "", Enrichment{ImageURL: "x"})
	assert.False(t, ok)
}

func TestFollowUps(t *testing.T) {
	s := ApplyTurnResult(NewState("w", "g", 1), "", response("p", fourChoices()...))
	assert.Nil(t, FollowUps(s))
	assert.Equal(t, fourChoices(), Choices(s))

	s.Phase = PhaseEnding
	assert.Equal(t, []string{FollowUpDeepDive, FollowUpRestart}, FollowUps(s))

	s = EnterDeepDive(s)
	assert.Contains(t, FollowUps(s), FollowUpBackToMenu)
	assert.Contains(t, FollowUps(s), FollowUpExitDeepDive)

	s = ExitDeepDive(s)
	assert.False(t, s.IsDeepDiveMode)
}

func TestRestoreFromPersistence(t *testing.T) {
	saved := ApplyTurnResult(NewState("港町", "mystery", 3), "", response("霧", fourChoices()...))
	saved.IsLoading = true
	saved.Error = "boom"

	tests := []struct {
		name        string
		saved       *State
		world       string
		genre       string
		wantResumed bool
	}{
		{"nothing saved", nil, "港町", "mystery", false},
		{"same world", &saved, "港町", "mystery", true},
		{"different world", &saved, "砂漠", "mystery", false},
		{"different genre", &saved, "港町", "horror", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, resumed := RestoreFromPersistence(tt.saved, tt.world, tt.genre, 42)
			assert.Equal(t, tt.wantResumed, resumed)
			assert.False(t, got.IsLoading)
			assert.Empty(t, got.Error)
			assert.Equal(t, tt.world, got.WorldSetting)
			if tt.wantResumed {
				assert.Equal(t, int64(3), got.Seed)
				assert.Equal(t, "霧", got.CurrentResponse.ScenarioText)
			} else {
				assert.Equal(t, int64(42), got.Seed)
				assert.Nil(t, got.CurrentResponse)
				assert.Empty(t, got.History)
			}
		})
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", DefaultStateFile)
	store := NewFileStore(path)

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	s := ApplyTurnResult(NewState("港町", "mystery", 9), "", response("霧", fourChoices()...))
	s = ApplyTurnResult(s, "歩く", response("石畳", fourChoices()...))
	s.CurrentResponse.Status.Inventory = []string{"ランタン"}
	s.IsLoading = true
	s.Error = "transient"
	require.NoError(t, store.Save(ctx, s))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.False(t, loaded.IsLoading)
	assert.Empty(t, loaded.Error)

	resumed, ok := RestoreFromPersistence(loaded, "港町", "mystery", 0)
	require.True(t, ok)
	assert.Equal(t, s.History, resumed.History)
	assert.Equal(t, s.TurnCount, resumed.TurnCount)
	assert.Equal(t, s.Seed, resumed.Seed)
	assert.Equal(t, []string{"ランタン"}, resumed.CurrentResponse.Status.Inventory)

	require.NoError(t, store.Clear(ctx))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	require.NoError(t, store.Clear(ctx))
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultStateFile)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path).Load(context.Background())
	assert.Error(t, err)
}
