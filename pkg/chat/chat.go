package chat

import (
	"fmt"
	"strings"
)

const (
	ChatRoleUser  = "user"      // Player
	ChatRoleAgent = "assistant" // Game master
)

// ChatMessage is one entry of the turn history sent with every request.
// The player's action is stored with ChatRoleUser and the narrative that
// answered it with ChatRoleAgent.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (m ChatMessage) Validate() error {
	switch m.Role {
	case ChatRoleUser, ChatRoleAgent:
	default:
		return fmt.Errorf("invalid role %q", m.Role)
	}
	return nil
}

// SpeakerLabel returns the transcript tag for a role.
func SpeakerLabel(role string) string {
	if role == ChatRoleUser {
		return "Player"
	}
	return "GM"
}

// FormatTranscript renders history as one "Speaker: content" line per entry,
// oldest first.
func FormatTranscript(history []ChatMessage) string {
	lines := make([]string, 0, len(history))
	for _, msg := range history {
		lines = append(lines, SpeakerLabel(msg.Role)+": "+msg.Content)
	}
	return strings.Join(lines, "\n")
}

// Window returns at most the last limit messages. A limit of zero or less
// returns the full history.
func Window(history []ChatMessage, limit int) []ChatMessage {
	if limit <= 0 || len(history) <= limit {
		return history
	}
	return history[len(history)-limit:]
}

// Clone copies history so callers can append without aliasing.
func Clone(history []ChatMessage) []ChatMessage {
	if history == nil {
		return nil
	}
	out := make([]ChatMessage, len(history))
	copy(out, history)
	return out
}
