package domain

import (
	"strings"
	"time"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is the provider-agnostic chat message shape used by the
// usecases and LLM integrations.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatTurn is one message in a user's chat history as kept by the client.
type ChatTurn struct {
	ID        string    `json:"id,omitempty"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Replayable reports whether the turn can be forwarded to the model as context.
func (t ChatTurn) Replayable() bool {
	if t.Role != RoleUser && t.Role != RoleAssistant {
		return false
	}
	return strings.TrimSpace(t.Content) != ""
}

// CompletionRequest describes one call to a chat-completion model.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	Temperature float64
	MaxTokens   int
	// JSONOutput forces the model to reply with a single JSON object.
	JSONOutput bool
}
