package domain

import "context"

type ChatRole string

const (
	ChatSystem    ChatRole = "system"
	ChatUser      ChatRole = "user"
	ChatAssistant ChatRole = "assistant"
)

const (
	MaxChatMessages      = 20
	MaxChatMessageLength = 4096
)

type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// Prompt is a provider-neutral generation request.
type Prompt struct {
	System      string
	Messages    []ChatMessage
	Temperature float32
	// JSON asks the model for a bare JSON document.
	JSON bool
}

type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}
