// Package model provides the chat-model abstraction used by AI-backed nodes.
//
// Provider adapters live in the anthropic, openai and google sub-packages.
// MockChatModel serves tests and offline runs.
package model

import (
	"context"
	"errors"
)

// ChatModel sends a conversation to an LLM and returns its reply.
//
// Implementations must respect context cancellation and must be safe for
// concurrent use, since the same model may back AskAI nodes in several runs.
type ChatModel interface {
	Chat(ctx context.Context, messages []Message) (ChatOut, error)
}

// Message is a single turn of a conversation.
type Message struct {
	// Role is one of RoleSystem, RoleUser or RoleAssistant.
	Role string

	// Content is the message text.
	Content string
}

// Standard roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatOut is the reply produced by a ChatModel.
type ChatOut struct {
	// Text is the concatenated text of the reply.
	Text string

	// Model is the model that produced the reply, as reported by the provider.
	Model string

	// InputTokens and OutputTokens are the provider's usage counts.
	// Zero when the provider does not report usage.
	InputTokens  int
	OutputTokens int
}

// ErrMissingAPIKey is returned by provider adapters constructed without credentials.
var ErrMissingAPIKey = errors.New("model: API key is required")

// ErrEmptyResponse is returned when a provider answers without any candidate text.
var ErrEmptyResponse = errors.New("model: provider returned no content")

// SplitSystem separates system messages from the conversation. Multiple
// system messages are joined with a blank line. Providers that take the
// system prompt as a separate request field use this.
func SplitSystem(messages []Message) (string, []Message) {
	var system string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role != RoleSystem {
			rest = append(rest, m)
			continue
		}
		if system != "" {
			system += "\n\n"
		}
		system += m.Content
	}
	return system, rest
}

// Prompt builds a conversation from an optional system prompt and one user prompt.
func Prompt(system, user string) []Message {
	var msgs []Message
	if system != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: system})
	}
	return append(msgs, Message{Role: RoleUser, Content: user})
}
