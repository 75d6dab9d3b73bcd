// Package google adapts the Gemini API to model.ChatModel.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/dshills/workflow-go/workflow/model"
)

// DefaultModel is used when NewChatModel receives an empty model name.
const DefaultModel = "gemini-1.5-flash"

// ChatModel implements model.ChatModel for Gemini models.
//
// Unlike the other adapters it owns a network client that must be released:
//
//	m, err := google.NewChatModel(ctx, apiKey, "")
//	if err != nil { ... }
//	defer m.Close()
type ChatModel struct {
	modelName string
	client    *genai.Client
}

var _ model.ChatModel = (*ChatModel)(nil)

// NewChatModel dials the Gemini API. Extra client options are appended after
// the API key.
func NewChatModel(ctx context.Context, apiKey, modelName string, opts ...option.ClientOption) (*ChatModel, error) {
	if apiKey == "" {
		return nil, model.ErrMissingAPIKey
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("google: create client: %w", err)
	}
	return &ChatModel{modelName: modelName, client: client}, nil
}

// Name returns the configured model name.
func (m *ChatModel) Name() string { return m.modelName }

// Close releases the underlying client.
func (m *ChatModel) Close() error {
	if m.client == nil {
		return nil
	}
	return m.client.Close()
}

// Chat implements model.ChatModel. Earlier turns are replayed as chat
// history and the final user turn is sent as the new message.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message) (model.ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return model.ChatOut{}, err
	}

	system, history, last, err := buildConversation(messages)
	if err != nil {
		return model.ChatOut{}, err
	}

	gm := m.client.GenerativeModel(m.modelName)
	gm.SystemInstruction = system
	session := gm.StartChat()
	session.History = history

	resp, err := session.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return model.ChatOut{}, fmt.Errorf("google: %w", err)
	}
	out, err := toChatOut(resp)
	if err != nil {
		return model.ChatOut{}, err
	}
	out.Model = m.modelName
	return out, nil
}

// buildConversation maps messages onto Gemini's shape: a system instruction,
// prior turns with roles "user" and "model", and the final prompt text.
func buildConversation(messages []model.Message) (*genai.Content, []*genai.Content, string, error) {
	sys, rest := model.SplitSystem(messages)
	if len(rest) == 0 || rest[len(rest)-1].Role != model.RoleUser {
		return nil, nil, "", errors.New("google: conversation must end with a user message")
	}

	var system *genai.Content
	if sys != "" {
		system = &genai.Content{Parts: []genai.Part{genai.Text(sys)}}
	}

	history := make([]*genai.Content, 0, len(rest)-1)
	for _, msg := range rest[:len(rest)-1] {
		role := "user"
		if msg.Role == model.RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(msg.Content)}})
	}
	return system, history, rest[len(rest)-1].Content, nil
}

func toChatOut(resp *genai.GenerateContentResponse) (model.ChatOut, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return model.ChatOut{}, model.ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	out := model.ChatOut{Text: sb.String()}
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}
