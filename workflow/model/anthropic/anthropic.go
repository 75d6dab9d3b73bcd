// Package anthropic adapts Anthropic's Messages API to model.ChatModel.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dshills/workflow-go/workflow/model"
)

// DefaultModel is used when NewChatModel receives an empty model name.
const DefaultModel = "claude-3-5-sonnet-20241022"

// DefaultMaxTokens bounds the length of a reply.
const DefaultMaxTokens = 4096

// ChatModel implements model.ChatModel for Claude.
//
//	m := anthropic.NewChatModel(os.Getenv("ANTHROPIC_API_KEY"), "")
//	out, err := m.Chat(ctx, model.Prompt("Be terse.", "Name a prime."))
//
// Safe for concurrent use.
type ChatModel struct {
	apiKey    string
	modelName string
	maxTokens int64
	client    anthropic.Client
}

var _ model.ChatModel = (*ChatModel)(nil)

// NewChatModel creates a Claude-backed model. Extra request options (base
// URL, HTTP client, retries) are passed through to the SDK client.
func NewChatModel(apiKey, modelName string, opts ...option.RequestOption) *ChatModel {
	if modelName == "" {
		modelName = DefaultModel
	}
	reqOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &ChatModel{
		apiKey:    apiKey,
		modelName: modelName,
		maxTokens: DefaultMaxTokens,
		client:    anthropic.NewClient(reqOpts...),
	}
}

// Name returns the configured model name.
func (m *ChatModel) Name() string { return m.modelName }

// Chat implements model.ChatModel. System messages are sent in the
// request's system field.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message) (model.ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return model.ChatOut{}, err
	}
	if m.apiKey == "" {
		return model.ChatOut{}, model.ErrMissingAPIKey
	}

	msg, err := m.client.Messages.New(ctx, buildParams(m.modelName, m.maxTokens, messages))
	if err != nil {
		return model.ChatOut{}, fmt.Errorf("anthropic: %w", err)
	}
	return toChatOut(msg)
}

func buildParams(modelName string, maxTokens int64, messages []model.Message) anthropic.MessageNewParams {
	system, rest := model.SplitSystem(messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(modelName),
		MaxTokens: maxTokens,
		Messages:  make([]anthropic.MessageParam, 0, len(rest)),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	for _, msg := range rest {
		block := anthropic.NewTextBlock(msg.Content)
		if msg.Role == model.RoleAssistant {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(block))
		} else {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(block))
		}
	}
	return params
}

func toChatOut(msg *anthropic.Message) (model.ChatOut, error) {
	if msg == nil {
		return model.ChatOut{}, model.ErrEmptyResponse
	}
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return model.ChatOut{
		Text:         sb.String(),
		Model:        string(msg.Model),
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}, nil
}
