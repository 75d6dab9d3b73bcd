package nodes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/workflow-go/workflow"
	"github.com/dshills/workflow-go/workflow/model"
)

// ErrNoChatModel is returned when an AskAI node names a provider that has no
// configured chat model.
var ErrNoChatModel = errors.New("no chat model configured")

// AskAI sends a prompt to a chat model.
//
// Parameters: provider ("" selects the default model), prompt, system,
// retries (0). Prompt and system are expanded. When the model's price is
// known the output includes cost_usd.
type AskAI struct {
	workflow.Base
	cfg *config
}

// NewAskAI creates an AskAI node.
func NewAskAI(opts ...Option) *AskAI { return newAskAI(newConfig(opts...)) }

func newAskAI(cfg *config) *AskAI {
	n := &AskAI{Base: workflow.NewBase(TypeAskAI, "Ask AI"), cfg: cfg}
	p := n.Params()
	p.Set("provider", "")
	p.Set("prompt", "")
	p.Set("system", "")
	p.Set("retries", 0)
	return n
}

// Validate requires a prompt. An unconfigured provider is a warning since
// models are bound by the host, not the document.
func (n *AskAI) Validate() workflow.ValidationResult {
	v := workflow.Valid()
	if strings.TrimSpace(n.Params().String("prompt", "")) == "" {
		v.AddError("Prompt is required")
	}
	validateRetries(n.Params(), &v)
	if _, _, err := n.chatModel(); err != nil {
		v.AddWarning(err.Error())
	}
	return v
}

func (n *AskAI) chatModel() (string, model.ChatModel, error) {
	provider := n.Params().String("provider", "")
	if provider == "" {
		provider = n.cfg.defaultModel
	}
	m, ok := n.cfg.models[provider]
	if !ok {
		if provider == "" {
			return "", nil, ErrNoChatModel
		}
		return "", nil, fmt.Errorf("%w for provider '%s' (configured: %s)", ErrNoChatModel, provider, strings.Join(n.cfg.providers(), ", "))
	}
	return provider, m, nil
}

// Execute sends the prompt and records the reply and token usage.
func (n *AskAI) Execute(ctx context.Context, ec *workflow.ExecutionContext) workflow.ExecutionResult {
	provider, m, err := n.chatModel()
	if err != nil {
		return workflow.Failed("AskAI failed: "+err.Error(), err)
	}

	prompt := ec.Expand(n.Params().String("prompt", ""))
	system := ec.Expand(n.Params().String("system", ""))

	messages := model.Prompt(system, prompt)
	var out model.ChatOut
	err = n.cfg.retryPolicyFor(n.Params(), retryableChat).do(ctx, ec, func() error {
		var chatErr error
		out, chatErr = m.Chat(ctx, messages)
		return chatErr
	})
	if err != nil {
		return workflow.Failed("AskAI failed: "+err.Error(), err)
	}

	output := map[string]any{
		"text":       out.Text,
		"provider":   provider,
		"model":      out.Model,
		"tokens_in":  out.InputTokens,
		"tokens_out": out.OutputTokens,
	}
	logArgs := []any{"provider", provider, "model", out.Model, "tokens_in", out.InputTokens, "tokens_out", out.OutputTokens}
	if cost, ok := estimateCost(n.cfg.pricing, out.Model, out.InputTokens, out.OutputTokens); ok {
		output["cost_usd"] = cost
		logArgs = append(logArgs, "cost_usd", cost)
	}
	ec.Log("AI response received", logArgs...)

	return workflow.Succeeded(fmt.Sprintf("AI response received from %s", provider), n.cfg.stamp(output))
}
