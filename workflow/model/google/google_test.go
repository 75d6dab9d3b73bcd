package google

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/workflow-go/workflow/model"
)

func TestBuildConversation(t *testing.T) {
	t.Run("system history and prompt", func(t *testing.T) {
		system, history, last, err := buildConversation([]model.Message{
			{Role: model.RoleSystem, Content: "be brief"},
			{Role: model.RoleUser, Content: "q1"},
			{Role: model.RoleAssistant, Content: "a1"},
			{Role: model.RoleUser, Content: "q2"},
		})
		require.NoError(t, err)

		require.NotNil(t, system)
		assert.Equal(t, []genai.Part{genai.Text("be brief")}, system.Parts)
		require.Len(t, history, 2)
		assert.Equal(t, "user", history[0].Role)
		assert.Equal(t, "model", history[1].Role)
		assert.Equal(t, "q2", last)
	})

	t.Run("no system prompt", func(t *testing.T) {
		system, history, last, err := buildConversation(model.Prompt("", "hi"))
		require.NoError(t, err)
		assert.Nil(t, system)
		assert.Empty(t, history)
		assert.Equal(t, "hi", last)
	})

	t.Run("must end with user", func(t *testing.T) {
		_, _, _, err := buildConversation([]model.Message{{Role: model.RoleAssistant, Content: "a"}})
		assert.Error(t, err)
		_, _, _, err = buildConversation(nil)
		assert.Error(t, err)
	})
}

func TestToChatOut(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("Hello, "), genai.Text("world")}},
		}},
		UsageMetadata: &genai.UsageMetadata{PromptTokenCount: 4, CandidatesTokenCount: 2},
	}
	out, err := toChatOut(resp)
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", out.Text)
	assert.Equal(t, 4, out.InputTokens)
	assert.Equal(t, 2, out.OutputTokens)

	_, err = toChatOut(&genai.GenerateContentResponse{})
	assert.ErrorIs(t, err, model.ErrEmptyResponse)
	_, err = toChatOut(nil)
	assert.ErrorIs(t, err, model.ErrEmptyResponse)
}

func TestNewChatModel_MissingKey(t *testing.T) {
	_, err := NewChatModel(context.Background(), "", "")
	assert.ErrorIs(t, err, model.ErrMissingAPIKey)
}
