package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/workflow-go/workflow/model"
)

func TestChatModel_Chat(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": "Seven"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 12, "output_tokens": 3}
		}`))
	}))
	defer srv.Close()

	m := NewChatModel("test-key", "claude-test", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	out, err := m.Chat(context.Background(), model.Prompt("Be terse.", "Name a prime."))
	require.NoError(t, err)

	assert.Equal(t, "Seven", out.Text)
	assert.Equal(t, "claude-test", out.Model)
	assert.Equal(t, 12, out.InputTokens)
	assert.Equal(t, 3, out.OutputTokens)

	assert.Equal(t, "claude-test", got["model"])
	system := got["system"].([]any)
	assert.Equal(t, "Be terse.", system[0].(map[string]any)["text"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
}

func TestChatModel_Errors(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		_, err := NewChatModel("", "").Chat(context.Background(), model.Prompt("", "hi"))
		assert.ErrorIs(t, err, model.ErrMissingAPIKey)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewChatModel("k", "").Chat(ctx, model.Prompt("", "hi"))
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("api error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"bad key"}}`))
		}))
		defer srv.Close()

		m := NewChatModel("bad", "", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
		_, err := m.Chat(context.Background(), model.Prompt("", "hi"))
		assert.Error(t, err)
	})
}

func TestBuildParams(t *testing.T) {
	params := buildParams("m", 100, []model.Message{
		{Role: model.RoleUser, Content: "q1"},
		{Role: model.RoleAssistant, Content: "a1"},
		{Role: model.RoleUser, Content: "q2"},
	})
	assert.Empty(t, params.System)
	require.Len(t, params.Messages, 3)
	assert.EqualValues(t, "assistant", params.Messages[1].Role)
	assert.EqualValues(t, 100, params.MaxTokens)
}
