package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSystem(t *testing.T) {
	system, rest := SplitSystem([]Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleSystem, Content: "be kind"},
		{Role: RoleAssistant, Content: "hello"},
	})
	assert.Equal(t, "be brief\n\nbe kind", system)
	assert.Equal(t, []Message{{Role: RoleUser, Content: "hi"}, {Role: RoleAssistant, Content: "hello"}}, rest)
}

func TestPrompt(t *testing.T) {
	assert.Equal(t, []Message{{Role: RoleUser, Content: "q"}}, Prompt("", "q"))
	assert.Equal(t, []Message{{Role: RoleSystem, Content: "s"}, {Role: RoleUser, Content: "q"}}, Prompt("s", "q"))
}

func TestMockChatModel(t *testing.T) {
	ctx := context.Background()

	t.Run("scripted responses repeat the last", func(t *testing.T) {
		m := &MockChatModel{Responses: []ChatOut{{Text: "one"}, {Text: "two"}}}
		for _, want := range []string{"one", "two", "two"} {
			out, err := m.Chat(ctx, Prompt("", "q"))
			require.NoError(t, err)
			assert.Equal(t, want, out.Text)
		}
		assert.Equal(t, 3, m.CallCount())

		m.Reset()
		assert.Zero(t, m.CallCount())
		out, _ := m.Chat(ctx, nil)
		assert.Equal(t, "one", out.Text)
	})

	t.Run("error injection records the call", func(t *testing.T) {
		boom := errors.New("boom")
		m := &MockChatModel{Err: boom}
		_, err := m.Chat(ctx, Prompt("sys", "q"))
		assert.ErrorIs(t, err, boom)
		require.Len(t, m.Calls(), 1)
		assert.Equal(t, "sys", m.Calls()[0][0].Content)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		m := &MockChatModel{Responses: []ChatOut{{Text: "x"}}}
		_, err := m.Chat(cctx, nil)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, m.CallCount())
	})
}
