package model

import (
	"context"
	"sync"
)

// MockChatModel is a scripted ChatModel for tests.
//
//	mock := &model.MockChatModel{Responses: []model.ChatOut{{Text: "first"}, {Text: "second"}}}
//
// Each call returns the next response; once exhausted the last one repeats.
// When Err is set every call fails with it.
type MockChatModel struct {
	Responses []ChatOut
	Err       error

	mu        sync.Mutex
	calls     [][]Message
	callIndex int
}

// Chat implements ChatModel.
func (m *MockChatModel) Chat(ctx context.Context, messages []Message) (ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return ChatOut{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]Message, len(messages))
	copy(cp, messages)
	m.calls = append(m.calls, cp)

	if m.Err != nil {
		return ChatOut{}, m.Err
	}
	if len(m.Responses) == 0 {
		return ChatOut{}, nil
	}
	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	} else {
		m.callIndex++
	}
	return m.Responses[idx], nil
}

// Calls returns the conversations received so far.
func (m *MockChatModel) Calls() [][]Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]Message, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of Chat invocations.
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Reset clears the call history and rewinds the response script.
func (m *MockChatModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.callIndex = 0
}
