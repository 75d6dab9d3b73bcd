package workflow

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/workflow-go/workflow/emit"
)

func TestExecutionContext_Expand(t *testing.T) {
	wf := NewWorkflow("")
	wf.GlobalParameters.Set("user", "sam")
	wf.GlobalParameters.Set("limit", 3)
	wf.GlobalParameters.Set("calc.result", "shadowed")
	ec := NewExecutionContext("run", wf, nil, nil, nil)
	ec.publish("calc", map[string]any{"result": 4.0, "user": "shadow"})

	tests := []struct {
		in, want string
	}{
		{"Result: ${calc.result}", "Result: 4"},
		{"hi ${user}", "hi sam"},
		{"${ calc.user }", "shadow"},
		{"limit=${limit}", "limit=3"},
		{"missing=${nope}", "missing="},
		{"costs $5", "costs $5"},
		{"${a}${b}", ""},
		{"no refs", "no refs"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ec.Expand(tt.in))
		})
	}
}

func TestExecutionContext_VariablesSnapshot(t *testing.T) {
	ec := NewExecutionContext("run", nil, nil, nil, nil)
	ec.publish("a", map[string]any{"x": 1})

	vars := ec.Variables()
	vars["a.x"] = 2
	v, ok := ec.Variable("a.x")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = ec.Global("anything")
	assert.False(t, ok)
}

func TestExecutionContext_Log(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	buf := emit.NewBufferedEmitter()

	a := newTestNode("A")
	wf := chain(t, a)
	ec := NewExecutionContext("run-9", wf, nil, logger, buf)
	ec.enter(1, a)
	ec.Log("copied files", "count", 2)

	assert.Contains(t, logs.String(), "copied files")
	assert.Contains(t, logs.String(), "run_id=run-9")
	assert.Contains(t, logs.String(), "node_id="+a.ID())
	assert.True(t, strings.Contains(logs.String(), "count=2"))

	events := buf.GetHistory("run-9")
	require.Len(t, events, 1)
	assert.Equal(t, emit.MsgLog, events[0].Msg)
	assert.Equal(t, wf.ID, events[0].WorkflowID)
	assert.Equal(t, "copied files", events[0].Meta["text"])
	assert.Equal(t, 2, events[0].Meta["count"])
}
