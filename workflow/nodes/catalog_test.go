package nodes

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/workflow-go/workflow"
	"github.com/dshills/workflow-go/workflow/emit"
	"github.com/dshills/workflow-go/workflow/model"
)

func newRegistry(t *testing.T, opts ...Option) *workflow.Registry {
	t.Helper()
	reg := workflow.NewRegistry()
	require.NoError(t, Register(reg, opts...))
	return reg
}

func newNode(t *testing.T, reg *workflow.Registry, nodeType string, params map[string]any) workflow.Node {
	t.Helper()
	n, err := reg.New(nodeType)
	require.NoError(t, err)
	for k, v := range params {
		n.Params().Set(k, v)
	}
	return n
}

func chain(t *testing.T, nodes ...workflow.Node) *workflow.Workflow {
	t.Helper()
	wf := workflow.NewWorkflow("catalog")
	for _, n := range nodes {
		require.NoError(t, wf.AddNode(n))
	}
	for i := 1; i < len(nodes); i++ {
		_, err := wf.Connect(nodes[i-1].ID(), nodes[i].ID())
		require.NoError(t, err)
	}
	return wf
}

func TestRegister(t *testing.T) {
	reg := newRegistry(t)
	assert.ElementsMatch(t, Types(), reg.Types())
	for _, nodeType := range Types() {
		assert.Contains(t, workflow.DefaultRegistry.Types(), nodeType)
	}

	t.Run("defaults", func(t *testing.T) {
		needsInput := map[string]bool{TypeHTTPRequest: true, TypeAskAI: true}
		for _, nodeType := range Types() {
			n, err := reg.New(nodeType)
			require.NoError(t, err)
			assert.NotEmpty(t, n.Title(), nodeType)
			assert.Equal(t, !needsInput[nodeType], n.Validate().Valid, nodeType)
		}
	})

	t.Run("nodes of one registry share dependencies", func(t *testing.T) {
		var buf bytes.Buffer
		reg := newRegistry(t, WithOutput(&buf))
		for _, msg := range []string{"one", "two"} {
			n := newNode(t, reg, TypeOutput, map[string]any{"message": msg})
			require.True(t, execute(t, n).Success)
		}
		assert.Equal(t, "one\ntwo\n", buf.String())
	})
}

// Wait(1s) → Display("hi") → Display("bye").
func TestCatalog_LinearChain(t *testing.T) {
	var buf bytes.Buffer
	reg := newRegistry(t, WithOutput(&buf))
	wait := newNode(t, reg, TypeDelay, map[string]any{"seconds": 1})
	hi := newNode(t, reg, TypeOutput, map[string]any{"message": "hi"})
	bye := newNode(t, reg, TypeOutput, map[string]any{"message": "bye"})
	wf := chain(t, wait, hi, bye)

	engine, err := workflow.New()
	require.NoError(t, err)
	start := time.Now()
	summary := engine.ExecuteWorkflow(context.Background(), wf, nil)

	assert.Equal(t, workflow.RunCompleted, summary.Status)
	assert.Equal(t, 3, summary.SuccessfulNodes)
	assert.Equal(t, []string{wait.ID(), hi.ID(), bye.ID()}, summary.Order)
	assert.Equal(t, "hi\nbye\n", buf.String())
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
}

func TestCatalog_VariablesFlowBetweenNodes(t *testing.T) {
	var buf bytes.Buffer
	mock := &model.MockChatModel{Responses: []model.ChatOut{{Text: "Eight is even."}}}
	reg := newRegistry(t, WithOutput(&buf), WithChatModel("mock", mock))

	calc := newNode(t, reg, TypeCalculator, map[string]any{"expression": "pow(2, 3)"})
	ask := newNode(t, reg, TypeAskAI, map[string]any{"prompt": "Is ${" + calc.ID() + ".result} even?"})
	show := newNode(t, reg, TypeOutput, map[string]any{"message": "${who}: ${" + ask.ID() + ".text}"})
	wf := chain(t, calc, ask, show)
	wf.GlobalParameters.Set("who", "bot")

	engine, err := workflow.New()
	require.NoError(t, err)
	summary := engine.ExecuteWorkflow(context.Background(), wf, nil)
	require.Equal(t, workflow.RunCompleted, summary.Status, summary.ErrorMessage)

	assert.Equal(t, "Is 8 even?", mock.Calls()[0][0].Content)
	assert.Equal(t, "bot: Eight is even.\n", buf.String())
}

func TestCatalog_CancelledDelayIsSkipped(t *testing.T) {
	var buf bytes.Buffer
	reg := newRegistry(t, WithOutput(&buf))
	wait := newNode(t, reg, TypeDelay, map[string]any{"seconds": 30})
	after := newNode(t, reg, TypeOutput, nil)
	wf := chain(t, wait, after)

	events := emit.NewBufferedEmitter()
	engine, err := workflow.New(workflow.WithEmitter(events))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)
	summary := engine.ExecuteWorkflow(ctx, wf, nil)

	assert.Equal(t, workflow.RunCancelled, summary.Status)
	assert.Equal(t, workflow.StatusSkipped, summary.NodeStatus(wait.ID()))
	assert.Equal(t, workflow.StatusReady, summary.NodeStatus(after.ID()))
	assert.Zero(t, summary.FailedNodes)
	assert.Empty(t, buf.String())

	skipped := events.GetHistoryWithFilter(summary.RunID, emit.HistoryFilter{Msg: emit.MsgNodeSkipped})
	assert.Len(t, skipped, 1)
}

func TestCatalog_ValidationStopsRun(t *testing.T) {
	reg := newRegistry(t, WithOutput(&bytes.Buffer{}))
	first := newNode(t, reg, TypeOutput, nil)
	shot := newNode(t, reg, TypeScreenshot, map[string]any{"filename": ""})
	last := newNode(t, reg, TypeOutput, nil)
	wf := chain(t, first, shot, last)

	engine, err := workflow.New()
	require.NoError(t, err)
	summary := engine.ExecuteWorkflow(context.Background(), wf, nil)

	assert.Equal(t, workflow.RunFailed, summary.Status)
	r, ok := summary.Result(shot.ID())
	require.True(t, ok)
	assert.Equal(t, "Node validation failed: Filename is required", r.Message)
	_, ok = summary.Result(last.ID())
	assert.False(t, ok)
}

func TestCatalog_DocumentRoundTrip(t *testing.T) {
	reg := newRegistry(t)
	var all []workflow.Node
	for _, nodeType := range Types() {
		n, err := reg.New(nodeType)
		require.NoError(t, err)
		all = append(all, n)
	}
	wf := chain(t, all...)

	for _, format := range []workflow.Format{workflow.FormatJSON, workflow.FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			data, err := wf.Encode(format)
			require.NoError(t, err)
			loaded, err := reg.Decode(data, format, "catalog")
			require.NoError(t, err)

			for _, n := range all {
				got, ok := loaded.Node(n.ID())
				require.True(t, ok, n.Type())
				assert.IsType(t, n, got)
				assert.True(t, n.Params().Equal(got.Params()), "%s params differ", n.Type())
			}
			assert.Equal(t, wf.Connections(), loaded.Connections())
		})
	}
}
