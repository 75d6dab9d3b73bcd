package workflow

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const testNodeType = "Test"

// testNode is a scriptable node used across the package tests.
type testNode struct {
	Base

	mu    sync.Mutex
	calls int

	run      func(ctx context.Context, ec *ExecutionContext) ExecutionResult
	validate func() ValidationResult
}

func newTestNode(title string) *testNode {
	return &testNode{Base: NewBase(testNodeType, title)}
}

func (n *testNode) Execute(ctx context.Context, ec *ExecutionContext) ExecutionResult {
	n.mu.Lock()
	n.calls++
	n.mu.Unlock()
	if n.run != nil {
		return n.run(ctx, ec)
	}
	return Succeeded(n.Title()+" done", map[string]any{"title": n.Title()})
}

func (n *testNode) Validate() ValidationResult {
	if n.validate != nil {
		return n.validate()
	}
	return Valid()
}

func (n *testNode) Calls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

// chain builds a workflow whose nodes are connected in the given order.
func chain(t *testing.T, nodes ...Node) *Workflow {
	t.Helper()
	wf := NewWorkflow("chain")
	for _, n := range nodes {
		require.NoError(t, wf.AddNode(n))
	}
	for i := 1; i < len(nodes); i++ {
		_, err := wf.Connect(nodes[i-1].ID(), nodes[i].ID())
		require.NoError(t, err)
	}
	return wf
}

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(opts...)
	require.NoError(t, err)
	return e
}

func testRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(testNodeType, func() Node { return newTestNode("Test") })
	return r
}
