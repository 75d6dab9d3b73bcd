package emit

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogEmitter(t *testing.T) {
	t.Run("text mode", func(t *testing.T) {
		var buf bytes.Buffer
		e := NewLogEmitter(&buf, false)

		e.Emit(Event{RunID: "run-1", Msg: MsgRunStart})
		e.Emit(Event{RunID: "run-1", Step: 2, NodeID: "calc", Msg: MsgNodeEnd, Meta: map[string]interface{}{"status": "Completed"}})

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		assert.Equal(t, "[run_start] run=run-1", lines[0])
		assert.Equal(t, `[node_end] run=run-1 step=2 node=calc meta={"status":"Completed"}`, lines[1])
	})

	t.Run("json mode", func(t *testing.T) {
		var buf bytes.Buffer
		e := NewLogEmitter(&buf, true)

		e.Emit(Event{RunID: "run-1", WorkflowID: "wf", Step: 1, NodeID: "a", Msg: MsgNodeStart})

		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, "run-1", got["runID"])
		assert.Equal(t, "wf", got["workflowID"])
		assert.Equal(t, float64(1), got["step"])
		assert.Equal(t, "node_start", got["msg"])
		assert.NotContains(t, got, "meta")
	})
}

func TestBufferedEmitter(t *testing.T) {
	t.Run("isolates runs", func(t *testing.T) {
		e := NewBufferedEmitter()
		e.Emit(Event{RunID: "a", Msg: MsgRunStart})
		e.Emit(Event{RunID: "b", Msg: MsgRunStart})
		e.Emit(Event{RunID: "a", Msg: MsgRunEnd})

		assert.Len(t, e.GetHistory("a"), 2)
		assert.Len(t, e.GetHistory("b"), 1)
		assert.NotNil(t, e.GetHistory("missing"))
		assert.Empty(t, e.GetHistory("missing"))
		assert.ElementsMatch(t, []string{"a", "b"}, e.Runs())
	})

	t.Run("history is a copy", func(t *testing.T) {
		e := NewBufferedEmitter()
		e.Emit(Event{RunID: "a", Msg: MsgRunStart})
		h := e.GetHistory("a")
		h[0].Msg = "changed"
		assert.Equal(t, MsgRunStart, e.GetHistory("a")[0].Msg)
	})

	t.Run("filter", func(t *testing.T) {
		e := NewBufferedEmitter()
		for step, node := range []string{"x", "y", "z"} {
			e.Emit(Event{RunID: "r", Step: step + 1, NodeID: node, Msg: MsgNodeStart})
			e.Emit(Event{RunID: "r", Step: step + 1, NodeID: node, Msg: MsgNodeEnd})
		}

		assert.Len(t, e.GetHistoryWithFilter("r", HistoryFilter{Msg: MsgNodeEnd}), 3)
		assert.Len(t, e.GetHistoryWithFilter("r", HistoryFilter{NodeID: "y"}), 2)

		lo, hi := 2, 2
		got := e.GetHistoryWithFilter("r", HistoryFilter{MinStep: &lo, MaxStep: &hi, Msg: MsgNodeStart})
		require.Len(t, got, 1)
		assert.Equal(t, "y", got[0].NodeID)
	})

	t.Run("clear", func(t *testing.T) {
		e := NewBufferedEmitter()
		e.Emit(Event{RunID: "a"})
		e.Emit(Event{RunID: "b"})
		e.Clear("a")
		assert.Empty(t, e.GetHistory("a"))
		assert.Len(t, e.GetHistory("b"), 1)
		e.Clear("")
		assert.Empty(t, e.Runs())
	})

	t.Run("concurrent emit", func(t *testing.T) {
		e := NewBufferedEmitter()
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					e.Emit(Event{RunID: "r", Msg: MsgLog})
				}
			}()
		}
		wg.Wait()
		assert.Len(t, e.GetHistory("r"), 1000)
	})
}

func TestMulti(t *testing.T) {
	a, b := NewBufferedEmitter(), NewBufferedEmitter()
	m := Multi(a, nil, b, NewNullEmitter())
	m.Emit(Event{RunID: "r", Msg: MsgRunStart})

	assert.Len(t, a.GetHistory("r"), 1)
	assert.Len(t, b.GetHistory("r"), 1)
}
