package nodes

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/workflow-go/workflow"
	"github.com/dshills/workflow-go/workflow/model"
)

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() Option { return WithClock(func() time.Time { return fixedTime }) }

func execute(t *testing.T, n workflow.Node) workflow.ExecutionResult {
	t.Helper()
	return n.Execute(context.Background(), workflow.NewExecutionContext("run", nil, nil, nil, nil))
}

func TestDelay(t *testing.T) {
	t.Run("validate", func(t *testing.T) {
		n := NewDelay()
		assert.True(t, n.Validate().Valid)
		for _, bad := range []any{-1, "soon", nil, "NaN", "Inf", "-Inf", 1e12} {
			n.Params().Set("seconds", bad)
			assert.Equal(t, []string{"Delay must be a positive number"}, n.Validate().Errors)
		}
		n.Params().Set("seconds", "0.5")
		assert.True(t, n.Validate().Valid)
	})

	t.Run("waits", func(t *testing.T) {
		n := NewDelay(fixedClock())
		n.Params().Set("seconds", 0.05)
		start := time.Now()
		r := execute(t, n)
		require.True(t, r.Success)
		assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
		assert.Equal(t, "Waited for 0.05 seconds", r.Message)
		assert.Equal(t, fixedTime.Format(time.RFC3339Nano), r.Output["timestamp"])
	})

	t.Run("unrepresentable delay fails instead of returning early", func(t *testing.T) {
		for _, bad := range []any{"NaN", "Inf", 1e12} {
			n := NewDelay()
			n.Params().Set("seconds", bad)
			r := execute(t, n)
			assert.False(t, r.Success, "seconds=%v", bad)
			assert.Equal(t, "Delay must be a positive number", r.Message)
		}
	})

	t.Run("largest representable delay is valid", func(t *testing.T) {
		n := NewDelay()
		n.Params().Set("seconds", maxDelaySeconds)
		assert.True(t, n.Validate().Valid)
	})

	t.Run("cancelled", func(t *testing.T) {
		n := NewDelay()
		n.Params().Set("seconds", 30)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		r := n.Execute(ctx, workflow.NewExecutionContext("run", nil, nil, nil, nil))
		assert.False(t, r.Success)
		assert.Equal(t, "Delay was cancelled", r.Message)
		assert.ErrorIs(t, r.Err, context.DeadlineExceeded)
	})
}

func TestCalculator(t *testing.T) {
	n := NewCalculator()
	assert.True(t, n.Validate().Valid)

	r := execute(t, n)
	require.True(t, r.Success)
	assert.Equal(t, 4.0, r.Output["result"])
	assert.Equal(t, "Calculation completed: 4", r.Message)

	n.Params().Set("expression", "10 / 0")
	r = execute(t, n)
	assert.False(t, r.Success)
	assert.True(t, strings.HasPrefix(r.Message, "Calculation failed: "))

	n.Params().Set("expression", "  ")
	assert.Equal(t, []string{"Mathematical expression is required"}, n.Validate().Errors)
}

func TestDecision(t *testing.T) {
	tests := []struct {
		left, op, right string
		want            bool
	}{
		{"5", ">", "3", true},
		{"5", "<", "3", false},
		{"3", ">=", "3", true},
		{"2", "<=", "1", false},
		{"1.00001", "==", "1", true},
		{"1.01", "==", "1", false},
		{"1.00001", "!=", "1", false},
		{"abc", ">", "1", false},
		{"1", "<", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.left+tt.op+tt.right, func(t *testing.T) {
			n := NewDecision()
			n.Params().Set("leftValue", tt.left)
			n.Params().Set("operator", tt.op)
			n.Params().Set("rightValue", tt.right)
			r := execute(t, n)
			require.True(t, r.Success)
			assert.Equal(t, tt.want, r.Output["result"])
			assert.Equal(t, tt.left+" "+tt.op+" "+tt.right, r.Output["condition"])
		})
	}

	n := NewDecision()
	n.Params().Set("operator", "=~")
	assert.False(t, n.Validate().Valid)
}

func TestLoop(t *testing.T) {
	n := NewLoop()
	assert.True(t, n.Validate().Valid)
	r := execute(t, n)
	require.True(t, r.Success)
	assert.Equal(t, 3, r.Output["iterations"])
	assert.Equal(t, "Loop executed 3 times", r.Message)

	n.Params().Set("iterations", 2.5)
	n.Params().Set("loopType", "forever")
	assert.Len(t, n.Validate().Errors, 2)
}

func TestSystemInfo(t *testing.T) {
	n := NewSystemInfo()
	r := execute(t, n)
	require.True(t, r.Success)
	for _, key := range []string{"computerName", "arch", "cpus", "osVersion", "goVersion", "timestamp"} {
		assert.Contains(t, r.Output, key)
	}

	n.Params().Set("infoType", "hardware")
	r = execute(t, n)
	require.True(t, r.Success)
	assert.Contains(t, r.Output, "cpus")
	assert.NotContains(t, r.Output, "goVersion")

	n.Params().Set("infoType", "gpu")
	assert.False(t, n.Validate().Valid)
}

type scriptedPrompter struct {
	answer string
	err    error
	asked  []string
}

func (p *scriptedPrompter) Prompt(ctx context.Context, prompt, inputType, def string) (string, error) {
	p.asked = append(p.asked, prompt)
	return p.answer, p.err
}

func TestInput(t *testing.T) {
	t.Run("no prompter uses default", func(t *testing.T) {
		n := NewInput()
		n.Params().Set("defaultValue", "fallback")
		r := execute(t, n)
		require.True(t, r.Success)
		assert.Equal(t, "fallback", r.Output["userInput"])
		assert.Equal(t, "Input received: fallback", r.Message)
	})

	t.Run("typed answers", func(t *testing.T) {
		p := &scriptedPrompter{answer: "42"}
		n := NewInput(WithPrompter(p))
		n.Params().Set("inputType", "number")
		r := execute(t, n)
		require.True(t, r.Success)
		assert.Equal(t, 42.0, r.Output["userInput"])
		assert.Equal(t, []string{"Enter value:"}, p.asked)

		p.answer = "nope"
		r = execute(t, n)
		assert.False(t, r.Success)
	})

	t.Run("prompter error", func(t *testing.T) {
		n := NewInput(WithPrompter(&scriptedPrompter{err: io.ErrUnexpectedEOF}))
		r := execute(t, n)
		assert.False(t, r.Success)
		assert.ErrorIs(t, r.Err, io.ErrUnexpectedEOF)
	})

	t.Run("line prompter", func(t *testing.T) {
		var out bytes.Buffer
		p := NewLinePrompter(strings.NewReader("true\n"), &out)
		n := NewInput(WithPrompter(p))
		n.Params().Set("inputType", "boolean")
		n.Params().Set("prompt", "Continue?")
		n.Params().Set("defaultValue", "false")
		r := execute(t, n)
		require.True(t, r.Success, r.Message)
		assert.Equal(t, true, r.Output["userInput"])
		assert.Equal(t, "Continue? [false] ", out.String())
	})

	t.Run("line prompter at EOF", func(t *testing.T) {
		p := NewLinePrompter(strings.NewReader(""), io.Discard)
		got, err := p.Prompt(context.Background(), "x", "text", "d")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("line prompter honors cancellation", func(t *testing.T) {
		pr, pw := io.Pipe()
		defer pw.Close()
		p := NewLinePrompter(pr, io.Discard)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := p.Prompt(ctx, "x", "text", "")
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("line prompter keeps the answer after a timed out prompt", func(t *testing.T) {
		pr, pw := io.Pipe()
		defer pw.Close()
		p := NewLinePrompter(pr, io.Discard)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := p.Prompt(ctx, "first", "text", "")
		require.ErrorIs(t, err, context.DeadlineExceeded)

		go func() { _, _ = io.WriteString(pw, "answer\n") }()
		got, err := p.Prompt(context.Background(), "second", "text", "")
		require.NoError(t, err)
		assert.Equal(t, "answer", got)
	})

	n := NewInput()
	n.Params().Set("inputType", "date")
	assert.False(t, n.Validate().Valid)
}

func TestOutput(t *testing.T) {
	t.Run("writer", func(t *testing.T) {
		var buf bytes.Buffer
		n := NewOutput(WithOutput(&buf))
		r := execute(t, n)
		require.True(t, r.Success)
		assert.Equal(t, "Hello World!\n", buf.String())
		assert.Equal(t, "Output: Hello World!", r.Message)
		assert.Equal(t, "message", r.Output["outputType"])
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "out.txt")
		n := NewOutput()
		n.Params().Set("outputType", "file")
		assert.False(t, n.Validate().Valid, "file output needs a path")
		n.Params().Set("path", path)
		require.True(t, n.Validate().Valid)

		require.True(t, execute(t, n).Success)
		require.True(t, execute(t, n).Success)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "Hello World!\nHello World!\n", string(data))
	})

	n := NewOutput()
	n.Params().Set("outputType", "printer")
	assert.False(t, n.Validate().Valid)
}

type fakeCapturer struct {
	data []byte
	err  error
}

func (f fakeCapturer) Capture(ctx context.Context, quality int) ([]byte, error) {
	return f.data, f.err
}

func TestScreenshot(t *testing.T) {
	t.Run("validate", func(t *testing.T) {
		n := NewScreenshot()
		assert.True(t, n.Validate().Valid)
		n.Params().Set("filename", "")
		n.Params().Set("quality", 150)
		assert.Equal(t, []string{"Filename is required", "Quality must be a whole number between 1 and 100"}, n.Validate().Errors)
	})

	t.Run("no capturer", func(t *testing.T) {
		r := execute(t, NewScreenshot())
		assert.False(t, r.Success)
		assert.ErrorIs(t, r.Err, ErrNoScreenCapturer)
	})

	t.Run("writes the capture", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "shots")
		n := NewScreenshot(WithScreenCapturer(fakeCapturer{data: []byte("png")}))
		n.Params().Set("directory", dir)
		r := execute(t, n)
		require.True(t, r.Success, r.Message)
		assert.Equal(t, filepath.Join(dir, "screenshot.png"), r.Output["filepath"])
		assert.Equal(t, "Screenshot saved: screenshot.png", r.Message)
		data, err := os.ReadFile(filepath.Join(dir, "screenshot.png"))
		require.NoError(t, err)
		assert.Equal(t, "png", string(data))
	})

	t.Run("capture error", func(t *testing.T) {
		boom := errors.New("display unavailable")
		r := execute(t, NewScreenshot(WithScreenCapturer(fakeCapturer{err: boom})))
		assert.False(t, r.Success)
		assert.ErrorIs(t, r.Err, boom)
	})

	t.Run("command capturer", func(t *testing.T) {
		dir := t.TempDir()
		n := NewScreenshot(WithScreenCapturer(NewCommandCapturer("echo image {quality}")))
		n.Params().Set("directory", dir)
		n.Params().Set("quality", 75)
		r := execute(t, n)
		require.True(t, r.Success, r.Message)
		data, err := os.ReadFile(filepath.Join(dir, "screenshot.png"))
		require.NoError(t, err)
		assert.Equal(t, "image 75\n", string(data))
	})

	t.Run("command capturer failure", func(t *testing.T) {
		r := execute(t, NewScreenshot(WithScreenCapturer(NewCommandCapturer("false"))))
		assert.False(t, r.Success)
		assert.Contains(t, r.Message, "Screenshot failed: false")
	})

	t.Run("blank command has no capturer", func(t *testing.T) {
		assert.Nil(t, NewCommandCapturer("  "))
	})
}

func TestHTTPRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Method", r.Method)
		w.Header().Set("X-Token", r.Header.Get("Authorization"))
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
		}
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	t.Run("post with headers", func(t *testing.T) {
		n := NewHTTPRequest(WithHTTPClient(srv.Client()))
		n.Params().Set("method", "post")
		n.Params().Set("url", srv.URL+"/echo")
		n.Params().Set("body", `{"a":1}`)
		n.Params().Set("headers", map[string]any{"Authorization": "Bearer t"})
		require.True(t, n.Validate().Valid)

		r := execute(t, n)
		require.True(t, r.Success, r.Message)
		assert.Equal(t, http.StatusOK, r.Output["status_code"])
		assert.Equal(t, `{"a":1}`, r.Output["body"])
		headers := r.Output["headers"].(map[string]any)
		assert.Equal(t, "POST", headers["X-Method"])
		assert.Equal(t, "Bearer t", headers["X-Token"])
	})

	t.Run("non-2xx is data", func(t *testing.T) {
		n := NewHTTPRequest(WithHTTPClient(srv.Client()))
		n.Params().Set("url", srv.URL+"/missing")
		r := execute(t, n)
		require.True(t, r.Success)
		assert.Equal(t, http.StatusNotFound, r.Output["status_code"])
	})

	t.Run("transport error fails", func(t *testing.T) {
		n := NewHTTPRequest()
		n.Params().Set("url", "http://127.0.0.1:1/")
		r := execute(t, n)
		assert.False(t, r.Success)
		assert.Error(t, r.Err)
	})

	t.Run("validate", func(t *testing.T) {
		n := NewHTTPRequest()
		assert.Equal(t, []string{"URL is required"}, n.Validate().Errors)
		n.Params().Set("url", "ftp://example.com")
		assert.False(t, n.Validate().Valid)
		n.Params().Set("url", "${api.url}/items")
		assert.True(t, n.Validate().Valid)
		n.Params().Set("method", "TRACE")
		assert.False(t, n.Validate().Valid)
	})
}

func TestAskAI(t *testing.T) {
	t.Run("uses the default model", func(t *testing.T) {
		mock := &model.MockChatModel{Responses: []model.ChatOut{{Text: "42", Model: "mock-1", InputTokens: 7, OutputTokens: 1}}}
		n := NewAskAI(WithChatModel("mock", mock))
		n.Params().Set("prompt", "What is six times seven?")
		n.Params().Set("system", "Answer with a number.")
		require.True(t, n.Validate().Valid)
		assert.Empty(t, n.Validate().Warnings)

		r := execute(t, n)
		require.True(t, r.Success, r.Message)
		assert.Equal(t, "42", r.Output["text"])
		assert.Equal(t, 7, r.Output["tokens_in"])
		assert.Equal(t, 1, r.Output["tokens_out"])
		assert.Equal(t, "mock", r.Output["provider"])

		calls := mock.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, model.Prompt("Answer with a number.", "What is six times seven?"), calls[0])
	})

	t.Run("named provider", func(t *testing.T) {
		a := &model.MockChatModel{Responses: []model.ChatOut{{Text: "from a"}}}
		b := &model.MockChatModel{Responses: []model.ChatOut{{Text: "from b"}}}
		n := NewAskAI(WithChatModel("a", a), WithChatModel("b", b))
		n.Params().Set("prompt", "hi")
		n.Params().Set("provider", "b")
		r := execute(t, n)
		require.True(t, r.Success)
		assert.Equal(t, "from b", r.Output["text"])
		assert.Zero(t, a.CallCount())
	})

	t.Run("missing provider", func(t *testing.T) {
		n := NewAskAI()
		n.Params().Set("prompt", "hi")
		v := n.Validate()
		assert.True(t, v.Valid)
		assert.Len(t, v.Warnings, 1)

		r := execute(t, n)
		assert.False(t, r.Success)
		assert.ErrorIs(t, r.Err, ErrNoChatModel)
	})

	t.Run("model error", func(t *testing.T) {
		boom := errors.New("rate limited")
		n := NewAskAI(WithChatModel("m", &model.MockChatModel{Err: boom}))
		n.Params().Set("prompt", "hi")
		r := execute(t, n)
		assert.False(t, r.Success)
		assert.ErrorIs(t, r.Err, boom)
		assert.Equal(t, "AskAI failed: rate limited", r.Message)
	})

	t.Run("prompt required", func(t *testing.T) {
		assert.Equal(t, []string{"Prompt is required"}, NewAskAI(WithChatModel("m", &model.MockChatModel{})).Validate().Errors)
	})
}
