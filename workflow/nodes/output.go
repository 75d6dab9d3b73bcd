package nodes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dshills/workflow-go/workflow"
)

// Output displays a message.
//
// Parameters: message ("Hello World!"), outputType ("message", "screen" or
// "file"), path (required for "file"). The message is expanded, so
// "Result: ${calc.result}" prints the calculator's output.
type Output struct {
	workflow.Base
	cfg *config
}

// NewOutput creates an Output node.
func NewOutput(opts ...Option) *Output { return newOutput(newConfig(opts...)) }

func newOutput(cfg *config) *Output {
	n := &Output{Base: workflow.NewBase(TypeOutput, "Display Output"), cfg: cfg}
	n.Params().Set("message", "Hello World!")
	n.Params().Set("outputType", "message")
	return n
}

// Validate checks the output type and, for files, the path.
func (n *Output) Validate() workflow.ValidationResult {
	switch n.Params().String("outputType", "message") {
	case "message", "screen":
		return workflow.Valid()
	case "file":
		if n.Params().String("path", "") == "" {
			return workflow.Invalid("Path is required for file output")
		}
		return workflow.Valid()
	}
	return workflow.Invalid("Output type must be message, screen or file")
}

// Execute writes the expanded message.
func (n *Output) Execute(ctx context.Context, ec *workflow.ExecutionContext) workflow.ExecutionResult {
	message := ec.Expand(n.Params().String("message", "Hello World!"))
	outputType := n.Params().String("outputType", "message")
	out := map[string]any{
		"message":    message,
		"outputType": outputType,
	}

	if outputType == "file" {
		path := ec.Expand(n.Params().String("path", ""))
		if err := appendLine(path, message); err != nil {
			return workflow.Failed("Output failed: "+err.Error(), err)
		}
		out["path"] = path
	} else if _, err := fmt.Fprintln(n.cfg.out, message); err != nil {
		return workflow.Failed("Output failed: "+err.Error(), err)
	}
	ec.Log("Output displayed: " + message)

	return workflow.Succeeded("Output: "+message, n.cfg.stamp(out))
}

func appendLine(path, line string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(f, line); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
