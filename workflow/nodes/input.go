package nodes

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/dshills/workflow-go/workflow"
)

// Prompter asks the user for a value.
type Prompter interface {
	// Prompt displays prompt and returns the user's answer. An empty
	// answer means "use the default".
	Prompt(ctx context.Context, prompt, inputType, defaultValue string) (string, error)
}

// LinePrompter reads answers line by line, typically from a terminal.
//
// A single reader goroutine, started by the first Prompt, feeds every
// answer. A Prompt abandoned through its ctx leaves the next line for the
// following Prompt.
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer

	once  sync.Once
	lines chan lineResult
}

// NewLinePrompter creates a prompter that writes prompts to out and reads
// answers from in.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), out: out, lines: make(chan lineResult)}
}

type lineResult struct {
	line string
	err  error
}

// read delivers lines until the input fails, then closes lines.
func (p *LinePrompter) read() {
	defer close(p.lines)
	for {
		line, err := p.in.ReadString('\n')
		if errors.Is(err, io.EOF) && line != "" {
			err = nil
		}
		p.lines <- lineResult{strings.TrimRight(line, "\r\n"), err}
		if err != nil {
			return
		}
	}
}

// Prompt implements Prompter. When ctx is done before a line arrives
// ctx.Err() is returned. After end of input every answer is empty.
func (p *LinePrompter) Prompt(ctx context.Context, prompt, inputType, defaultValue string) (string, error) {
	if defaultValue != "" {
		fmt.Fprintf(p.out, "%s [%s] ", prompt, defaultValue)
	} else {
		fmt.Fprintf(p.out, "%s ", prompt)
	}
	p.once.Do(func() { go p.read() })

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r, ok := <-p.lines:
		if !ok || errors.Is(r.err, io.EOF) {
			return "", nil
		}
		return r.line, r.err
	}
}

// Input asks the user for a value through the configured Prompter.
//
// Parameters: prompt ("Enter value:"), inputType ("text", "number" or
// "boolean"), defaultValue (""). Without a prompter the default is used.
type Input struct {
	workflow.Base
	cfg *config
}

// NewInput creates an Input node.
func NewInput(opts ...Option) *Input { return newInput(newConfig(opts...)) }

func newInput(cfg *config) *Input {
	n := &Input{Base: workflow.NewBase(TypeInput, "User Input"), cfg: cfg}
	p := n.Params()
	p.Set("prompt", "Enter value:")
	p.Set("inputType", "text")
	p.Set("defaultValue", "")
	return n
}

// Validate checks the input type.
func (n *Input) Validate() workflow.ValidationResult {
	switch n.Params().String("inputType", "text") {
	case "text", "number", "boolean":
		return workflow.Valid()
	}
	return workflow.Invalid("Input type must be text, number or boolean")
}

// Execute prompts and converts the answer to the declared type.
func (n *Input) Execute(ctx context.Context, ec *workflow.ExecutionContext) workflow.ExecutionResult {
	p := n.Params()
	prompt := ec.Expand(p.String("prompt", "Enter value:"))
	inputType := p.String("inputType", "text")
	def := ec.Expand(p.String("defaultValue", ""))
	ec.Log("Requesting user input: " + n.Title())

	answer := def
	if n.cfg.prompter != nil {
		got, err := n.cfg.prompter.Prompt(ctx, prompt, inputType, def)
		if err != nil {
			return workflow.Failed("Input failed: "+err.Error(), err)
		}
		if got != "" {
			answer = got
		}
	}

	value, err := convertInput(answer, inputType)
	if err != nil {
		return workflow.Failed("Input failed: "+err.Error(), err)
	}
	ec.Log("User input received: " + answer)

	return workflow.Succeeded("Input received: "+answer, n.cfg.stamp(map[string]any{
		"userInput": value,
		"prompt":    prompt,
		"inputType": inputType,
	}))
}

func convertInput(answer, inputType string) (any, error) {
	switch inputType {
	case "number":
		f, err := strconv.ParseFloat(strings.TrimSpace(answer), 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", answer)
		}
		return f, nil
	case "boolean":
		b, err := strconv.ParseBool(strings.TrimSpace(answer))
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", answer)
		}
		return b, nil
	default:
		return answer, nil
	}
}
