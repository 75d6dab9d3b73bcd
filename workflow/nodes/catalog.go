// Package nodes is the catalog of concrete node behaviors.
//
// Importing the package registers every variant into
// workflow.DefaultRegistry with default dependencies. Hosts that need to
// inject a chat model, an HTTP client, a prompter or an output writer call
// Register with options against their own registry (or DefaultRegistry,
// replacing the defaults):
//
//	reg := workflow.NewRegistry()
//	err := nodes.Register(reg,
//	    nodes.WithChatModel("anthropic", anthropic.NewChatModel(key, "")),
//	    nodes.WithOutput(os.Stdout),
//	)
package nodes

import (
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/dshills/workflow-go/workflow"
	"github.com/dshills/workflow-go/workflow/model"
)

// Node type discriminators as they appear in persisted documents.
const (
	TypeScreenshot  = "Screenshot"
	TypeCalculator  = "Calculator"
	TypeSystemInfo  = "SystemInfo"
	TypeDelay       = "Delay"
	TypeDecision    = "Decision"
	TypeLoop        = "Loop"
	TypeInput       = "Input"
	TypeOutput      = "Output"
	TypeHTTPRequest = "HttpRequest"
	TypeAskAI       = "AskAI"
)

// config carries the dependencies shared by every node built from one catalog.
type config struct {
	models       map[string]model.ChatModel
	defaultModel string
	httpClient   *http.Client
	prompter     Prompter
	out          io.Writer
	capturer     ScreenCapturer
	now          func() time.Time
	retryBase    time.Duration
	retryMax     time.Duration
	pricing      map[string]modelPricing
}

// Option configures the dependencies of catalog nodes.
type Option func(*config)

// WithChatModel makes m available to AskAI nodes under provider. The first
// model registered becomes the default for nodes with an empty provider.
func WithChatModel(provider string, m model.ChatModel) Option {
	return func(c *config) {
		if m == nil {
			return
		}
		if c.defaultModel == "" {
			c.defaultModel = provider
		}
		c.models[provider] = m
	}
}

// WithHTTPClient sets the client used by HttpRequest nodes.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithPrompter sets the source of user input for Input nodes.
func WithPrompter(p Prompter) Option {
	return func(c *config) { c.prompter = p }
}

// WithOutput sets the writer Output nodes print to.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.out = w
		}
	}
}

// WithScreenCapturer sets the capture backend used by Screenshot nodes.
func WithScreenCapturer(sc ScreenCapturer) Option {
	return func(c *config) { c.capturer = sc }
}

// WithClock overrides the time source used for output timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRetryBackoff sets the delay before the first retry of a node with a
// "retries" parameter and the cap on later delays.
func WithRetryBackoff(base, maxDelay time.Duration) Option {
	return func(c *config) {
		c.retryBase = base
		c.retryMax = maxDelay
	}
}

// WithModelPrice sets the USD price per million input and output tokens used
// to report the cost of AskAI calls to modelName.
func WithModelPrice(modelName string, inputPer1M, outputPer1M float64) Option {
	return func(c *config) {
		c.pricing[modelName] = modelPricing{InputPer1M: inputPer1M, OutputPer1M: outputPer1M}
	}
}

func newConfig(opts ...Option) *config {
	c := &config{
		models:     make(map[string]model.ChatModel),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		out:        os.Stdout,
		now:        time.Now,
		retryBase:  defaultRetryBase,
		retryMax:   defaultRetryMax,
		pricing:    make(map[string]modelPricing, len(defaultModelPricing)),
	}
	for name, p := range defaultModelPricing {
		c.pricing[name] = p
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// providers returns the configured chat model names, sorted.
func (c *config) providers() []string {
	names := make([]string, 0, len(c.models))
	for name := range c.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// stamp adds the output timestamp every variant records.
func (c *config) stamp(out map[string]any) map[string]any {
	out["timestamp"] = c.now().Format(time.RFC3339Nano)
	return out
}

// Register binds every catalog variant into reg. All nodes constructed by
// reg share the dependencies configured by opts.
func Register(reg *workflow.Registry, opts ...Option) error {
	cfg := newConfig(opts...)
	ctors := map[string]workflow.Constructor{
		TypeScreenshot:  func() workflow.Node { return newScreenshot(cfg) },
		TypeCalculator:  func() workflow.Node { return newCalculator(cfg) },
		TypeSystemInfo:  func() workflow.Node { return newSystemInfo(cfg) },
		TypeDelay:       func() workflow.Node { return newDelay(cfg) },
		TypeDecision:    func() workflow.Node { return newDecision(cfg) },
		TypeLoop:        func() workflow.Node { return newLoop(cfg) },
		TypeInput:       func() workflow.Node { return newInput(cfg) },
		TypeOutput:      func() workflow.Node { return newOutput(cfg) },
		TypeHTTPRequest: func() workflow.Node { return newHTTPRequest(cfg) },
		TypeAskAI:       func() workflow.Node { return newAskAI(cfg) },
	}
	for nodeType, ctor := range ctors {
		if err := reg.Register(nodeType, ctor); err != nil {
			return err
		}
	}
	return nil
}

// Types lists the catalog discriminators.
func Types() []string {
	return []string{
		TypeScreenshot, TypeCalculator, TypeSystemInfo, TypeDelay, TypeDecision,
		TypeLoop, TypeInput, TypeOutput, TypeHTTPRequest, TypeAskAI,
	}
}

func init() {
	if err := Register(workflow.DefaultRegistry); err != nil {
		panic(err)
	}
}
