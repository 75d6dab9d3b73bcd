package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dshills/workflow-go/workflow"
	"github.com/dshills/workflow-go/workflow/emit"
	"github.com/dshills/workflow-go/workflow/model/anthropic"
	"github.com/dshills/workflow-go/workflow/model/google"
	"github.com/dshills/workflow-go/workflow/model/openai"
	"github.com/dshills/workflow-go/workflow/nodes"
	"github.com/dshills/workflow-go/workflow/store"
)

// openStore opens the run history store selected by the flags. It returns
// a nil store when history is disabled.
func (f *globalFlags) openStore() (store.Store, error) {
	if f.NoHistory {
		return nil, nil
	}
	if f.MySQLDSN != "" {
		s, err := store.NewMySQLStore(f.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("open mysql history: %w", err)
		}
		return s, nil
	}
	path, err := f.historyPath()
	if err != nil {
		return nil, err
	}
	s, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %s: %w", path, err)
	}
	return s, nil
}

// chatModels builds one chat model per provider whose API key is set in
// the environment. The returned closer releases provider clients.
func (f *globalFlags) chatModels(ctx context.Context) ([]nodes.Option, func() error, error) {
	var opts []nodes.Option
	closer := func() error { return nil }

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		opts = append(opts, nodes.WithChatModel("anthropic", anthropic.NewChatModel(key, f.AnthropicModel)))
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		opts = append(opts, nodes.WithChatModel("openai", openai.NewChatModel(key, f.OpenAIModel)))
	}
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		gm, err := google.NewChatModel(ctx, key, f.GoogleModel)
		if err != nil {
			return nil, closer, err
		}
		opts = append(opts, nodes.WithChatModel("google", gm))
		closer = gm.Close
	}
	return opts, closer, nil
}

// registry builds a node registry whose nodes print to out, prompt on in
// and use the configured chat models.
func (f *globalFlags) registry(ctx context.Context, in io.Reader, out, prompts io.Writer, extra ...nodes.Option) (*workflow.Registry, func() error, error) {
	modelOpts, closer, err := f.chatModels(ctx)
	if err != nil {
		return nil, closer, err
	}
	opts := append([]nodes.Option{
		nodes.WithOutput(out),
		nodes.WithPrompter(nodes.NewLinePrompter(in, prompts)),
	}, modelOpts...)
	if c := nodes.NewCommandCapturer(f.ScreenshotCmd); c != nil {
		opts = append(opts, nodes.WithScreenCapturer(c))
	}
	opts = append(opts, extra...)

	reg := workflow.NewRegistry()
	if err := nodes.Register(reg, opts...); err != nil {
		return nil, closer, err
	}
	return reg, closer, nil
}

// loadWorkflow reads path with a registry that needs no runtime dependencies.
func loadWorkflow(path string) (*workflow.Workflow, error) {
	reg := workflow.NewRegistry()
	if err := nodes.Register(reg, nodes.WithOutput(io.Discard)); err != nil {
		return nil, err
	}
	return reg.LoadFromFile(path)
}

// eventEmitter returns the emitter selected by --events, or nil.
func (f *globalFlags) eventEmitter(w io.Writer) emit.Emitter {
	switch f.Events {
	case "text":
		return emit.NewLogEmitter(w, false)
	case "json":
		return emit.NewLogEmitter(w, true)
	}
	return nil
}

var errInvalidWorkflow = errors.New("workflow is invalid")
